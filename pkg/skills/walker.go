package skills

import (
	"context"
	"os"
	"path/filepath"

	"github.com/jingkaihe/skillserver/pkg/logger"
	"github.com/pkg/errors"
)

// ListFiles returns the absolute paths of every file under root, depth-first
// in lexical order. Symlinked directories are followed unless they point back
// to a directory currently being walked, so a directory reachable through
// several links is listed under each of them.
// A subdirectory that cannot be read is logged and left out; only a root that
// cannot be read is an error.
func ListFiles(ctx context.Context, root string) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve skills directory")
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read skills directory %s", absRoot)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("skills directory %s is not a directory", absRoot)
	}

	w := &walker{ancestors: make(map[string]bool)}
	if err := w.walk(ctx, absRoot, true); err != nil {
		return nil, err
	}
	return w.files, nil
}

type walker struct {
	files     []string
	ancestors map[string]bool // real paths of the directories on the current walk path
}

func (w *walker) walk(ctx context.Context, dir string, isRoot bool) error {
	if realPath, err := filepath.EvalSymlinks(dir); err == nil {
		if w.ancestors[realPath] {
			logger.G(ctx).WithField("dir", dir).Debug("skipping symlink cycle")
			return nil
		}
		w.ancestors[realPath] = true
		defer delete(w.ancestors, realPath)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if isRoot {
			return errors.Wrapf(err, "failed to read skills directory %s", dir)
		}
		logger.G(ctx).WithError(err).WithField("dir", dir).Warn("skipping unreadable directory")
		return nil
	}

	for _, entry := range entries {
		entryPath := filepath.Join(dir, entry.Name())

		isDir := entry.IsDir()
		if entry.Type()&os.ModeSymlink != 0 {
			info, err := os.Stat(entryPath)
			if err != nil {
				logger.G(ctx).WithError(err).WithField("path", entryPath).Debug("skipping broken symlink")
				continue
			}
			isDir = info.IsDir()
		}

		if isDir {
			if err := w.walk(ctx, entryPath, false); err != nil {
				return err
			}
			continue
		}

		w.files = append(w.files, entryPath)
	}

	return nil
}
