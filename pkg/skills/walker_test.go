package skills

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "b.txt", "b")
	writeFile(t, root, "a/z.txt", "z")
	writeFile(t, root, "a/nested/deep.txt", "deep")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))

	files, err := ListFiles(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(root, "a", "nested", "deep.txt"),
		filepath.Join(root, "a", "z.txt"),
		filepath.Join(root, "b.txt"),
	}, files)
}

func TestListFilesRelativeRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "one.txt", "1")

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(root))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	files, err := ListFiles(context.Background(), ".")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.True(t, filepath.IsAbs(files[0]))
	assert.Equal(t, "one.txt", filepath.Base(files[0]))
}

func TestListFilesMissingRoot(t *testing.T) {
	_, err := ListFiles(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestListFilesRootIsFile(t *testing.T) {
	root := t.TempDir()
	file := writeFile(t, root, "file.txt", "x")

	_, err := ListFiles(context.Background(), file)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestListFilesFollowsSymlinkedDirectories(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}

	root := t.TempDir()
	outside := t.TempDir()
	writeFile(t, outside, "shared.txt", "shared")
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "linked")))

	// A link back to the root must not loop
	require.NoError(t, os.Symlink(root, filepath.Join(root, "loop")))

	// Broken links are skipped
	require.NoError(t, os.Symlink(filepath.Join(root, "nowhere"), filepath.Join(root, "broken")))

	files, err := ListFiles(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "linked", "shared.txt")}, files)
}

func TestListFilesSkipsUnreadableDirectories(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}

	root := t.TempDir()
	writeFile(t, root, "ok/file.txt", "ok")
	locked := filepath.Join(root, "locked")
	writeFile(t, root, "locked/secret.txt", "secret")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	files, err := ListFiles(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "ok", "file.txt")}, files)
}

func TestListFilesDirectoryReachedThroughSeveralLinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}

	root := t.TempDir()
	writeFile(t, root, "shared/lib.txt", "x")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "b"), 0o755))
	require.NoError(t, os.Symlink(filepath.Join("..", "shared"), filepath.Join(root, "a", "lib")))
	require.NoError(t, os.Symlink(filepath.Join("..", "shared"), filepath.Join(root, "b", "lib")))

	files, err := ListFiles(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a", "lib", "lib.txt"),
		filepath.Join(root, "b", "lib", "lib.txt"),
		filepath.Join(root, "shared", "lib.txt"),
	}, files)
}
