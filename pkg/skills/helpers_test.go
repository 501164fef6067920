package skills

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeFile creates path below root with the given content, creating parents
func writeFile(t *testing.T, root, path, content string) string {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(path))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	return full
}

func manifestContent(name, description string) string {
	return "---\nname: " + name + "\ndescription: " + description + "\n---\n\n# " + name + "\n"
}

// writeSkill creates dir/SKILL.md below root and returns the bundle directory
func writeSkill(t *testing.T, root, dir, name, description string) string {
	t.Helper()
	writeFile(t, root, filepath.ToSlash(filepath.Join(dir, DefaultManifestName)), manifestContent(name, description))
	return filepath.Join(root, dir)
}
