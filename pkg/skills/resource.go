package skills

import (
	"os"

	"github.com/pkg/errors"
)

// ReadManifest re-reads the skill's manifest from disk and returns it
// unmodified, frontmatter included
func ReadManifest(skill *Skill) (string, error) {
	content, err := os.ReadFile(skill.ManifestPath)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read manifest of skill '%s'", skill.ID)
	}
	return string(content), nil
}

// ReadResource reads a file of the skill after checking it stays inside the
// skill directory
func ReadResource(skill *Skill, relPath string) (string, error) {
	path, err := ResolvePath(skill, relPath)
	if err != nil {
		return "", err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read resource %q of skill '%s'", relPath, skill.ID)
	}
	return string(content), nil
}
