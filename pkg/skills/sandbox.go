package skills

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// ResolvePath joins relPath onto the skill directory and returns the cleaned
// absolute path. It fails with ErrPathOutsideSkill unless the result is the
// skill directory itself or lies below it. Every caller that turns a
// caller-supplied path into a file path goes through here.
func ResolvePath(skill *Skill, relPath string) (string, error) {
	base := filepath.Clean(skill.Directory)
	target := filepath.Clean(filepath.Join(base, relPath))

	if !isWithin(base, target) {
		return "", errors.Wrapf(ErrPathOutsideSkill, "%q in skill '%s'", relPath, skill.ID)
	}
	return target, nil
}

// isWithin reports whether target equals base or is nested under it. The
// separator check keeps ".../skills/foo" from admitting ".../skills/foo-evil".
func isWithin(base, target string) bool {
	if target == base {
		return true
	}
	prefix := base
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(target, prefix)
}
