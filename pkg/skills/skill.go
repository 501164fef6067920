// Package skills indexes skill bundles on disk and serves them to callers.
// A bundle is a directory containing a SKILL.md manifest with YAML
// frontmatter, plus any number of resource files and scripts. Bundles are
// discovered once at startup into a Cache; resources and scripts are
// resolved relative to the owning bundle and never outside it.
package skills

import (
	"github.com/pkg/errors"
)

// DefaultManifestName is the canonical manifest file name of a bundle
const DefaultManifestName = "SKILL.md"

var (
	// ErrSkillNotFound is returned when a key matches neither a skill id nor a folder name
	ErrSkillNotFound = errors.New("skill not found")
	// ErrPathOutsideSkill is returned when a relative path escapes the skill directory
	ErrPathOutsideSkill = errors.New("path is outside the skill directory")
	// ErrMissingName is returned for a manifest without a name
	ErrMissingName = errors.New("skill name is required in frontmatter")
	// ErrMissingDescription is returned for a manifest without a description
	ErrMissingDescription = errors.New("skill description is required in frontmatter")
)

// Skill is a discovered bundle. It is built once and never mutated.
type Skill struct {
	ID           string         // Unique key, the manifest name
	DisplayName  string         // Explicit displayName or derived from ID
	Description  string         // Manifest description
	FolderName   string         // Base name of Directory, used as a fallback key
	Directory    string         // Absolute path of the bundle directory
	ManifestPath string         // Absolute path of the manifest file
	Body         string         // Manifest content without frontmatter
	AllowedTools []string       // Normalized allowed-tools
	AllowedRoles []string       // Normalized allowedRoles
	Resources    []string       // Slash-separated paths relative to Directory
	Extra        map[string]any // Frontmatter fields not interpreted here
}

// Summary is the listing view of a skill
type Summary struct {
	ID            string   `json:"id" yaml:"id"`
	DisplayName   string   `json:"displayName" yaml:"displayName"`
	Description   string   `json:"description" yaml:"description"`
	AllowedRoles  []string `json:"allowedRoles" yaml:"allowedRoles"`
	AllowedTools  []string `json:"allowedTools" yaml:"allowedTools"`
	ResourceCount int      `json:"resourceCount" yaml:"resourceCount"`
}

// Summary returns the listing view of the skill
func (s *Skill) Summary() Summary {
	return Summary{
		ID:            s.ID,
		DisplayName:   s.DisplayName,
		Description:   s.Description,
		AllowedRoles:  s.AllowedRoles,
		AllowedTools:  s.AllowedTools,
		ResourceCount: len(s.Resources),
	}
}
