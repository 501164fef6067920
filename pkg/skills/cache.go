package skills

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gobwas/glob"
	"github.com/hashicorp/go-multierror"
	"github.com/jingkaihe/skillserver/pkg/logger"
	"github.com/pkg/errors"
)

// DuplicatePolicy decides what happens when two bundles declare the same name
type DuplicatePolicy string

const (
	// DuplicateOverwrite keeps the last discovered bundle
	DuplicateOverwrite DuplicatePolicy = "overwrite"
	// DuplicateReject keeps the first discovered bundle
	DuplicateReject DuplicatePolicy = "reject"
)

// ParseDuplicatePolicy parses a policy name, defaulting to DuplicateOverwrite when empty
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch DuplicatePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", DuplicateOverwrite:
		return DuplicateOverwrite, nil
	case DuplicateReject:
		return DuplicateReject, nil
	default:
		return "", errors.Errorf("unknown duplicate policy %q (want overwrite or reject)", s)
	}
}

// Cache is the in-memory index of skills. It is filled once by Build and is
// read-only afterwards, so it is safe for concurrent readers.
type Cache struct {
	root         string
	manifestName string
	ignore       []string
	allowlist    []glob.Glob
	duplicates   DuplicatePolicy

	skills   map[string]*Skill
	order    []string
	problems *multierror.Error
}

// Option configures how a Cache is built
type Option func(*Cache) error

// WithManifestName sets the manifest file name looked for in each bundle
func WithManifestName(name string) Option {
	return func(c *Cache) error {
		if name == "" || strings.ContainsAny(name, `/\`) {
			return errors.Errorf("invalid manifest name %q", name)
		}
		c.manifestName = name
		return nil
	}
}

// WithIgnorePatterns drops walked files whose root-relative path matches any
// of the doublestar patterns, e.g. "**/node_modules/**"
func WithIgnorePatterns(patterns ...string) Option {
	return func(c *Cache) error {
		for _, pattern := range patterns {
			if !doublestar.ValidatePattern(pattern) {
				return errors.Errorf("invalid ignore pattern %q", pattern)
			}
		}
		c.ignore = append(c.ignore, patterns...)
		return nil
	}
}

// WithAllowlist restricts the cache to skill ids matching any of the glob
// patterns. An empty allowlist admits every skill.
func WithAllowlist(patterns ...string) Option {
	return func(c *Cache) error {
		for _, pattern := range patterns {
			g, err := glob.Compile(pattern)
			if err != nil {
				return errors.Wrapf(err, "invalid allowlist pattern %q", pattern)
			}
			c.allowlist = append(c.allowlist, g)
		}
		return nil
	}
}

// WithDuplicatePolicy sets how name collisions are resolved
func WithDuplicatePolicy(policy DuplicatePolicy) Option {
	return func(c *Cache) error {
		if _, err := ParseDuplicatePolicy(string(policy)); err != nil {
			return err
		}
		c.duplicates = policy
		return nil
	}
}

// Build walks root and indexes every valid bundle below it. Problems with
// the directory or individual bundles never fail the build; they are logged
// and reported by Problems. Only invalid options return an error.
func Build(ctx context.Context, root string, opts ...Option) (*Cache, error) {
	c := &Cache{
		root:         root,
		manifestName: DefaultManifestName,
		duplicates:   DuplicateOverwrite,
		skills:       make(map[string]*Skill),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if abs, err := filepath.Abs(root); err == nil {
		c.root = abs
	}
	log := logger.G(ctx).WithField("root", c.root)

	files, err := ListFiles(ctx, c.root)
	if err != nil {
		log.WithError(err).Warn("skills directory unavailable, serving no skills")
		c.addProblem(err)
		return c, nil
	}

	files = c.filterIgnored(ctx, files)

	for _, manifestPath := range c.manifests(ctx, files) {

		skill, err := c.loadSkill(manifestPath, files)
		if err != nil {
			log.WithError(err).WithField("path", manifestPath).Warn("skipping skill")
			c.addProblem(errors.Wrapf(err, "skipped %s", manifestPath))
			continue
		}

		if !c.allowed(skill.ID) {
			log.WithField("skill", skill.ID).Debug("skill not in allowlist")
			continue
		}

		c.insert(ctx, skill)
	}

	log.WithField("count", len(c.skills)).Info("skills loaded")
	return c, nil
}

// manifests returns the manifest files among files in walk order. A manifest
// reachable through several paths, e.g. a bundle linked from another bundle,
// is returned once: under its direct path below the root when it has one,
// otherwise under the first path walked.
func (c *Cache) manifests(ctx context.Context, files []string) []string {
	realRoot, err := filepath.EvalSymlinks(c.root)
	if err != nil {
		realRoot = c.root
	}

	realPaths := make(map[string]string)
	chosen := make(map[string]string)
	for _, file := range files {
		if filepath.Base(file) != c.manifestName {
			continue
		}

		realPath, err := filepath.EvalSymlinks(file)
		if err != nil {
			realPath = file
		}
		realPaths[file] = realPath

		current, seen := chosen[realPath]
		if !seen || (!c.isDirect(realRoot, current, realPath) && c.isDirect(realRoot, file, realPath)) {
			chosen[realPath] = file
		}
	}

	manifests := make([]string, 0, len(chosen))
	for _, file := range files {
		realPath, ok := realPaths[file]
		if !ok {
			continue
		}
		if chosen[realPath] != file {
			logger.G(ctx).WithField("path", file).WithField("canonical", chosen[realPath]).
				Debug("skipping manifest reached through a symlink")
			continue
		}
		manifests = append(manifests, file)
	}
	return manifests
}

// isDirect reports whether path reaches realPath without crossing a symlink
// below the root
func (c *Cache) isDirect(realRoot, path, realPath string) bool {
	rel, err := filepath.Rel(c.root, path)
	if err != nil {
		return false
	}
	return filepath.Join(realRoot, rel) == realPath
}

func (c *Cache) filterIgnored(ctx context.Context, files []string) []string {
	if len(c.ignore) == 0 {
		return files
	}

	kept := make([]string, 0, len(files))
	for _, file := range files {
		rel, err := filepath.Rel(c.root, file)
		if err != nil {
			kept = append(kept, file)
			continue
		}
		rel = filepath.ToSlash(rel)

		ignored := false
		for _, pattern := range c.ignore {
			if ok, _ := doublestar.Match(pattern, rel); ok {
				ignored = true
				break
			}
		}
		if ignored {
			logger.G(ctx).WithField("path", rel).Debug("ignoring file")
			continue
		}
		kept = append(kept, file)
	}
	return kept
}

// loadSkill builds a Skill from its manifest and the full list of walked files
func (c *Cache) loadSkill(manifestPath string, files []string) (*Skill, error) {
	content, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read skill file")
	}

	manifest, err := ParseManifest(content)
	if err != nil {
		return nil, err
	}
	if err := manifest.Validate(); err != nil {
		return nil, err
	}

	dir := filepath.Dir(manifestPath)
	prefix := dir + string(filepath.Separator)

	resources := []string{}
	for _, file := range files {
		if !strings.HasPrefix(file, prefix) || filepath.Base(file) == c.manifestName {
			continue
		}
		resources = append(resources, filepath.ToSlash(strings.TrimPrefix(file, prefix)))
	}

	return &Skill{
		ID:           manifest.Metadata.Name,
		DisplayName:  manifest.ResolvedDisplayName(),
		Description:  manifest.Metadata.Description,
		FolderName:   filepath.Base(dir),
		Directory:    dir,
		ManifestPath: manifestPath,
		Body:         manifest.Body,
		AllowedTools: manifest.Metadata.AllowedTools,
		AllowedRoles: manifest.Metadata.AllowedRoles,
		Resources:    resources,
		Extra:        manifest.Metadata.Extra,
	}, nil
}

func (c *Cache) allowed(id string) bool {
	if len(c.allowlist) == 0 {
		return true
	}
	for _, g := range c.allowlist {
		if g.Match(id) {
			return true
		}
	}
	return false
}

func (c *Cache) insert(ctx context.Context, skill *Skill) {
	existing, exists := c.skills[skill.ID]
	if !exists {
		c.skills[skill.ID] = skill
		c.order = append(c.order, skill.ID)
		return
	}

	log := logger.G(ctx).
		WithField("skill", skill.ID).
		WithField("kept", existing.Directory).
		WithField("duplicate", skill.Directory)

	if c.duplicates == DuplicateReject {
		log.Warn("duplicate skill name, keeping the first one")
		c.addProblem(errors.Errorf("duplicate skill %q in %s rejected, already defined in %s",
			skill.ID, skill.Directory, existing.Directory))
		return
	}

	log.Warn("duplicate skill name, replacing the earlier one")
	c.addProblem(errors.Errorf("duplicate skill %q in %s replaced the one in %s",
		skill.ID, skill.Directory, existing.Directory))
	c.skills[skill.ID] = skill
}

func (c *Cache) addProblem(err error) {
	c.problems = multierror.Append(c.problems, err)
}

// Problems returns the non-fatal issues found while building, or nil
func (c *Cache) Problems() error {
	return c.problems.ErrorOrNil()
}

// Root returns the directory the cache was built from
func (c *Cache) Root() string {
	return c.root
}

// Lookup finds a skill by id, falling back to the first skill whose folder
// name equals key
func (c *Cache) Lookup(key string) (*Skill, bool) {
	if skill, ok := c.skills[key]; ok {
		return skill, true
	}
	for _, id := range c.order {
		if skill := c.skills[id]; skill.FolderName == key {
			return skill, true
		}
	}
	return nil, false
}

// Get is Lookup returning ErrSkillNotFound on a miss
func (c *Cache) Get(key string) (*Skill, error) {
	skill, ok := c.Lookup(key)
	if !ok {
		return nil, errors.Wrapf(ErrSkillNotFound, "skill '%s'", key)
	}
	return skill, nil
}

// List returns all skills in discovery order
func (c *Cache) List() []*Skill {
	skills := make([]*Skill, 0, len(c.order))
	for _, id := range c.order {
		skills = append(skills, c.skills[id])
	}
	return skills
}

// Summaries returns the listing view of all skills in discovery order
func (c *Cache) Summaries() []Summary {
	summaries := make([]Summary, 0, len(c.order))
	for _, skill := range c.List() {
		summaries = append(summaries, skill.Summary())
	}
	return summaries
}

// Len returns the number of cached skills
func (c *Cache) Len() int {
	return len(c.skills)
}
