package skills

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadManifest(t *testing.T) {
	root := t.TempDir()
	content := "---\nname: demo\ndescription: A demo\nextra: kept\n---\n\n# Demo\n"
	writeFile(t, root, "demo/SKILL.md", content)

	cache, err := Build(context.Background(), root)
	require.NoError(t, err)
	skill, err := cache.Get("demo")
	require.NoError(t, err)

	got, err := ReadManifest(skill)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestReadResource(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, root, "demo", "demo", "A demo")
	writeFile(t, root, "demo/docs/guide.md", "# Guide\n")
	writeFile(t, root, "secret.txt", "top secret")

	cache, err := Build(context.Background(), root)
	require.NoError(t, err)
	skill, err := cache.Get("demo")
	require.NoError(t, err)

	t.Run("reads a bundled file", func(t *testing.T) {
		content, err := ReadResource(skill, "docs/guide.md")
		require.NoError(t, err)
		assert.Equal(t, "# Guide\n", content)
	})

	t.Run("rejects escapes", func(t *testing.T) {
		_, err := ReadResource(skill, "../secret.txt")
		assert.ErrorIs(t, err, ErrPathOutsideSkill)
	})

	t.Run("missing file is a read failure", func(t *testing.T) {
		_, err := ReadResource(skill, "docs/missing.md")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrPathOutsideSkill)
		assert.Contains(t, err.Error(), "failed to read resource")
	})

	t.Run("directory is a read failure", func(t *testing.T) {
		_, err := ReadResource(skill, "docs")
		assert.Error(t, err)
	})
}
