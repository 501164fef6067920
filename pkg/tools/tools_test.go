package tools

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/jingkaihe/skillserver/pkg/skills"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, path, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(path))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

const pdfManifest = `---
name: pdf-tools
displayName: PDF Tools
description: Work with PDF files
allowed-tools: bash, file_read
---

# PDF Tools
`

func newTestTools(t *testing.T) []Tool {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "pdf/SKILL.md", pdfManifest)
	writeFile(t, root, "pdf/reference.md", "# Reference\n")
	writeFile(t, root, "pdf/scripts/hello.sh", "echo \"hello $1\"\n")
	writeFile(t, root, "pdf/scripts/fail.sh", "echo oops >&2\nexit 2\n")
	writeFile(t, root, "secret.txt", "secret")

	cache, err := skills.Build(context.Background(), root)
	require.NoError(t, err)
	runner, err := skills.NewRunner()
	require.NoError(t, err)

	return NewSkillTools(cache, runner)
}

func run(t *testing.T, all []Tool, name, parameters string) ToolResult {
	t.Helper()
	tool, err := FindTool(all, name)
	require.NoError(t, err)
	return RunTool(context.Background(), tool, parameters)
}

func TestNewSkillTools(t *testing.T) {
	all := newTestTools(t)

	names := []string{}
	for _, tool := range all {
		names = append(names, tool.Name())
		assert.NotEmpty(t, tool.Description())

		schema, err := json.Marshal(tool.GenerateSchema())
		require.NoError(t, err)
		assert.Contains(t, string(schema), `"type":"object"`)
	}
	assert.Equal(t, []string{"list_skills", "get_skill", "list_resources", "get_resource", "run_script"}, names)

	_, err := FindTool(all, "bash")
	assert.Error(t, err)
}

func TestGenerateSchema(t *testing.T) {
	schema := GenerateSchema[RunScriptInput]()
	require.NotNil(t, schema.Properties)

	_, ok := schema.Properties.Get("skill")
	assert.True(t, ok)
	_, ok = schema.Properties.Get("path")
	assert.True(t, ok)
	_, ok = schema.Properties.Get("args")
	assert.True(t, ok)
	assert.ElementsMatch(t, []string{"skill", "path"}, schema.Required)
}

func TestListSkillsTool(t *testing.T) {
	all := newTestTools(t)

	result := run(t, all, "list_skills", "{}")
	require.False(t, result.IsError(), result.Error)

	var summaries []skills.Summary
	require.NoError(t, json.Unmarshal([]byte(result.Result), &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, skills.Summary{
		ID:            "pdf-tools",
		DisplayName:   "PDF Tools",
		Description:   "Work with PDF files",
		AllowedRoles:  []string{},
		AllowedTools:  []string{"bash", "file_read"},
		ResourceCount: 3,
	}, summaries[0])

	// Parameters are optional
	assert.False(t, run(t, all, "list_skills", "").IsError())
}

func TestListSkillsToolEmptyCache(t *testing.T) {
	cache, err := skills.Build(context.Background(), t.TempDir())
	require.NoError(t, err)
	runner, err := skills.NewRunner()
	require.NoError(t, err)

	result := run(t, NewSkillTools(cache, runner), "list_skills", "{}")
	require.False(t, result.IsError())
	assert.Equal(t, "[]", result.Result)
}

func TestGetSkillTool(t *testing.T) {
	all := newTestTools(t)

	t.Run("by id", func(t *testing.T) {
		result := run(t, all, "get_skill", `{"skill": "pdf-tools"}`)
		require.False(t, result.IsError(), result.Error)
		assert.Equal(t, pdfManifest, result.Result)
	})

	t.Run("by folder name", func(t *testing.T) {
		result := run(t, all, "get_skill", `{"skill": "pdf"}`)
		require.False(t, result.IsError(), result.Error)
		assert.Equal(t, pdfManifest, result.Result)
	})

	t.Run("unknown", func(t *testing.T) {
		result := run(t, all, "get_skill", `{"skill": "nope"}`)
		assert.True(t, result.IsError())
		assert.Equal(t, "skill 'nope' not found", result.Error)
	})

	t.Run("missing skill parameter", func(t *testing.T) {
		result := run(t, all, "get_skill", `{}`)
		assert.Equal(t, "skill is required", result.Error)
	})

	t.Run("malformed parameters", func(t *testing.T) {
		result := run(t, all, "get_skill", `{"skill":`)
		assert.True(t, result.IsError())
		assert.Contains(t, result.Error, "invalid input")
	})
}

func TestListResourcesTool(t *testing.T) {
	all := newTestTools(t)

	result := run(t, all, "list_resources", `{"skill": "pdf"}`)
	require.False(t, result.IsError(), result.Error)

	var resources []string
	require.NoError(t, json.Unmarshal([]byte(result.Result), &resources))
	assert.Equal(t, []string{"reference.md", "scripts/fail.sh", "scripts/hello.sh"}, resources)

	result = run(t, all, "list_resources", `{"skill": "nope"}`)
	assert.Equal(t, "skill 'nope' not found", result.Error)
}

func TestGetResourceTool(t *testing.T) {
	all := newTestTools(t)

	t.Run("reads a file", func(t *testing.T) {
		result := run(t, all, "get_resource", `{"skill": "pdf-tools", "path": "reference.md"}`)
		require.False(t, result.IsError(), result.Error)
		assert.Equal(t, "# Reference\n", result.Result)
	})

	t.Run("rejects escapes", func(t *testing.T) {
		result := run(t, all, "get_resource", `{"skill": "pdf-tools", "path": "../secret.txt"}`)
		assert.True(t, result.IsError())
		assert.Contains(t, result.Error, skills.ErrPathOutsideSkill.Error())
	})

	t.Run("missing file", func(t *testing.T) {
		result := run(t, all, "get_resource", `{"skill": "pdf-tools", "path": "nope.md"}`)
		assert.True(t, result.IsError())
		assert.Contains(t, result.Error, "failed to read resource")
	})

	t.Run("path required", func(t *testing.T) {
		result := run(t, all, "get_resource", `{"skill": "pdf-tools"}`)
		assert.Equal(t, "path is required", result.Error)
	})
}

func TestRunScriptTool(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("script tests need a unix shell")
	}
	if _, err := exec.LookPath("bash"); err != nil {
		t.Skip("bash not available")
	}
	all := newTestTools(t)

	t.Run("success", func(t *testing.T) {
		result := run(t, all, "run_script", `{"skill": "pdf", "path": "scripts/hello.sh", "args": ["there"]}`)
		require.False(t, result.IsError(), result.Error)
		assert.Equal(t, "hello there\n", result.Result)
	})

	t.Run("failure", func(t *testing.T) {
		result := run(t, all, "run_script", `{"skill": "pdf", "path": "scripts/fail.sh"}`)
		assert.True(t, result.IsError())
		assert.Equal(t, "Script failed with exit code 2\n\nSTDERR:\noops\n\nSTDOUT:\n", result.Error)
	})

	t.Run("sandbox escape", func(t *testing.T) {
		result := run(t, all, "run_script", `{"skill": "pdf", "path": "../../etc/passwd"}`)
		assert.True(t, result.IsError())
		assert.Contains(t, result.Error, skills.ErrPathOutsideSkill.Error())
	})

	t.Run("unknown skill", func(t *testing.T) {
		result := run(t, all, "run_script", `{"skill": "nope", "path": "x.sh"}`)
		assert.Equal(t, "skill 'nope' not found", result.Error)
	})

	t.Run("unsupported", func(t *testing.T) {
		result := run(t, all, "run_script", `{"skill": "pdf", "path": "reference.md"}`)
		assert.True(t, result.IsError())
		assert.Contains(t, result.Error, "unsupported script type")
	})
}

func TestTracingKVs(t *testing.T) {
	all := newTestTools(t)

	tool, err := FindTool(all, "run_script")
	require.NoError(t, err)
	kvs, err := tool.TracingKVs(`{"skill": "pdf", "path": "scripts/hello.sh", "args": ["a", "b"]}`)
	require.NoError(t, err)
	require.Len(t, kvs, 3)
	assert.Equal(t, "pdf", kvs[0].Value.AsString())
	assert.Equal(t, int64(2), kvs[2].Value.AsInt64())

	tool, err = FindTool(all, "get_skill")
	require.NoError(t, err)
	_, err = tool.TracingKVs("not json")
	assert.Error(t, err)
}

func TestToolResult(t *testing.T) {
	ok := ToolResult{Result: "fine"}
	assert.False(t, ok.IsError())
	assert.Equal(t, "fine", ok.Text())

	failed := ToolResult{Result: "ignored", Error: "broken"}
	assert.True(t, failed.IsError())
	assert.Equal(t, "broken", failed.Text())
}
