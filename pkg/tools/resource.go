package tools

import (
	"context"
	"encoding/json"

	"github.com/invopop/jsonschema"
	"github.com/jingkaihe/skillserver/pkg/skills"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

// ListResourcesTool lists the files bundled with a skill
type ListResourcesTool struct {
	cache *skills.Cache
}

func (t *ListResourcesTool) Name() string {
	return "list_resources"
}

func (t *ListResourcesTool) Description() string {
	return `Lists the files bundled with a skill, excluding its SKILL.md.

Returns a JSON array of paths relative to the skill directory. Pass a path to
get_resource to read it, or to run_script to execute it.`
}

func (t *ListResourcesTool) GenerateSchema() *jsonschema.Schema {
	return GenerateSchema[SkillInput]()
}

func (t *ListResourcesTool) ValidateInput(parameters string) error {
	input, err := decodeInput[SkillInput](parameters)
	if err != nil {
		return err
	}
	return input.validate()
}

func (t *ListResourcesTool) TracingKVs(parameters string) ([]attribute.KeyValue, error) {
	return skillKVs(parameters)
}

func (t *ListResourcesTool) Execute(_ context.Context, parameters string) ToolResult {
	input, err := decodeInput[SkillInput](parameters)
	if err != nil {
		return ToolResult{Error: err.Error()}
	}

	skill, miss := lookupSkill(t.cache, input.Skill)
	if miss != nil {
		return *miss
	}

	out, err := json.MarshalIndent(skill.Resources, "", "  ")
	if err != nil {
		return ToolResult{Error: errors.Wrap(err, "failed to encode resources").Error()}
	}
	return ToolResult{Result: string(out)}
}

// GetResourceInput identifies a file inside a skill
type GetResourceInput struct {
	Skill string `json:"skill" jsonschema:"description=The skill id or the name of its folder"`
	Path  string `json:"path" jsonschema:"description=Path of the file relative to the skill directory"`
}

// GetResourceTool reads a file bundled with a skill
type GetResourceTool struct {
	cache *skills.Cache
}

func (t *GetResourceTool) Name() string {
	return "get_resource"
}

func (t *GetResourceTool) Description() string {
	return `Reads a file bundled with a skill and returns its contents as text.

The path is relative to the skill directory. Paths that resolve outside the
skill directory are rejected.`
}

func (t *GetResourceTool) GenerateSchema() *jsonschema.Schema {
	return GenerateSchema[GetResourceInput]()
}

func (t *GetResourceTool) ValidateInput(parameters string) error {
	input, err := decodeInput[GetResourceInput](parameters)
	if err != nil {
		return err
	}
	if input.Skill == "" {
		return errors.New("skill is required")
	}
	if input.Path == "" {
		return errors.New("path is required")
	}
	return nil
}

func (t *GetResourceTool) TracingKVs(parameters string) ([]attribute.KeyValue, error) {
	input, err := decodeInput[GetResourceInput](parameters)
	if err != nil {
		return nil, err
	}
	return []attribute.KeyValue{
		attribute.String("skill", input.Skill),
		attribute.String("path", input.Path),
	}, nil
}

func (t *GetResourceTool) Execute(_ context.Context, parameters string) ToolResult {
	input, err := decodeInput[GetResourceInput](parameters)
	if err != nil {
		return ToolResult{Error: err.Error()}
	}

	skill, miss := lookupSkill(t.cache, input.Skill)
	if miss != nil {
		return *miss
	}

	content, err := skills.ReadResource(skill, input.Path)
	if err != nil {
		return ToolResult{Error: err.Error()}
	}
	return ToolResult{Result: content}
}
