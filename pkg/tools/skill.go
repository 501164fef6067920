package tools

import (
	"context"
	"encoding/json"

	"github.com/invopop/jsonschema"
	"github.com/jingkaihe/skillserver/pkg/skills"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

// SkillInput identifies a skill by id or folder name
type SkillInput struct {
	Skill string `json:"skill" jsonschema:"description=The skill id or the name of its folder"`
}

func (i SkillInput) validate() error {
	if i.Skill == "" {
		return errors.New("skill is required")
	}
	return nil
}

// ListSkillsInput takes no parameters
type ListSkillsInput struct{}

// ListSkillsTool lists every cached skill
type ListSkillsTool struct {
	cache *skills.Cache
}

func (t *ListSkillsTool) Name() string {
	return "list_skills"
}

func (t *ListSkillsTool) Description() string {
	return `Lists all available skills.

Returns a JSON array with one object per skill holding its id, displayName,
description, allowedRoles, allowedTools and resourceCount. Use the id with
get_skill to read the skill's instructions.`
}

func (t *ListSkillsTool) GenerateSchema() *jsonschema.Schema {
	return GenerateSchema[ListSkillsInput]()
}

func (t *ListSkillsTool) ValidateInput(parameters string) error {
	_, err := decodeInput[ListSkillsInput](parameters)
	return err
}

func (t *ListSkillsTool) TracingKVs(string) ([]attribute.KeyValue, error) {
	return []attribute.KeyValue{
		attribute.Int("skills.count", t.cache.Len()),
	}, nil
}

func (t *ListSkillsTool) Execute(_ context.Context, _ string) ToolResult {
	out, err := json.MarshalIndent(t.cache.Summaries(), "", "  ")
	if err != nil {
		return ToolResult{Error: errors.Wrap(err, "failed to encode skills").Error()}
	}
	return ToolResult{Result: string(out)}
}

// GetSkillTool returns the raw manifest of a skill
type GetSkillTool struct {
	cache *skills.Cache
}

func (t *GetSkillTool) Name() string {
	return "get_skill"
}

func (t *GetSkillTool) Description() string {
	return `Returns the full SKILL.md of a skill, frontmatter included, exactly as it is on disk.

The skill may be given by its id or by the name of its folder.`
}

func (t *GetSkillTool) GenerateSchema() *jsonschema.Schema {
	return GenerateSchema[SkillInput]()
}

func (t *GetSkillTool) ValidateInput(parameters string) error {
	input, err := decodeInput[SkillInput](parameters)
	if err != nil {
		return err
	}
	return input.validate()
}

func (t *GetSkillTool) TracingKVs(parameters string) ([]attribute.KeyValue, error) {
	return skillKVs(parameters)
}

func (t *GetSkillTool) Execute(_ context.Context, parameters string) ToolResult {
	input, err := decodeInput[SkillInput](parameters)
	if err != nil {
		return ToolResult{Error: err.Error()}
	}

	skill, miss := lookupSkill(t.cache, input.Skill)
	if miss != nil {
		return *miss
	}

	content, err := skills.ReadManifest(skill)
	if err != nil {
		return ToolResult{Error: err.Error()}
	}
	return ToolResult{Result: content}
}
