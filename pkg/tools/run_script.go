package tools

import (
	"context"

	"github.com/invopop/jsonschema"
	"github.com/jingkaihe/skillserver/pkg/skills"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

// RunScriptInput identifies a script inside a skill and its arguments
type RunScriptInput struct {
	Skill string   `json:"skill" jsonschema:"description=The skill id or the name of its folder"`
	Path  string   `json:"path" jsonschema:"description=Path of the script relative to the skill directory"`
	Args  []string `json:"args,omitempty" jsonschema:"description=Arguments passed to the script"`
}

// RunScriptTool executes a script bundled with a skill
type RunScriptTool struct {
	cache  *skills.Cache
	runner *skills.Runner
}

func (t *RunScriptTool) Name() string {
	return "run_script"
}

func (t *RunScriptTool) Description() string {
	return `Runs a script bundled with a skill and returns its output.

Supported script types: .py (python3), .sh (bash) and .js (node). The script
runs with the skill directory as its working directory and is awaited until
it exits. A non-zero exit code is reported as an error together with the
captured stderr and stdout.`
}

func (t *RunScriptTool) GenerateSchema() *jsonschema.Schema {
	return GenerateSchema[RunScriptInput]()
}

func (t *RunScriptTool) ValidateInput(parameters string) error {
	input, err := decodeInput[RunScriptInput](parameters)
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

func (t *RunScriptTool) TracingKVs(parameters string) ([]attribute.KeyValue, error) {
	input, err := decodeInput[RunScriptInput](parameters)
	if err != nil {
		return nil, err
	}
	return []attribute.KeyValue{
		attribute.String("skill", input.Skill),
		attribute.String("path", input.Path),
		attribute.Int("args.count", len(input.Args)),
	}, nil
}

func (t *RunScriptTool) Execute(ctx context.Context, parameters string) ToolResult {
	input, err := decodeInput[RunScriptInput](parameters)
	if err != nil {
		return ToolResult{Error: err.Error()}
	}

	skill, miss := lookupSkill(t.cache, input.Skill)
	if miss != nil {
		return *miss
	}

	result := t.runner.Run(ctx, skill, input.Path, input.Args)
	if result.IsError() {
		return ToolResult{Error: result.Output()}
	}
	return ToolResult{Result: result.Output()}
}
