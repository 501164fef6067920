// Package tools exposes the skill cache and script runner as named tools
// with JSON-schema inputs. Transports (MCP, CLI) call them through RunTool.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/jingkaihe/skillserver/pkg/logger"
	"github.com/jingkaihe/skillserver/pkg/skills"
	"github.com/jingkaihe/skillserver/pkg/telemetry"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tool is a single operation callable by an agent
type Tool interface {
	Name() string
	Description() string
	GenerateSchema() *jsonschema.Schema
	ValidateInput(parameters string) error
	Execute(ctx context.Context, parameters string) ToolResult
	TracingKVs(parameters string) ([]attribute.KeyValue, error)
}

// ToolResult is the outcome of a tool call; a non-empty Error marks failure
type ToolResult struct {
	Result string `json:"result"`
	Error  string `json:"error"`
}

// IsError returns true if the call failed
func (r ToolResult) IsError() bool {
	return r.Error != ""
}

// Text returns the error if there is one, otherwise the result
func (r ToolResult) Text() string {
	if r.IsError() {
		return r.Error
	}
	return r.Result
}

// GenerateSchema reflects the JSON schema of a tool input struct
func GenerateSchema[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T

	return reflector.Reflect(v)
}

// NewSkillTools returns every tool backed by the given cache and runner,
// in the order they are advertised
func NewSkillTools(cache *skills.Cache, runner *skills.Runner) []Tool {
	return []Tool{
		&ListSkillsTool{cache: cache},
		&GetSkillTool{cache: cache},
		&ListResourcesTool{cache: cache},
		&GetResourceTool{cache: cache},
		&RunScriptTool{cache: cache, runner: runner},
	}
}

// FindTool returns the tool with the given name
func FindTool(tools []Tool, name string) (Tool, error) {
	for _, tool := range tools {
		if tool.Name() == name {
			return tool, nil
		}
	}
	return nil, errors.Errorf("unknown tool: %s", name)
}

var (
	tracer = telemetry.Tracer("skillserver.tools")
)

// RunTool validates the parameters and executes the tool inside a span
func RunTool(ctx context.Context, tool Tool, parameters string) ToolResult {
	kvs, err := tool.TracingKVs(parameters)
	if err != nil {
		logger.G(ctx).WithError(err).Debug("failed to get tracing kvs")
	}

	ctx, span := tracer.Start(
		ctx,
		fmt.Sprintf("tools.run_tool.%s", tool.Name()),
		trace.WithAttributes(kvs...),
	)
	defer span.End()

	result := ToolResult{}
	if err := tool.ValidateInput(parameters); err != nil {
		result.Error = err.Error()
	} else {
		result = tool.Execute(ctx, parameters)
	}

	if result.IsError() {
		span.SetStatus(codes.Error, result.Error)
		span.RecordError(errors.New(result.Error))
	} else {
		span.SetStatus(codes.Ok, "")
	}

	return result
}

// decodeInput unmarshals tool parameters; an empty string decodes as {}
func decodeInput[T any](parameters string) (T, error) {
	var input T
	if strings.TrimSpace(parameters) == "" {
		return input, nil
	}
	if err := json.Unmarshal([]byte(parameters), &input); err != nil {
		return input, errors.Wrap(err, "invalid input")
	}
	return input, nil
}

func lookupSkill(cache *skills.Cache, key string) (*skills.Skill, *ToolResult) {
	skill, ok := cache.Lookup(key)
	if !ok {
		return nil, &ToolResult{Error: fmt.Sprintf("skill '%s' not found", key)}
	}
	return skill, nil
}

func skillKVs(parameters string) ([]attribute.KeyValue, error) {
	input, err := decodeInput[SkillInput](parameters)
	if err != nil {
		return nil, err
	}
	return []attribute.KeyValue{
		attribute.String("skill", input.Skill),
	}, nil
}
