// Package server publishes skill tools over the Model Context Protocol using
// mcp-go, on stdio or on HTTP with server-sent events.
package server

import (
	"context"
	"encoding/json"

	"github.com/jingkaihe/skillserver/pkg/logger"
	"github.com/jingkaihe/skillserver/pkg/tools"
	"github.com/jingkaihe/skillserver/pkg/version"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/pkg/errors"
)

// ServerName is the implementation name reported to MCP clients
const ServerName = "skillserver"

// New creates an MCP server with one MCP tool per tool
func New(ctx context.Context, skillTools []tools.Tool) (*server.MCPServer, error) {
	s := server.NewMCPServer(
		ServerName,
		version.Get().Version,
		server.WithToolCapabilities(false),
	)

	for _, tool := range skillTools {
		mcpTool, err := toMCPTool(tool)
		if err != nil {
			return nil, err
		}
		s.AddTool(mcpTool, toolHandler(tool))
		logger.G(ctx).WithField("tool", tool.Name()).Debug("registered MCP tool")
	}

	return s, nil
}

func toMCPTool(tool tools.Tool) (mcp.Tool, error) {
	schema, err := json.Marshal(tool.GenerateSchema())
	if err != nil {
		return mcp.Tool{}, errors.Wrapf(err, "failed to marshal input schema of %s", tool.Name())
	}
	return mcp.NewToolWithRawSchema(tool.Name(), tool.Description(), schema), nil
}

// toolHandler adapts a tool to mcp-go. Tool failures become results with
// isError set; the handler itself never returns an error to the transport.
func toolHandler(tool tools.Tool) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx = logger.WithLogger(ctx, logger.G(ctx).WithField("tool", tool.Name()))

		parameters, err := json.Marshal(request.Params.Arguments)
		if err != nil {
			return mcp.NewToolResultError(errors.Wrap(err, "invalid arguments").Error()), nil
		}

		logger.G(ctx).Debug("handling tool call")
		result := tools.RunTool(ctx, tool, string(parameters))
		logger.G(ctx).WithField("error", result.IsError()).Debug("tool call completed")

		if result.IsError() {
			return mcp.NewToolResultError(result.Error), nil
		}
		return mcp.NewToolResultText(result.Result), nil
	}
}
