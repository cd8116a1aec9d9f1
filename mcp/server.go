package mcp

import (
	"context"
	"encoding/json"

	"github.com/KamdynS/mcpchat/tools"
	"github.com/effective-security/xlog"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewToolServer exposes local tools over MCP. A tool error is returned to
// the client as a tool result with isError set, carrying the error text.
func NewToolServer(name, version string, list []tools.Tool, opts *sdkmcp.ServerOptions) *sdkmcp.Server {
	srv := sdkmcp.NewServer(&sdkmcp.Implementation{Name: name, Version: version}, opts)
	for _, t := range list {
		srv.AddTool(&sdkmcp.Tool{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: normalizeSchema(t.Schema()),
		}, toolHandler(t))
	}
	return srv
}

func toolHandler(t tools.Tool) sdkmcp.ToolHandler {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest) (*sdkmcp.CallToolResult, error) {
		args := map[string]any{}
		if req.Params != nil && len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
				return errorResult("arguments must be a JSON object"), nil
			}
			if args == nil {
				args = map[string]any{}
			}
		}

		out, err := t.Execute(ctx, args)
		if err != nil {
			logger.ContextKV(ctx, xlog.DEBUG,
				"status", "tool_error",
				"tool", t.Name(),
				"err", err.Error())
			return errorResult(err.Error()), nil
		}
		return &sdkmcp.CallToolResult{
			Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: out}},
		}, nil
	}
}

func errorResult(msg string) *sdkmcp.CallToolResult {
	return &sdkmcp.CallToolResult{
		IsError: true,
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: msg}},
	}
}

// ServeStdio serves srv on the process's stdin and stdout until the client
// disconnects or ctx is done.
func ServeStdio(ctx context.Context, srv *sdkmcp.Server) error {
	return srv.Run(ctx, &sdkmcp.StdioTransport{})
}
