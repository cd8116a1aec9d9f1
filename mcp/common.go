package mcp

import "context"

// ToolCaller invokes tools on a connected MCP server
type ToolCaller interface {
	CallTool(ctx context.Context, name string, args map[string]any) (*ToolCallResult, error)
}

var _ ToolCaller = (*Session)(nil)
