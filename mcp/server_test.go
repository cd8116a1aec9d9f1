package mcp

import (
	"context"
	"testing"

	"github.com/KamdynS/mcpchat/tools"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolServerRoundTrip(t *testing.T) {
	srv := NewToolServer("math", "v0.0.1", tools.NewArithmeticTools(), nil)
	s, _ := connectInMemory(t, srv, ServerConfig{})
	ctx := context.Background()

	list := s.Tools()
	require.Len(t, list, 4)
	catalog, err := Adapt(list)
	require.NoError(t, err)
	assert.Len(t, catalog, 4)

	for _, d := range list {
		assert.Equal(t, []any{"a", "b"}, d.InputSchema["required"])
	}

	res, err := s.CallTool(ctx, "multiply", map[string]any{"a": 1.5, "b": 4})
	require.NoError(t, err)
	assert.Equal(t, "6", res.Content)

	_, err = s.CallTool(ctx, "divide", map[string]any{"a": 1, "b": 0})
	var te *ToolExecutionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "division by zero", te.Message)

	_, err = s.CallTool(ctx, "add", map[string]any{"a": 1})
	require.ErrorAs(t, err, &te)
	assert.Contains(t, te.Message, `"b"`)
}

func TestToolServerViaRegistry(t *testing.T) {
	srv := NewToolServer("math", "v0.0.1", tools.NewArithmeticTools(), &sdkmcp.ServerOptions{PageSize: 2})
	s, _ := connectInMemory(t, srv, ServerConfig{})

	reg := tools.NewRegistry()
	require.NoError(t, RegisterTools(reg, s, s.Tools()))

	out, err := reg.Execute(context.Background(), "add", map[string]any{"a": 2, "b": 2})
	require.NoError(t, err)
	assert.Equal(t, "4", out)

	_, err = reg.Execute(context.Background(), "pow", nil)
	assert.ErrorIs(t, err, tools.ErrToolNotFound)
}
