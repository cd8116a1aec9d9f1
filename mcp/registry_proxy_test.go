package mcp

import (
	"context"
	"testing"

	"github.com/KamdynS/mcpchat/tools"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCaller struct {
	calls []string
	err   error
}

func (f *fakeCaller) CallTool(ctx context.Context, name string, args map[string]any) (*ToolCallResult, error) {
	f.calls = append(f.calls, name)
	if f.err != nil {
		return nil, f.err
	}
	return &ToolCallResult{Name: name, Content: name + ":" + args["in"].(string)}, nil
}

func TestRegisterToolsAndExecute(t *testing.T) {
	reg := tools.NewRegistry()
	fc := &fakeCaller{}
	descs := []ToolDescriptor{
		{Name: "echo", Description: "d", InputSchema: map[string]any{"type": "object"}},
		{Name: "upper"},
	}
	require.NoError(t, RegisterTools(reg, fc, descs))
	assert.Equal(t, []string{"echo", "upper"}, reg.List())

	tool, ok := reg.Get("upper")
	require.True(t, ok)
	assert.Equal(t, "object", tool.Schema()["type"])

	out, err := reg.Execute(context.Background(), "echo", map[string]any{"in": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "echo:hi", out)
	assert.Equal(t, []string{"echo"}, fc.calls)
}

func TestRegisterToolsNil(t *testing.T) {
	assert.Error(t, RegisterTools(nil, nil, nil))
}

func TestRegisterToolsDuplicate(t *testing.T) {
	reg := tools.NewRegistry()
	err := RegisterTools(reg, &fakeCaller{}, []ToolDescriptor{{Name: "a"}, {Name: "a"}})
	assert.Error(t, err)
}

func TestProxyExecuteError(t *testing.T) {
	reg := tools.NewRegistry()
	fc := &fakeCaller{err: &ToolExecutionError{Tool: "bad", Message: "boom"}}
	require.NoError(t, RegisterTools(reg, fc, []ToolDescriptor{{Name: "bad"}}))

	_, err := reg.Execute(context.Background(), "bad", map[string]any{"in": "x"})
	var te *ToolExecutionError
	assert.True(t, errors.As(err, &te))
	assert.Equal(t, "boom", te.Message)
}
