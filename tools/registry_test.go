package tools

import (
	"context"
	"testing"
	"time"

	obs "github.com/KamdynS/mcpchat/observability"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dummyTool struct {
	name, desc string
	out        string
	err        error
}

func (d dummyTool) Name() string           { return d.name }
func (d dummyTool) Description() string    { return d.desc }
func (d dummyTool) Schema() map[string]any { return map[string]any{"type": "object"} }
func (d dummyTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	if d.err != nil {
		return "", d.err
	}
	return d.out + ":" + args["in"].(string), nil
}

func TestRegistryRegisterGetListExecute(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(dummyTool{name: "b", desc: "B", out: "OB"}))
	require.NoError(t, r.Register(dummyTool{name: "a", desc: "A", out: "OA"}))
	assert.Error(t, r.Register(dummyTool{name: "a"}))
	assert.Error(t, r.Register(dummyTool{}))

	_, ok := r.Get("a")
	assert.True(t, ok)
	assert.Equal(t, []string{"b", "a"}, r.List())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	out, err := r.Execute(ctx, "a", map[string]any{"in": "x"})
	require.NoError(t, err)
	assert.Equal(t, "OA:x", out)
}

func TestRegistryExecuteErrors(t *testing.T) {
	r := NewRegistry()
	_, err := r.Execute(context.Background(), "none", nil)
	assert.ErrorIs(t, err, ErrToolNotFound)
	assert.Contains(t, err.Error(), `"none"`)

	boom := errors.New("boom")
	require.NoError(t, r.Register(dummyTool{name: "e", err: boom}))
	_, err = r.Execute(context.Background(), "e", nil)
	assert.ErrorIs(t, err, boom)
}

func TestRegistryExecuteRecordsMetrics(t *testing.T) {
	m := obs.NewDefaultMetrics()
	old := obs.MetricsImpl
	obs.SetMetrics(m)
	t.Cleanup(func() { obs.SetMetrics(old) })

	r := NewRegistry()
	for _, tool := range NewArithmeticTools() {
		require.NoError(t, r.Register(tool))
	}
	_, err := r.Execute(context.Background(), OpAdd, map[string]any{"a": 1.0, "b": 2.0})
	require.NoError(t, err)
	_, err = r.Execute(context.Background(), OpDivide, map[string]any{"a": 1.0, "b": 0.0})
	require.Error(t, err)

	stats := m.GetStats()
	assert.Equal(t, int64(1), stats.ToolCalls[OpAdd])
	assert.Equal(t, int64(1), stats.ToolCalls[OpDivide])
	assert.Equal(t, int64(1), stats.Errors["tool_error"])
}
