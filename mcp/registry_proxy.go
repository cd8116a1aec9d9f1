package mcp

import (
	"context"

	"github.com/KamdynS/mcpchat/tools"
	"github.com/cockroachdb/errors"
)

// RegisterTools registers a proxy for every descriptor into the local
// registry, so tool requests from the model are dispatched to the server.
func RegisterTools(reg tools.Registry, caller ToolCaller, descs []ToolDescriptor) error {
	if reg == nil || caller == nil {
		return errors.New("nil registry or caller")
	}
	for _, d := range descs {
		proxy := &toolProxy{caller: caller, name: d.Name, desc: d.Description, schema: d.InputSchema}
		if err := reg.Register(proxy); err != nil {
			return err
		}
	}
	return nil
}

type toolProxy struct {
	caller ToolCaller
	name   string
	desc   string
	schema map[string]any
}

func (m *toolProxy) Name() string           { return m.name }
func (m *toolProxy) Description() string    { return m.desc }
func (m *toolProxy) Schema() map[string]any { return normalizeSchema(m.schema) }
func (m *toolProxy) Execute(ctx context.Context, args map[string]any) (string, error) {
	res, err := m.caller.CallTool(ctx, m.name, args)
	if err != nil {
		return "", err
	}
	return res.Content, nil
}

var _ tools.Tool = (*toolProxy)(nil)
