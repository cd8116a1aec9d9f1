package mcp

import (
	"github.com/KamdynS/mcpchat/llm"
)

// Adapt converts server tool descriptors into the function-tool format
// offered to the model. Catalog order is preserved.
func Adapt(descs []ToolDescriptor) ([]llm.Tool, error) {
	seen := make(map[string]struct{}, len(descs))
	out := make([]llm.Tool, 0, len(descs))
	for _, d := range descs {
		if d.Name == "" {
			return nil, &SchemaError{Reason: "tool without a name"}
		}
		if _, dup := seen[d.Name]; dup {
			return nil, &SchemaError{Tool: d.Name, Reason: "duplicate tool name"}
		}
		seen[d.Name] = struct{}{}

		if err := checkSchema(d.InputSchema); err != nil {
			return nil, &SchemaError{Tool: d.Name, Reason: err.Error()}
		}

		out = append(out, llm.Tool{
			Type: "function",
			Function: llm.ToolFunction{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  normalizeSchema(d.InputSchema),
			},
		})
	}
	return out, nil
}

type schemaReason string

func (r schemaReason) Error() string { return string(r) }

func checkSchema(schema map[string]any) error {
	if schema == nil {
		return nil
	}
	if t, ok := schema["type"]; ok {
		if s, _ := t.(string); s != "object" {
			return schemaReason("input schema type must be \"object\"")
		}
	}
	if p, ok := schema["properties"]; ok && p != nil {
		if _, isMap := p.(map[string]any); !isMap {
			return schemaReason("input schema properties must be an object")
		}
	}
	if r, ok := schema["required"]; ok && r != nil {
		list, isList := r.([]any)
		if !isList {
			return schemaReason("input schema required must be an array")
		}
		for _, v := range list {
			if _, isStr := v.(string); !isStr {
				return schemaReason("input schema required entries must be strings")
			}
		}
	}
	return nil
}

// normalizeSchema returns a copy of schema with "type": "object" set, and an
// empty object schema when none was declared.
func normalizeSchema(schema map[string]any) map[string]any {
	out := make(map[string]any, len(schema)+1)
	for k, v := range schema {
		out[k] = v
	}
	if _, ok := out["type"]; !ok {
		out["type"] = "object"
	}
	if _, ok := out["properties"]; !ok {
		out["properties"] = map[string]any{}
	}
	return out
}
