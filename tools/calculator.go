package tools

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/cockroachdb/errors"
)

// ErrDivisionByZero is returned by the divide operation when b is zero.
var ErrDivisionByZero = errors.New("division by zero")

// Arithmetic operation names
const (
	OpAdd      = "add"
	OpSubtract = "subtract"
	OpMultiply = "multiply"
	OpDivide   = "divide"
)

var opDescriptions = map[string]string{
	OpAdd:      "Add two numbers",
	OpSubtract: "Subtract b from a",
	OpMultiply: "Multiply two numbers",
	OpDivide:   "Divide a by b",
}

// ArithmeticOps lists the supported operations in catalog order
var ArithmeticOps = []string{OpAdd, OpSubtract, OpMultiply, OpDivide}

// Compute applies op to a and b.
func Compute(op string, a, b float64) (float64, error) {
	switch op {
	case OpAdd:
		return a + b, nil
	case OpSubtract:
		return a - b, nil
	case OpMultiply:
		return a * b, nil
	case OpDivide:
		if b == 0 {
			return 0, ErrDivisionByZero
		}
		return a / b, nil
	default:
		return 0, errors.Newf("unknown operation %q", op)
	}
}

// FormatNumber renders a result without trailing zeros, so 4.0 prints as "4".
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ArithmeticTool is a two-operand arithmetic tool taking numbers "a" and "b".
type ArithmeticTool struct {
	Op string
}

// NewArithmeticTools returns one tool per supported operation
func NewArithmeticTools() []Tool {
	list := make([]Tool, 0, len(ArithmeticOps))
	for _, op := range ArithmeticOps {
		list = append(list, &ArithmeticTool{Op: op})
	}
	return list
}

func (c *ArithmeticTool) Name() string { return c.Op }

func (c *ArithmeticTool) Description() string {
	return opDescriptions[c.Op]
}

func (c *ArithmeticTool) Schema() map[string]any {
	return ArithmeticSchema()
}

// ArithmeticSchema is the input schema shared by all arithmetic tools
func ArithmeticSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"a": map[string]any{"type": "number"},
			"b": map[string]any{"type": "number"},
		},
		"required": []any{"a", "b"},
	}
}

func (c *ArithmeticTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	a, err := NumberArg(args, "a")
	if err != nil {
		return "", err
	}
	b, err := NumberArg(args, "b")
	if err != nil {
		return "", err
	}
	res, err := Compute(c.Op, a, b)
	if err != nil {
		return "", err
	}
	return FormatNumber(res), nil
}

// NumberArg extracts a numeric argument decoded from JSON.
func NumberArg(args map[string]any, key string) (float64, error) {
	v, ok := args[key]
	if !ok {
		return 0, errors.Newf("missing argument %q", key)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		// some models quote numbers
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, errors.Newf("argument %q must be a number", key)
		}
		return f, nil
	default:
		return 0, errors.Newf("argument %q must be a number", key)
	}
}

var _ Tool = (*ArithmeticTool)(nil)
