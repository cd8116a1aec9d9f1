package mcp

import (
	"fmt"

	"github.com/KamdynS/mcpchat/tools"
	"github.com/cockroachdb/errors"
)

var (
	// ErrConnection is returned when the server process cannot be started or
	// the initialize handshake fails or times out.
	ErrConnection = errors.New("mcp connection failed")
	// ErrSession is returned for calls on a session that is not ready, or whose
	// transport closed while a call was in flight.
	ErrSession = errors.New("mcp session error")
	// ErrSchema is the class of *SchemaError.
	ErrSchema = errors.New("malformed tool schema")
)

// ToolNotFoundError is returned by CallTool when the name is not in the
// session's catalog. It matches tools.ErrToolNotFound with errors.Is.
type ToolNotFoundError struct {
	Name string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("tool %q not found", e.Name)
}

// Is matches tools.ErrToolNotFound
func (e *ToolNotFoundError) Is(target error) bool {
	return target == tools.ErrToolNotFound
}

// ToolExecutionError carries the error text reported by the tool itself.
type ToolExecutionError struct {
	Tool    string
	Message string
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %s failed: %s", e.Tool, e.Message)
}

// SchemaError reports a tool descriptor that cannot be offered to the model.
type SchemaError struct {
	Tool   string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Tool == "" {
		return "malformed tool descriptor: " + e.Reason
	}
	return fmt.Sprintf("malformed schema for tool %q: %s", e.Tool, e.Reason)
}

// Is matches ErrSchema
func (e *SchemaError) Is(target error) bool {
	return target == ErrSchema
}
