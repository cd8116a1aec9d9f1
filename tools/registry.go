package tools

import (
	"context"
	"sync"
	"time"

	obs "github.com/KamdynS/mcpchat/observability"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/KamdynS/mcpchat", "tools")

// ErrToolNotFound is returned when no tool is registered under the requested name.
var ErrToolNotFound = errors.New("tool not found")

// Tool defines the interface for callable tools
type Tool interface {
	// Name returns the tool's name for identification
	Name() string

	// Description returns a human-readable description of what the tool does
	Description() string

	// Execute runs the tool with decoded arguments and returns its text result
	Execute(ctx context.Context, args map[string]any) (string, error)

	// Schema returns the JSON schema for the tool's input
	Schema() map[string]any
}

// Registry maps tool names to handlers, resolved at call time
type Registry interface {
	// Register adds a tool to the registry
	Register(tool Tool) error

	// Get retrieves a tool by name
	Get(name string) (Tool, bool)

	// List returns all tool names in registration order
	List() []string

	// Execute runs a tool by name with the given arguments
	Execute(ctx context.Context, name string, args map[string]any) (string, error)
}

// DefaultRegistry is a simple in-memory tool registry
type DefaultRegistry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry creates a new DefaultRegistry
func NewRegistry() *DefaultRegistry {
	return &DefaultRegistry{
		tools: make(map[string]Tool),
	}
}

// Register implements Registry interface
func (r *DefaultRegistry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Name()
	if name == "" {
		return errors.New("tool name is required")
	}
	if _, exists := r.tools[name]; exists {
		return errors.Newf("tool %s already registered", name)
	}

	r.tools[name] = tool
	r.order = append(r.order, name)
	return nil
}

// Get implements Registry interface
func (r *DefaultRegistry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, exists := r.tools[name]
	return tool, exists
}

// List implements Registry interface
func (r *DefaultRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string(nil), r.order...)
}

// Execute implements Registry interface
func (r *DefaultRegistry) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	tool, exists := r.Get(name)
	if !exists {
		return "", errors.Wrapf(ErrToolNotFound, "tool %q", name)
	}

	start := time.Now()
	span, ctx := obs.TracerImpl.StartSpan(ctx, "tool.execute")
	span.SetAttribute(obs.AttrToolName, name)
	defer span.End()

	labels := map[string]string{
		"tool_name": name,
	}
	obs.MetricsImpl.IncrementToolCalls(name, labels)

	result, err := tool.Execute(ctx, args)
	latency := time.Since(start)

	obs.MetricsImpl.RecordLatency(latency, labels)
	if err != nil {
		obs.MetricsImpl.RecordError("tool_error", labels)
		span.SetStatus(obs.StatusCodeError, err.Error())
		logger.ContextKV(ctx, xlog.DEBUG,
			"tool", name,
			"elapsed", latency.String(),
			"err", err.Error())
		return "", err
	}
	span.SetStatus(obs.StatusCodeOk, "")
	logger.ContextKV(ctx, xlog.DEBUG,
		"tool", name,
		"elapsed", latency.String())
	return result, nil
}

var _ Registry = (*DefaultRegistry)(nil)
