package observability

import (
	"sync"
	"time"
)

// Metrics defines the interface for collecting conversation metrics
type Metrics interface {
	// IncrementRequests increments the inference request counter
	IncrementRequests(labels map[string]string)

	// RecordLatency records inference or tool latency
	RecordLatency(duration time.Duration, labels map[string]string)

	// IncrementTokensUsed increments token usage counter
	IncrementTokensUsed(tokens int, labels map[string]string)

	// RecordError increments error counter
	RecordError(errorType string, labels map[string]string)

	// IncrementToolCalls increments the tool invocation counter
	IncrementToolCalls(tool string, labels map[string]string)

	// SetActiveRuns sets the gauge for in-flight conversation runs
	SetActiveRuns(count int)
}

// NoOpMetrics is a no-operation implementation of Metrics
type NoOpMetrics struct{}

// IncrementRequests implements Metrics interface
func (n *NoOpMetrics) IncrementRequests(labels map[string]string) {}

// RecordLatency implements Metrics interface
func (n *NoOpMetrics) RecordLatency(duration time.Duration, labels map[string]string) {}

// IncrementTokensUsed implements Metrics interface
func (n *NoOpMetrics) IncrementTokensUsed(tokens int, labels map[string]string) {}

// RecordError implements Metrics interface
func (n *NoOpMetrics) RecordError(errorType string, labels map[string]string) {}

// IncrementToolCalls implements Metrics interface
func (n *NoOpMetrics) IncrementToolCalls(tool string, labels map[string]string) {}

// SetActiveRuns implements Metrics interface
func (n *NoOpMetrics) SetActiveRuns(count int) {}

// DefaultMetrics is a simple in-memory metrics collector
type DefaultMetrics struct {
	mu           sync.Mutex
	requests     int64
	totalLatency time.Duration
	tokensUsed   int64
	errors       map[string]int64
	toolCalls    map[string]int64
	activeRuns   int
}

// NewDefaultMetrics creates a new DefaultMetrics instance
func NewDefaultMetrics() *DefaultMetrics {
	return &DefaultMetrics{
		errors:    make(map[string]int64),
		toolCalls: make(map[string]int64),
	}
}

// IncrementRequests implements Metrics interface
func (m *DefaultMetrics) IncrementRequests(labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests++
}

// RecordLatency implements Metrics interface
func (m *DefaultMetrics) RecordLatency(duration time.Duration, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalLatency += duration
}

// IncrementTokensUsed implements Metrics interface
func (m *DefaultMetrics) IncrementTokensUsed(tokens int, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokensUsed += int64(tokens)
}

// RecordError implements Metrics interface
func (m *DefaultMetrics) RecordError(errorType string, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[errorType]++
}

// IncrementToolCalls implements Metrics interface
func (m *DefaultMetrics) IncrementToolCalls(tool string, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toolCalls[tool]++
}

// SetActiveRuns implements Metrics interface
func (m *DefaultMetrics) SetActiveRuns(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activeRuns = count
}

// Stats is a snapshot of DefaultMetrics
type Stats struct {
	Requests     int64            `json:"requests"`
	TotalLatency time.Duration    `json:"total_latency"`
	TokensUsed   int64            `json:"tokens_used"`
	Errors       map[string]int64 `json:"errors"`
	ToolCalls    map[string]int64 `json:"tool_calls"`
	ActiveRuns   int              `json:"active_runs"`
}

// GetStats returns a copy of the current statistics
func (m *DefaultMetrics) GetStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Stats{
		Requests:     m.requests,
		TotalLatency: m.totalLatency,
		TokensUsed:   m.tokensUsed,
		Errors:       make(map[string]int64, len(m.errors)),
		ToolCalls:    make(map[string]int64, len(m.toolCalls)),
		ActiveRuns:   m.activeRuns,
	}
	for k, v := range m.errors {
		s.Errors[k] = v
	}
	for k, v := range m.toolCalls {
		s.ToolCalls[k] = v
	}
	return s
}

// Ensure implementations satisfy the interface
var _ Metrics = (*NoOpMetrics)(nil)
var _ Metrics = (*DefaultMetrics)(nil)
