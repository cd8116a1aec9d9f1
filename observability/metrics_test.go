package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNoOpMetrics(t *testing.T) {
	var m Metrics = &NoOpMetrics{}
	m.IncrementRequests(nil)
	m.RecordLatency(time.Millisecond, nil)
	m.IncrementTokensUsed(10, nil)
	m.RecordError("x", nil)
	m.IncrementToolCalls("add", nil)
	m.SetActiveRuns(1)
}

func TestDefaultMetrics(t *testing.T) {
	m := NewDefaultMetrics()
	m.IncrementRequests(map[string]string{"provider": "openai"})
	m.RecordLatency(2*time.Millisecond, nil)
	m.IncrementTokensUsed(5, nil)
	m.RecordError("boom", nil)
	m.IncrementToolCalls("add", nil)
	m.IncrementToolCalls("add", nil)
	m.SetActiveRuns(1)

	s := m.GetStats()
	assert.Equal(t, int64(1), s.Requests)
	assert.Equal(t, 2*time.Millisecond, s.TotalLatency)
	assert.Equal(t, int64(5), s.TokensUsed)
	assert.Equal(t, int64(1), s.Errors["boom"])
	assert.Equal(t, int64(2), s.ToolCalls["add"])
	assert.Equal(t, 1, s.ActiveRuns)

	// snapshot is detached
	s.ToolCalls["add"] = 100
	assert.Equal(t, int64(2), m.GetStats().ToolCalls["add"])
}
