// Package metricskey describes the metrics emitted by mcpchat and provides
// an observability.Metrics implementation that reports them to the global
// metrics sink.
package metricskey

import (
	"time"

	obs "github.com/KamdynS/mcpchat/observability"
	"github.com/effective-security/metrics"
)

// Stats
var (
	StatsLLMRequests = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_requests",
		Help:         "stats_llm_requests provides total inference requests",
		RequiredTags: []string{"provider", "model"},
	}

	StatsLLMTotalTokens = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_total_tokens",
		Help:         "stats_llm_total_tokens provides total tokens sent and received from the model",
		RequiredTags: []string{"provider", "model"},
	}

	StatsToolCalls = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls",
		Help:         "stats_tool_calls provides total tool invocations",
		RequiredTags: []string{"tool"},
	}

	StatsErrors = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_errors",
		Help:         "stats_errors provides total errors by type and component",
		RequiredTags: []string{"type", "component"},
	}

	StatsRunsActive = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_runs_active",
		Help:         "stats_runs_active provides the change in in-flight conversation runs",
		RequiredTags: []string{"state"},
	}
)

// Perf
var (
	PerfLLMCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_llm_call",
		Help:         "perf_llm_call provides duration of inference calls",
		RequiredTags: []string{"provider", "model"},
	}

	PerfToolCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_tool_call",
		Help:         "perf_tool_call provides duration of tool call",
		RequiredTags: []string{"tool"},
	}
)

// Metrics returns slice of metrics from this repo
// keep sorted by name
var Metrics = []*metrics.Describe{
	&PerfLLMCall,
	&PerfToolCall,
	&StatsErrors,
	&StatsLLMRequests,
	&StatsLLMTotalTokens,
	&StatsRunsActive,
	&StatsToolCalls,
}

// Recorder implements observability.Metrics on top of the metric
// descriptions above. Labels select the metric: "tool_name" marks a tool
// call, "provider" and "model" mark an inference call.
type Recorder struct{}

// NewRecorder returns a Recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) IncrementRequests(labels map[string]string) {
	StatsLLMRequests.IncrCounter(1, labels["provider"], labels["model"])
}

func (r *Recorder) RecordLatency(duration time.Duration, labels map[string]string) {
	start := time.Now().Add(-duration)
	if tool, ok := labels["tool_name"]; ok {
		PerfToolCall.MeasureSince(start, tool)
		return
	}
	PerfLLMCall.MeasureSince(start, labels["provider"], labels["model"])
}

func (r *Recorder) IncrementTokensUsed(tokens int, labels map[string]string) {
	StatsLLMTotalTokens.IncrCounter(float64(tokens), labels["provider"], labels["model"])
}

func (r *Recorder) RecordError(errorType string, labels map[string]string) {
	StatsErrors.IncrCounter(1, errorType, component(labels))
}

func (r *Recorder) IncrementToolCalls(tool string, _ map[string]string) {
	StatsToolCalls.IncrCounter(1, tool)
}

func (r *Recorder) SetActiveRuns(count int) {
	// counts are 0 or 1 per process; record the transition
	state := "stopped"
	if count > 0 {
		state = "started"
	}
	StatsRunsActive.IncrCounter(1, state)
}

func component(labels map[string]string) string {
	switch {
	case labels["component"] != "":
		return labels["component"]
	case labels["tool_name"] != "":
		return "tool"
	case labels["provider"] != "":
		return "llm." + labels["provider"]
	default:
		return "unknown"
	}
}

var _ obs.Metrics = (*Recorder)(nil)
