// Package core drives a conversation between an inference client and the
// tools it may call, one query at a time.
package core

import (
	"context"
	"time"

	"github.com/KamdynS/mcpchat/llm"
	"github.com/cockroachdb/errors"
)

// ErrRoundLimitExceeded is returned when the model keeps requesting tools
// after the configured number of inference rounds.
var ErrRoundLimitExceeded = errors.New("round limit exceeded")

// DefaultMaxRounds bounds a run when Config.MaxRounds is not set
const DefaultMaxRounds = 10

// State of a single orchestration run
type State int

const (
	StateIdle State = iota
	StateAwaitingInference
	StateAwaitingToolResults
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingInference:
		return "awaiting_inference"
	case StateAwaitingToolResults:
		return "awaiting_tool_results"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Runner answers one query
type Runner interface {
	Run(ctx context.Context, query string) (*RunResult, error)
}

// Config holds the limits of a run
type Config struct {
	// MaxRounds is the maximum number of inference calls per run
	MaxRounds int
	// SystemPrompt, when set, is the first message of every run
	SystemPrompt string
	// InferenceTimeout bounds each inference attempt
	InferenceTimeout time.Duration
	// ToolTimeout bounds each tool call
	ToolTimeout time.Duration
}

// ToolResult is the outcome of one tool call within a round
type ToolResult struct {
	CallID    string
	Name      string
	Arguments map[string]any
	Content   string
	Err       error
	Latency   time.Duration
}

// RunResult is a completed run
type RunResult struct {
	ConversationID string
	// Content is the final answer, exactly as returned by the model
	Content string
	// History is the full conversation including the final answer
	History []llm.Message
	// Rounds is the number of inference calls made
	Rounds int
	// ToolCalls is the number of tool calls executed
	ToolCalls int
	Usage     llm.Usage
}

// Observer receives progress notifications from a run
type Observer interface {
	OnStateChange(from, to State)
	OnToolCall(call llm.ToolCallRequest)
	OnToolResult(res ToolResult)
}

// ObserverFuncs adapts optional callbacks to Observer
type ObserverFuncs struct {
	StateChange func(from, to State)
	ToolCall    func(call llm.ToolCallRequest)
	ToolResult  func(res ToolResult)
}

func (f ObserverFuncs) OnStateChange(from, to State) {
	if f.StateChange != nil {
		f.StateChange(from, to)
	}
}

func (f ObserverFuncs) OnToolCall(call llm.ToolCallRequest) {
	if f.ToolCall != nil {
		f.ToolCall(call)
	}
}

func (f ObserverFuncs) OnToolResult(res ToolResult) {
	if f.ToolResult != nil {
		f.ToolResult(res)
	}
}

var _ Observer = ObserverFuncs{}
