package core

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/KamdynS/mcpchat/llm"
	"github.com/cockroachdb/errors"
)

// ErrBlocked is returned when a guardrail rejects a query or a tool call
var ErrBlocked = errors.New("blocked by guardrails")

// Guardrails inspects queries before a run starts and tool calls before
// they are dispatched.
type Guardrails interface {
	// CheckQuery may rewrite the query or reject the run
	CheckQuery(ctx context.Context, query string) (string, error)
	// CheckToolCall rejects a single call; the rejection is reported to the
	// model like any other tool failure
	CheckToolCall(ctx context.Context, call llm.ToolCallRequest) error
}

// SimpleGuardrails provides minimal input filtering and tool allow/deny checks.
type SimpleGuardrails struct {
	// Deny if any of these substrings appear in the user input
	DenySubstrings []string
	// Max input length; longer queries are truncated
	MaxInputChars int
	// Tools the model may not call
	DenyTools []string
}

func (g *SimpleGuardrails) CheckQuery(ctx context.Context, query string) (string, error) {
	if g.MaxInputChars > 0 && utf8.RuneCountInString(query) > g.MaxInputChars {
		query = string([]rune(query)[:g.MaxInputChars])
	}
	lower := strings.ToLower(query)
	for _, s := range g.DenySubstrings {
		if s == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(s)) {
			return "", errors.WithMessagef(ErrBlocked, "query contains %q", s)
		}
	}
	return query, nil
}

func (g *SimpleGuardrails) CheckToolCall(ctx context.Context, call llm.ToolCallRequest) error {
	for _, name := range g.DenyTools {
		if name == call.Name {
			return errors.WithMessagef(ErrBlocked, "tool %q is not allowed", call.Name)
		}
	}
	return nil
}

var _ Guardrails = (*SimpleGuardrails)(nil)
