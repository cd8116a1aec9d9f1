package llm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
)

// ResultKind tells whether an inference produced a final answer or tool requests.
type ResultKind int

const (
	// ResultText is a final answer with no tool requests.
	ResultText ResultKind = iota
	// ResultToolCalls asks the caller to run one or more tools.
	ResultToolCalls
)

// String returns the kind name
func (k ResultKind) String() string {
	switch k {
	case ResultText:
		return "text"
	case ResultToolCalls:
		return "tool_calls"
	default:
		return "unknown"
	}
}

// ToolCallRequest is a decoded tool call from the model.
type ToolCallRequest struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Result is the outcome of a single inference exchange.
type Result struct {
	Kind ResultKind

	// Content is the final answer when Kind is ResultText.
	Content string

	// Calls and AssistantContent are set when Kind is ResultToolCalls.
	Calls            []ToolCallRequest
	AssistantContent string

	// Assistant is the message to append to the history for this round.
	Assistant Message

	Usage *Usage
}

// Infer performs one request with the full history and, when tools is not
// empty, the tool catalog. It never retries.
func Infer(ctx context.Context, client Client, history []Message, tools []Tool) (*Result, error) {
	req := &ChatRequest{
		Messages: history,
		Model:    client.Model(),
	}
	if len(tools) > 0 {
		req.Tools = tools
		req.ToolChoice = "auto"
	}

	resp, err := client.Chat(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, NewMalformedResponseError(client.Provider(), "empty response")
	}

	return decodeResponse(client.Provider(), resp)
}

func decodeResponse(provider Provider, resp *Response) (*Result, error) {
	res := &Result{
		Usage: resp.Usage,
		Assistant: Message{
			Role:    RoleAssistant,
			Content: resp.Content,
		},
	}

	if len(resp.ToolCalls) == 0 {
		if resp.FinishReason == "tool_calls" {
			return nil, NewMalformedResponseError(provider, "finish reason is tool_calls but no tool calls were returned")
		}
		res.Kind = ResultText
		res.Content = resp.Content
		return res, nil
	}

	res.Kind = ResultToolCalls
	res.AssistantContent = resp.Content
	res.Assistant.ToolCalls = resp.ToolCalls
	res.Calls = make([]ToolCallRequest, 0, len(resp.ToolCalls))
	for i, tc := range resp.ToolCalls {
		if tc.Function.Name == "" {
			return nil, NewMalformedResponseError(provider, "tool call %d has no function name", i)
		}
		args, err := DecodeArguments(tc.Function.Arguments)
		if err != nil {
			return nil, NewMalformedResponseError(provider, "tool call %d (%s): %s", i, tc.Function.Name, err.Error())
		}
		res.Calls = append(res.Calls, ToolCallRequest{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}

	logger.KV(xlog.DEBUG,
		"status", "tool_calls",
		"count", len(res.Calls),
		"provider", provider)

	return res, nil
}

// DecodeArguments parses the JSON argument string of a tool call. An empty
// string is an empty object; anything that is not a JSON object is an error.
func DecodeArguments(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, errors.Wrap(err, "arguments are not a JSON object")
	}
	if args == nil {
		// literal null
		return map[string]any{}, nil
	}
	return args, nil
}
