package anthropic

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/KamdynS/mcpchat/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{
		APIKey:  "test-key",
		BaseURL: srv.URL + "/v1",
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestNewClient(t *testing.T) {
	c, err := NewClient(Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, llm.ModelClaude35Haiku, c.Model())
	assert.Equal(t, llm.ProviderAnthropic, c.Provider())
	assert.NoError(t, c.Validate())
	assert.NoError(t, c.Close())

	_, err = NewClient(Config{})
	assert.Error(t, err)
	_, err = NewClient(Config{APIKey: "k", Model: llm.ModelDeepSeekChat})
	assert.Error(t, err)
	_, err = NewClient(Config{APIKey: "k", Temperature: 1.5})
	assert.Error(t, err)
}

func TestChat_ToolUse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "be brief\n\nsystem in history", body["system"])

		tools := body["tools"].([]any)
		require.Len(t, tools, 1)
		assert.Equal(t, "add", tools[0].(map[string]any)["name"])
		assert.NotNil(t, tools[0].(map[string]any)["input_schema"])

		msgs := body["messages"].([]any)
		require.Len(t, msgs, 3)

		assistant := msgs[1].(map[string]any)
		assert.Equal(t, "assistant", assistant["role"])
		blocks := assistant["content"].([]any)
		require.Len(t, blocks, 3)
		assert.Equal(t, "text", blocks[0].(map[string]any)["type"])
		assert.Equal(t, "tool_use", blocks[1].(map[string]any)["type"])
		assert.Equal(t, "toolu_0", blocks[1].(map[string]any)["id"])
		assert.Equal(t, map[string]any{}, blocks[2].(map[string]any)["input"])

		results := msgs[2].(map[string]any)
		assert.Equal(t, "user", results["role"])
		resultBlocks := results["content"].([]any)
		require.Len(t, resultBlocks, 2, "consecutive tool results share one user turn")
		assert.Equal(t, "tool_result", resultBlocks[0].(map[string]any)["type"])
		assert.Equal(t, "toolu_0", resultBlocks[0].(map[string]any)["tool_use_id"])
		assert.Equal(t, "toolu_1", resultBlocks[1].(map[string]any)["tool_use_id"])

		writeJSON(w, http.StatusOK, `{
			"id":"msg_1","type":"message","role":"assistant","model":"claude-3-5-haiku-20241022",
			"content":[
				{"type":"text","text":"Adding."},
				{"type":"tool_use","id":"toolu_2","name":"add","input":{"a":4,"b":4}}
			],
			"stop_reason":"tool_use",
			"usage":{"input_tokens":20,"output_tokens":10}}`)
	})

	resp, err := c.Chat(context.Background(), &llm.ChatRequest{
		SystemPrompt: "be brief",
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "system in history"},
			{Role: llm.RoleUser, Content: "what is 2 + 2 and 3 + 3"},
			{Role: llm.RoleAssistant, Content: "Let me add.", ToolCalls: []llm.ToolCall{
				{ID: "toolu_0", Type: "function", Function: llm.Function{Name: "add", Arguments: `{"a":2,"b":2}`}},
				{ID: "toolu_1", Type: "function", Function: llm.Function{Name: "add", Arguments: ``}},
			}},
			{Role: llm.RoleTool, ToolCallID: "toolu_0", Name: "add", Content: "4"},
			{Role: llm.RoleTool, ToolCallID: "toolu_1", Name: "add", Content: "error: missing a"},
		},
		Tools: []llm.Tool{{Type: "function", Function: llm.ToolFunction{
			Name:       "add",
			Parameters: map[string]any{"type": "object"},
		}}},
		ToolChoice: "auto",
	})
	require.NoError(t, err)
	assert.Equal(t, "Adding.", resp.Content)
	assert.Equal(t, "tool_calls", resp.FinishReason)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "toolu_2", resp.ToolCalls[0].ID)
	assert.Equal(t, "add", resp.ToolCalls[0].Function.Name)
	assert.JSONEq(t, `{"a":4,"b":4}`, resp.ToolCalls[0].Function.Arguments)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 30, resp.Usage.TotalTokens)
}

func TestChat_Text(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{
			"id":"msg_2","type":"message","role":"assistant","model":"claude-3-5-haiku-20241022",
			"content":[{"type":"text","text":"2 + 2 is 4"}],
			"stop_reason":"end_turn",
			"usage":{"input_tokens":5,"output_tokens":5}}`)
	})

	resp, err := c.Chat(context.Background(), &llm.ChatRequest{Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}}})
	require.NoError(t, err)
	assert.Equal(t, "2 + 2 is 4", resp.Content)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Empty(t, resp.ToolCalls)
}

func TestChat_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		class  error
	}{
		{"auth", http.StatusUnauthorized, `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`, llm.ErrAuth},
		{"rate limit", http.StatusTooManyRequests, `{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`, llm.ErrRateLimit},
		{"overloaded", 529, `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`, llm.ErrUpstream},
		{"html", http.StatusBadGateway, `<html>bad gateway</html>`, llm.ErrUpstream},
		{"empty content", http.StatusOK, `{"id":"m","type":"message","role":"assistant","content":[],"stop_reason":"end_turn"}`, llm.ErrMalformedResponse},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tc.status, tc.body)
			})
			_, err := c.Chat(context.Background(), &llm.ChatRequest{Messages: []llm.Message{{Role: llm.RoleUser, Content: "x"}}})
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.class)
		})
	}
}

func TestChat_OverloadedIsRetryable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 529, `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`)
	})
	_, err := c.Chat(context.Background(), &llm.ChatRequest{Messages: []llm.Message{{Role: llm.RoleUser, Content: "x"}}})
	assert.True(t, llm.IsRetryableError(err))
}
