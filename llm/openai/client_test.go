package openai

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

func TestNewClient_Defaults(t *testing.T) {
	c, err := NewClient(Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, llm.ModelDeepSeekChat, c.Model())
	assert.Equal(t, llm.ProviderOpenAI, c.Provider())
	assert.Equal(t, DefaultBaseURL, c.config.BaseURL)
	assert.Equal(t, 1000, c.config.MaxTokens)
	assert.NoError(t, c.Validate())
	assert.NoError(t, c.Close())
}

func TestNewClient_Invalid(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing key", Config{}},
		{"anthropic model", Config{APIKey: "k", Model: llm.ModelClaude35Haiku}},
		{"temperature", Config{APIKey: "k", Temperature: 3}},
		{"max tokens", Config{APIKey: "k", MaxTokens: -1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewClient(tc.cfg)
			assert.Error(t, err)
		})
	}
}

func TestChat_Text(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "deepseek-chat", body["model"])
		assert.EqualValues(t, 1000, body["max_tokens"])
		assert.NotContains(t, body, "tools")

		msgs := body["messages"].([]any)
		require.Len(t, msgs, 2)
		assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
		assert.Equal(t, "hello", msgs[1].(map[string]any)["content"])

		writeJSON(w, http.StatusOK, `{
			"id":"cmpl-1","object":"chat.completion","created":1,"model":"deepseek-chat",
			"choices":[{"index":0,"message":{"role":"assistant","content":"hi there"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":10,"completion_tokens":2,"total_tokens":12}}`)
	})

	resp, err := c.Chat(context.Background(), &llm.ChatRequest{
		SystemPrompt: "be brief",
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: "hello"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "hi there", resp.Content)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Empty(t, resp.ToolCalls)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 12, resp.Usage.TotalTokens)
	assert.Greater(t, resp.Usage.Cost, 0.0)
	assert.Equal(t, "cmpl-1", resp.Meta["id"])
}

func TestChat_ToolRoundTrip(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		tools := body["tools"].([]any)
		require.Len(t, tools, 1)
		fn := tools[0].(map[string]any)["function"].(map[string]any)
		assert.Equal(t, "add", fn["name"])
		assert.Equal(t, "auto", body["tool_choice"])

		msgs := body["messages"].([]any)
		require.Len(t, msgs, 3)
		assistant := msgs[1].(map[string]any)
		assert.Equal(t, "assistant", assistant["role"])
		calls := assistant["tool_calls"].([]any)
		require.Len(t, calls, 1)
		assert.Equal(t, "call_0", calls[0].(map[string]any)["id"])

		tool := msgs[2].(map[string]any)
		assert.Equal(t, "tool", tool["role"])
		assert.Equal(t, "call_0", tool["tool_call_id"])
		assert.Equal(t, "4", tool["content"])

		writeJSON(w, http.StatusOK, `{
			"id":"cmpl-2","object":"chat.completion","created":1,"model":"deepseek-chat",
			"choices":[{"index":0,"message":{"role":"assistant","content":"",
				"tool_calls":[{"id":"call_1","type":"function","function":{"name":"add","arguments":"{\"a\":4,\"b\":1}"}}]},
				"finish_reason":"tool_calls"}]}`)
	})

	resp, err := c.Chat(context.Background(), &llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: "what is 2 + 2"},
			{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{{ID: "call_0", Type: "function", Function: llm.Function{Name: "add", Arguments: `{"a":2,"b":2}`}}}},
			{Role: llm.RoleTool, Name: "add", ToolCallID: "call_0", Content: "4"},
		},
		Tools: []llm.Tool{{Type: "function", Function: llm.ToolFunction{
			Name:       "add",
			Parameters: map[string]any{"type": "object"},
		}}},
		ToolChoice: "auto",
	})
	require.NoError(t, err)
	assert.Equal(t, "tool_calls", resp.FinishReason)
	assert.Nil(t, resp.Usage)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, llm.ToolCall{ID: "call_1", Type: "function", Function: llm.Function{Name: "add", Arguments: `{"a":4,"b":1}`}}, resp.ToolCalls[0])
}

func TestChat_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		class  error
		errTyp llm.ErrorType
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"Authentication Fails","type":"authentication_error","code":"invalid_api_key"}}`, llm.ErrAuth, llm.ErrorTypeAuthentication},
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"Rate limit reached. Please try again in 1.5s","type":"requests","code":"rate_limit_exceeded"}}`, llm.ErrRateLimit, llm.ErrorTypeRateLimit},
		{"server error", http.StatusInternalServerError, `{"error":{"message":"internal","type":"server_error"}}`, llm.ErrUpstream, llm.ErrorTypeServerError},
		{"gateway html", http.StatusBadGateway, `<html>bad gateway</html>`, llm.ErrUpstream, llm.ErrorTypeServerError},
		{"insufficient balance", http.StatusPaymentRequired, `{"error":{"message":"Insufficient Balance","type":"unknown_error"}}`, llm.ErrUpstream, llm.ErrorTypeInsufficientQuota},
		{"no choices", http.StatusOK, `{"id":"x","object":"chat.completion","choices":[]}`, llm.ErrMalformedResponse, llm.ErrorTypeMalformedResponse},
		{"invalid json", http.StatusOK, `{`, llm.ErrMalformedResponse, llm.ErrorTypeMalformedResponse},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tc.status, tc.body)
			})

			_, err := c.Chat(context.Background(), &llm.ChatRequest{Messages: []llm.Message{{Role: llm.RoleUser, Content: "x"}}})
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.class)

			llmErr, ok := llm.IsLLMError(err)
			require.True(t, ok)
			assert.Equal(t, tc.errTyp, llmErr.Type)
		})
	}
}

func TestChat_RetryAfterFromMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusTooManyRequests, `{"error":{"message":"Please try again in 1.5s","code":"rate_limit_exceeded"}}`)
	})

	_, err := c.Chat(context.Background(), &llm.ChatRequest{})
	llmErr, ok := llm.IsLLMError(err)
	require.True(t, ok)
	assert.Equal(t, 2, llmErr.RetryAfter)
	assert.Equal(t, "rate_limit_exceeded", llmErr.Code)
	assert.True(t, llmErr.IsRetryable())
}

func TestChat_Timeout(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Chat(ctx, &llm.ChatRequest{})
	llmErr, ok := llm.IsLLMError(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, llm.ErrorTypeTimeout, llmErr.Type)
	assert.True(t, llm.IsRetryableError(err))
}

func TestChat_Canceled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{}`)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Chat(ctx, &llm.ChatRequest{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestChat_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewClient(Config{APIKey: "k", BaseURL: url, Timeout: time.Second})
	require.NoError(t, err)

	_, err = c.Chat(context.Background(), &llm.ChatRequest{})
	llmErr, ok := llm.IsLLMError(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, llm.ErrorTypeConnectionError, llmErr.Type)
	assert.ErrorIs(t, err, llm.ErrUpstream)
}
