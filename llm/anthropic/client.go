// Package anthropic implements llm.Client on the Anthropic Messages API.
package anthropic

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/KamdynS/mcpchat/llm"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/liushuangls/go-anthropic/v2"
)

var logger = xlog.NewPackageLogger("github.com/KamdynS/mcpchat/llm", "anthropic")

// Client implements the llm.Client interface for Anthropic Claude
type Client struct {
	client     *anthropic.Client
	httpClient *http.Client
	config     Config
}

// Config holds Anthropic-specific configuration
type Config struct {
	APIKey      string        `json:"api_key"`
	Model       string        `json:"model"` // e.g., "claude-3-5-sonnet-20241022"
	BaseURL     string        `json:"base_url,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Timeout     time.Duration `json:"timeout,omitempty"`

	// HTTPClient overrides the transport, mostly for tests.
	HTTPClient *http.Client `json:"-"`
}

// NewClient creates a new Anthropic client
func NewClient(config Config) (*Client, error) {
	if config.Model == "" {
		config.Model = llm.ModelClaude35Haiku
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 1000
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   config.Timeout,
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
		}
	}

	opts := []anthropic.ClientOption{anthropic.WithHTTPClient(httpClient)}
	if config.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(config.BaseURL))
	}

	return &Client{
		client:     anthropic.NewClient(config.APIKey, opts...),
		httpClient: httpClient,
		config:     config,
	}, nil
}

// validateConfig validates the Anthropic configuration
func validateConfig(config Config) error {
	if config.APIKey == "" {
		return errors.New("API key is required")
	}
	if err := llm.ValidateProviderModel(llm.ProviderAnthropic, config.Model); err != nil {
		return err
	}
	if config.Temperature < 0 || config.Temperature > 1 {
		return errors.New("temperature must be between 0 and 1")
	}
	if config.MaxTokens < 0 {
		return errors.New("max_tokens must be non-negative")
	}
	return nil
}

// Chat implements llm.Client interface. It performs exactly one request.
func (c *Client) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.Response, error) {
	start := time.Now()

	messages, systemPrompt := convertMessages(req)

	model := c.config.Model
	if req.Model != "" {
		model = req.Model
	}

	anthReq := anthropic.MessagesRequest{
		Model:     anthropic.Model(model),
		Messages:  messages,
		MaxTokens: c.config.MaxTokens,
		System:    systemPrompt,
	}

	if req.Temperature != nil {
		t := float32(*req.Temperature)
		anthReq.Temperature = &t
	} else if c.config.Temperature > 0 {
		t := float32(c.config.Temperature)
		anthReq.Temperature = &t
	}

	if req.MaxTokens != nil {
		anthReq.MaxTokens = *req.MaxTokens
	}

	if len(req.Tools) > 0 {
		tools := make([]anthropic.ToolDefinition, len(req.Tools))
		for i, tool := range req.Tools {
			schema := tool.Function.Parameters
			if schema == nil {
				schema = map[string]any{"type": "object"}
			}
			tools[i] = anthropic.ToolDefinition{
				Name:        tool.Function.Name,
				Description: tool.Function.Description,
				InputSchema: schema,
			}
		}
		anthReq.Tools = tools

		if choice, ok := req.ToolChoice.(string); ok && (choice == "auto" || choice == "any") {
			anthReq.ToolChoice = &anthropic.ToolChoice{Type: choice}
		}
	}

	resp, err := c.client.CreateMessages(ctx, anthReq)
	if err != nil {
		return nil, c.convertError(err)
	}

	if len(resp.Content) == 0 {
		return nil, llm.NewMalformedResponseError(llm.ProviderAnthropic, "no content returned")
	}

	var content strings.Builder
	var toolCalls []llm.ToolCall
	for _, block := range resp.Content {
		switch block.Type {
		case anthropic.MessagesContentTypeText:
			if block.Text != nil {
				content.WriteString(*block.Text)
			}
		case anthropic.MessagesContentTypeToolUse:
			if block.MessageContentToolUse == nil {
				return nil, llm.NewMalformedResponseError(llm.ProviderAnthropic, "tool_use block without payload")
			}
			args := string(block.MessageContentToolUse.Input)
			if args == "" {
				args = "{}"
			}
			toolCalls = append(toolCalls, llm.ToolCall{
				ID:   block.MessageContentToolUse.ID,
				Type: "function",
				Function: llm.Function{
					Name:      block.MessageContentToolUse.Name,
					Arguments: args,
				},
			})
		}
	}

	var usage *llm.Usage
	if resp.Usage.OutputTokens > 0 {
		usage = &llm.Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
			TotalTokens:  resp.Usage.InputTokens + resp.Usage.OutputTokens,
		}
		if modelInfo, err := llm.GetModel(model); err == nil {
			usage.Cost = modelInfo.EstimateCost(resp.Usage.InputTokens, resp.Usage.OutputTokens)
		}
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"model", model,
		"stop_reason", resp.StopReason,
		"tool_calls", len(toolCalls))

	return &llm.Response{
		Content:      content.String(),
		Role:         llm.RoleAssistant,
		Model:        model,
		Provider:     llm.ProviderAnthropic,
		Usage:        usage,
		FinishReason: finishReason(resp.StopReason),
		ToolCalls:    toolCalls,
		Meta: map[string]string{
			"id":   resp.ID,
			"type": string(resp.Type),
		},
		Latency:   time.Since(start),
		Timestamp: start,
	}, nil
}

// convertMessages maps the history onto Anthropic messages. System messages
// are folded into the system prompt and consecutive tool results are grouped
// into one user turn, as the API requires.
func convertMessages(req *llm.ChatRequest) ([]anthropic.Message, string) {
	messages := make([]anthropic.Message, 0, len(req.Messages))
	systemPrompt := req.SystemPrompt

	for _, msg := range req.Messages {
		switch msg.Role {
		case llm.RoleSystem:
			if systemPrompt != "" {
				systemPrompt += "\n\n" + msg.Content
			} else {
				systemPrompt = msg.Content
			}
		case llm.RoleAssistant:
			var blocks []anthropic.MessageContent
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextMessageContent(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				input := json.RawMessage(tc.Function.Arguments)
				if len(strings.TrimSpace(tc.Function.Arguments)) == 0 {
					input = json.RawMessage("{}")
				}
				blocks = append(blocks, anthropic.NewToolUseMessageContent(tc.ID, tc.Function.Name, input))
			}
			if len(blocks) == 0 {
				blocks = append(blocks, anthropic.NewTextMessageContent(""))
			}
			messages = append(messages, anthropic.Message{Role: anthropic.RoleAssistant, Content: blocks})
		case llm.RoleTool:
			block := anthropic.NewToolResultMessageContent(msg.ToolCallID, msg.Content, false)
			if n := len(messages); n > 0 && messages[n-1].Role == anthropic.RoleUser && isToolResultTurn(messages[n-1]) {
				messages[n-1].Content = append(messages[n-1].Content, block)
				continue
			}
			messages = append(messages, anthropic.Message{Role: anthropic.RoleUser, Content: []anthropic.MessageContent{block}})
		default:
			messages = append(messages, anthropic.Message{
				Role:    anthropic.RoleUser,
				Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(msg.Content)},
			})
		}
	}
	return messages, systemPrompt
}

func isToolResultTurn(m anthropic.Message) bool {
	for _, c := range m.Content {
		if c.Type != anthropic.MessagesContentTypeToolResult {
			return false
		}
	}
	return len(m.Content) > 0
}

func finishReason(r anthropic.MessagesStopReason) string {
	switch r {
	case anthropic.MessagesStopReasonToolUse:
		return "tool_calls"
	case anthropic.MessagesStopReasonEndTurn, anthropic.MessagesStopReasonStopSequence:
		return "stop"
	case anthropic.MessagesStopReasonMaxTokens:
		return "length"
	default:
		return string(r)
	}
}

// apiErrorStatus maps Anthropic error types onto the HTTP status they are
// served with.
var apiErrorStatus = map[string]int{
	"invalid_request_error": http.StatusBadRequest,
	"authentication_error":  http.StatusUnauthorized,
	"permission_error":      http.StatusForbidden,
	"not_found_error":       http.StatusNotFound,
	"request_too_large":     http.StatusRequestEntityTooLarge,
	"rate_limit_error":      http.StatusTooManyRequests,
	"api_error":             http.StatusInternalServerError,
	"overloaded_error":      http.StatusServiceUnavailable,
}

// convertError converts Anthropic SDK errors to LLM errors
func (c *Client) convertError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *anthropic.APIError
	if errors.As(err, &apiErr) {
		status, ok := apiErrorStatus[string(apiErr.Type)]
		if !ok {
			status = http.StatusInternalServerError
		}
		llmErr := llm.ParseHTTPError(llm.ProviderAnthropic, status, apiErr.Message)
		llmErr.Code = string(apiErr.Type)
		llmErr.Model = c.config.Model
		llmErr.Cause = err
		return llmErr
	}

	var reqErr *anthropic.RequestError
	if errors.As(err, &reqErr) {
		llmErr := llm.ParseHTTPError(llm.ProviderAnthropic, reqErr.StatusCode, "")
		llmErr.Model = c.config.Model
		llmErr.Cause = err
		return llmErr
	}

	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return llm.NewLLMErrorWithCause(llm.ProviderAnthropic, llm.ErrorTypeTimeout, "request timeout", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return llm.NewLLMErrorWithCause(llm.ProviderAnthropic, llm.ErrorTypeTimeout, "request timeout", err)
		}
		return llm.NewLLMErrorWithCause(llm.ProviderAnthropic, llm.ErrorTypeConnectionError, "connection error", err)
	}

	return llm.NewLLMErrorWithCause(llm.ProviderAnthropic, llm.ErrorTypeMalformedResponse, err.Error(), err)
}

// Model implements llm.Client interface
func (c *Client) Model() string {
	return c.config.Model
}

// Provider implements llm.Client interface
func (c *Client) Provider() llm.Provider {
	return llm.ProviderAnthropic
}

// Validate implements llm.Client interface
func (c *Client) Validate() error {
	return validateConfig(c.config)
}

// Close releases idle pooled connections
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

var _ llm.Client = (*Client)(nil)
