// Package openai implements llm.Client for endpoints speaking the OpenAI chat
// completions protocol, such as DeepSeek.
package openai

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/KamdynS/mcpchat/llm"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/sashabaranov/go-openai"
)

var logger = xlog.NewPackageLogger("github.com/KamdynS/mcpchat/llm", "openai")

// DefaultBaseURL is the DeepSeek OpenAI-compatible endpoint.
const DefaultBaseURL = "https://api.deepseek.com/v1"

// Client implements the llm.Client interface for OpenAI-compatible endpoints
type Client struct {
	client     *openai.Client
	httpClient *http.Client
	config     Config
}

// Config holds OpenAI-specific configuration
type Config struct {
	APIKey       string        `json:"api_key"`
	Model        string        `json:"model"` // e.g., "deepseek-chat", "gpt-4o"
	BaseURL      string        `json:"base_url,omitempty"`
	Temperature  float64       `json:"temperature,omitempty"`
	MaxTokens    int           `json:"max_tokens,omitempty"`
	Timeout      time.Duration `json:"timeout,omitempty"`
	Organization string        `json:"organization,omitempty"`

	// HTTPClient overrides the transport, mostly for tests.
	HTTPClient *http.Client `json:"-"`
}

// NewClient creates a new OpenAI-compatible client
func NewClient(config Config) (*Client, error) {
	if config.Model == "" {
		config.Model = llm.DefaultModel
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
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

	openaiConfig := openai.DefaultConfig(config.APIKey)
	openaiConfig.BaseURL = config.BaseURL
	if config.Organization != "" {
		openaiConfig.OrgID = config.Organization
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   config.Timeout,
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
		}
	}
	openaiConfig.HTTPClient = httpClient

	return &Client{
		client:     openai.NewClientWithConfig(openaiConfig),
		httpClient: httpClient,
		config:     config,
	}, nil
}

// validateConfig validates the OpenAI configuration
func validateConfig(config Config) error {
	if config.APIKey == "" {
		return errors.New("API key is required")
	}
	if err := llm.ValidateProviderModel(llm.ProviderOpenAI, config.Model); err != nil {
		return err
	}
	if config.Temperature < 0 || config.Temperature > 2 {
		return errors.New("temperature must be between 0 and 2")
	}
	if config.MaxTokens < 0 {
		return errors.New("max_tokens must be non-negative")
	}
	return nil
}

// Chat implements llm.Client interface. It performs exactly one request.
func (c *Client) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.Response, error) {
	start := time.Now()

	model := c.config.Model
	if req.Model != "" {
		model = req.Model
	}

	oaiReq := openai.ChatCompletionRequest{
		Model:    model,
		Messages: convertMessages(req),
	}

	if req.Temperature != nil {
		oaiReq.Temperature = float32(*req.Temperature)
	} else {
		oaiReq.Temperature = float32(c.config.Temperature)
	}

	if req.MaxTokens != nil {
		oaiReq.MaxTokens = *req.MaxTokens
	} else if c.config.MaxTokens > 0 {
		oaiReq.MaxTokens = c.config.MaxTokens
	}

	if len(req.Tools) > 0 {
		tools := make([]openai.Tool, len(req.Tools))
		for i, tool := range req.Tools {
			tools[i] = openai.Tool{
				Type: openai.ToolTypeFunction,
				Function: &openai.FunctionDefinition{
					Name:        tool.Function.Name,
					Description: tool.Function.Description,
					Parameters:  tool.Function.Parameters,
				},
			}
		}
		oaiReq.Tools = tools

		if req.ToolChoice != nil {
			oaiReq.ToolChoice = req.ToolChoice
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, oaiReq)
	if err != nil {
		return nil, c.convertError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, llm.NewMalformedResponseError(llm.ProviderOpenAI, "no choices returned")
	}

	choice := resp.Choices[0]

	var toolCalls []llm.ToolCall
	if len(choice.Message.ToolCalls) > 0 {
		toolCalls = make([]llm.ToolCall, len(choice.Message.ToolCalls))
		for i, tc := range choice.Message.ToolCalls {
			typ := string(tc.Type)
			if typ == "" {
				typ = string(openai.ToolTypeFunction)
			}
			toolCalls[i] = llm.ToolCall{
				ID:   tc.ID,
				Type: typ,
				Function: llm.Function{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			}
		}
	}

	var usage *llm.Usage
	if resp.Usage.TotalTokens > 0 {
		usage = &llm.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		}
		if modelInfo, err := llm.GetModel(model); err == nil {
			usage.Cost = modelInfo.EstimateCost(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
		}
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"model", model,
		"finish_reason", choice.FinishReason,
		"tool_calls", len(toolCalls))

	return &llm.Response{
		Content:      choice.Message.Content,
		Role:         llm.RoleAssistant,
		Model:        model,
		Provider:     llm.ProviderOpenAI,
		Usage:        usage,
		FinishReason: string(choice.FinishReason),
		ToolCalls:    toolCalls,
		Meta: map[string]string{
			"id":      resp.ID,
			"object":  resp.Object,
			"created": fmt.Sprintf("%d", resp.Created),
		},
		Latency:   time.Since(start),
		Timestamp: start,
	}, nil
}

func convertMessages(req *llm.ChatRequest) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)

	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}

	for _, msg := range req.Messages {
		oaiMsg := openai.ChatCompletionMessage{
			Content: msg.Content,
		}

		switch msg.Role {
		case llm.RoleSystem:
			oaiMsg.Role = openai.ChatMessageRoleSystem
		case llm.RoleUser:
			oaiMsg.Role = openai.ChatMessageRoleUser
		case llm.RoleAssistant:
			oaiMsg.Role = openai.ChatMessageRoleAssistant
			for _, tc := range msg.ToolCalls {
				oaiMsg.ToolCalls = append(oaiMsg.ToolCalls, openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Function.Name,
						Arguments: tc.Function.Arguments,
					},
				})
			}
		case llm.RoleTool:
			oaiMsg.Role = openai.ChatMessageRoleTool
			oaiMsg.ToolCallID = msg.ToolCallID
		default:
			oaiMsg.Role = openai.ChatMessageRoleUser
		}

		if msg.Name != "" && msg.Role != llm.RoleTool {
			oaiMsg.Name = msg.Name
		}

		messages = append(messages, oaiMsg)
	}
	return messages
}

var retryInRe = regexp.MustCompile(`(?i)try again in ([0-9]+(?:\.[0-9]+)?)s`)

// convertError converts OpenAI SDK errors to LLM errors
func (c *Client) convertError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		llmErr := llm.ParseHTTPError(llm.ProviderOpenAI, apiErr.HTTPStatusCode, apiErr.Message)
		if code, ok := apiErr.Code.(string); ok {
			llmErr.Code = code
		}
		if m := retryInRe.FindStringSubmatch(apiErr.Message); m != nil {
			if secs, perr := strconv.ParseFloat(m[1], 64); perr == nil {
				llmErr.RetryAfter = int(math.Ceil(secs))
			}
		}
		llmErr.Model = c.config.Model
		llmErr.Cause = err
		return llmErr
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		llmErr := llm.ParseHTTPError(llm.ProviderOpenAI, reqErr.HTTPStatusCode, string(reqErr.Body))
		llmErr.Model = c.config.Model
		llmErr.Cause = err
		return llmErr
	}

	if errors.Is(err, context.Canceled) {
		// cancellation is not an endpoint failure; callers check ctx.Err()
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return llm.NewLLMErrorWithCause(llm.ProviderOpenAI, llm.ErrorTypeTimeout, "request timeout", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return llm.NewLLMErrorWithCause(llm.ProviderOpenAI, llm.ErrorTypeTimeout, "request timeout", err)
		}
		return llm.NewLLMErrorWithCause(llm.ProviderOpenAI, llm.ErrorTypeConnectionError, "connection error", err)
	}

	// responses that could not be decoded surface as plain errors from the SDK
	return llm.NewLLMErrorWithCause(llm.ProviderOpenAI, llm.ErrorTypeMalformedResponse, err.Error(), err)
}

// Model implements llm.Client interface
func (c *Client) Model() string {
	return c.config.Model
}

// Provider implements llm.Client interface
func (c *Client) Provider() llm.Provider {
	return llm.ProviderOpenAI
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
