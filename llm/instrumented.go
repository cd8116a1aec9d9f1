package llm

import (
	"context"
	"time"

	"github.com/KamdynS/mcpchat/observability"
	"github.com/effective-security/xlog"
)

// InstrumentedClient wraps a Client with tracing, metrics and logging.
type InstrumentedClient struct {
	inner Client
}

// NewInstrumentedClient returns c wrapped with observability hooks.
func NewInstrumentedClient(c Client) *InstrumentedClient {
	return &InstrumentedClient{inner: c}
}

// Chat implements Client
func (c *InstrumentedClient) Chat(ctx context.Context, req *ChatRequest) (*Response, error) {
	span, ctx := observability.TracerImpl.StartSpan(ctx, "llm.chat")
	defer span.End()

	labels := map[string]string{
		"provider": string(c.inner.Provider()),
		"model":    c.inner.Model(),
	}
	span.SetAttribute(observability.AttrProvider, labels["provider"])
	span.SetAttribute(observability.AttrModel, labels["model"])
	if id, ok := observability.RunIDFromContext(ctx); ok {
		span.SetAttribute(observability.AttrRunID, id)
	}

	observability.MetricsImpl.IncrementRequests(labels)
	start := time.Now()
	resp, err := c.inner.Chat(ctx, req)
	elapsed := time.Since(start)
	observability.MetricsImpl.RecordLatency(elapsed, labels)

	if err != nil {
		errType := string(ErrorTypeUnknown)
		if llmErr, ok := IsLLMError(err); ok {
			errType = string(llmErr.Type)
		}
		observability.MetricsImpl.RecordError(errType, labels)
		span.SetStatus(observability.StatusCodeError, err.Error())
		logger.ContextKV(ctx, xlog.WARNING,
			"status", "chat_failed",
			"provider", labels["provider"],
			"model", labels["model"],
			"elapsed", elapsed.String(),
			"err", err.Error())
		return nil, err
	}

	if resp != nil {
		span.SetAttribute(observability.AttrFinishReason, resp.FinishReason)
		if resp.Usage != nil {
			span.SetAttribute(observability.AttrTokensInput, resp.Usage.InputTokens)
			span.SetAttribute(observability.AttrTokensOutput, resp.Usage.OutputTokens)
			observability.MetricsImpl.IncrementTokensUsed(resp.Usage.TotalTokens, labels)
		}
	}
	span.SetStatus(observability.StatusCodeOk, "")

	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "chat",
		"provider", labels["provider"],
		"model", labels["model"],
		"elapsed", elapsed.String())

	return resp, nil
}

// Model implements Client
func (c *InstrumentedClient) Model() string { return c.inner.Model() }

// Provider implements Client
func (c *InstrumentedClient) Provider() Provider { return c.inner.Provider() }

// Validate implements Client
func (c *InstrumentedClient) Validate() error { return c.inner.Validate() }

// Close implements Client
func (c *InstrumentedClient) Close() error { return c.inner.Close() }

var _ Client = (*InstrumentedClient)(nil)
