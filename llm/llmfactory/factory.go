// Package llmfactory builds the configured inference client.
package llmfactory

import (
	"strings"

	"github.com/KamdynS/mcpchat/config"
	"github.com/KamdynS/mcpchat/llm"
	"github.com/KamdynS/mcpchat/llm/anthropic"
	"github.com/KamdynS/mcpchat/llm/openai"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/KamdynS/mcpchat/llm", "llmfactory")

// NewLLM is a wrapper for CreateLLM to allow for overriding the default implementation.
var NewLLM = CreateLLM

// CreateLLM returns an instrumented client for the configured provider
func CreateLLM(cfg config.LLMConfig) (llm.Client, error) {
	var (
		client llm.Client
		err    error
	)

	provider := llm.Provider(strings.ToLower(cfg.Provider))
	switch provider {
	case llm.ProviderOpenAI, "":
		client, err = newOpenAI(cfg)
	case llm.ProviderAnthropic:
		client, err = newAnthropic(cfg)
	default:
		return nil, errors.Errorf("unsupported provider type: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	logger.KV(xlog.INFO,
		"provider", client.Provider(),
		"model", client.Model(),
		"endpoint", cfg.EndpointURL)

	return llm.NewInstrumentedClient(client), nil
}

func newOpenAI(cfg config.LLMConfig) (llm.Client, error) {
	oc := openai.Config{
		APIKey:    cfg.APIKey,
		Model:     cfg.ModelName,
		BaseURL:   cfg.EndpointURL,
		MaxTokens: cfg.MaxTokens,
		Timeout:   cfg.Timeout,
	}
	if cfg.Temperature != nil {
		oc.Temperature = *cfg.Temperature
	}
	c, err := openai.NewClient(oc)
	if err != nil {
		return nil, errors.Wrap(err, "create openai client")
	}
	return c, nil
}

func newAnthropic(cfg config.LLMConfig) (llm.Client, error) {
	ac := anthropic.Config{
		APIKey:    cfg.APIKey,
		Model:     cfg.ModelName,
		BaseURL:   cfg.EndpointURL,
		MaxTokens: cfg.MaxTokens,
		Timeout:   cfg.Timeout,
	}
	if cfg.Temperature != nil {
		ac.Temperature = *cfg.Temperature
	}
	c, err := anthropic.NewClient(ac)
	if err != nil {
		return nil, errors.Wrap(err, "create anthropic client")
	}
	return c, nil
}
