package llm

import (
	"fmt"
	"sort"

	"github.com/cockroachdb/errors"
)

// Model represents an LLM model with its properties
type Model struct {
	Provider     Provider     `json:"provider"`
	Name         string       `json:"name"`
	DisplayName  string       `json:"display_name"`
	ContextSize  int          `json:"context_size"`
	InputCost    float64      `json:"input_cost"`  // Cost per 1M input tokens in USD
	OutputCost   float64      `json:"output_cost"` // Cost per 1M output tokens in USD
	Capabilities Capabilities `json:"capabilities"`
}

// Provider represents LLM providers
type Provider string

const (
	// ProviderOpenAI covers every endpoint speaking the OpenAI chat completions
	// protocol, DeepSeek included.
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// Capabilities represents what a model can do
type Capabilities struct {
	Chat            bool `json:"chat"`
	FunctionCalling bool `json:"function_calling"`
	Reasoning       bool `json:"reasoning"`
}

// DeepSeek models (OpenAI-compatible endpoint)
const (
	ModelDeepSeekChat     = "deepseek-chat"
	ModelDeepSeekReasoner = "deepseek-reasoner"
)

// OpenAI Models
const (
	ModelGPT4o     = "gpt-4o"
	ModelGPT4oMini = "gpt-4o-mini"
)

// Anthropic Models
const (
	ModelClaude35Sonnet = "claude-3-5-sonnet-20241022"
	ModelClaude35Haiku  = "claude-3-5-haiku-20241022"
)

// DefaultModel is used when no model is configured
const DefaultModel = ModelDeepSeekChat

// AvailableModels contains the models with known metadata. Endpoints may serve
// models outside this table; those are accepted without cost accounting.
var AvailableModels = map[string]Model{
	ModelDeepSeekChat: {
		Provider:     ProviderOpenAI,
		Name:         ModelDeepSeekChat,
		DisplayName:  "DeepSeek Chat",
		ContextSize:  64000,
		InputCost:    0.27,
		OutputCost:   1.10,
		Capabilities: Capabilities{Chat: true, FunctionCalling: true},
	},
	ModelDeepSeekReasoner: {
		Provider:     ProviderOpenAI,
		Name:         ModelDeepSeekReasoner,
		DisplayName:  "DeepSeek Reasoner",
		ContextSize:  64000,
		InputCost:    0.55,
		OutputCost:   2.19,
		Capabilities: Capabilities{Chat: true, Reasoning: true},
	},
	ModelGPT4o: {
		Provider:     ProviderOpenAI,
		Name:         ModelGPT4o,
		DisplayName:  "GPT-4o",
		ContextSize:  128000,
		InputCost:    5.0,
		OutputCost:   15.0,
		Capabilities: Capabilities{Chat: true, FunctionCalling: true},
	},
	ModelGPT4oMini: {
		Provider:     ProviderOpenAI,
		Name:         ModelGPT4oMini,
		DisplayName:  "GPT-4o Mini",
		ContextSize:  128000,
		InputCost:    0.15,
		OutputCost:   0.60,
		Capabilities: Capabilities{Chat: true, FunctionCalling: true},
	},
	ModelClaude35Sonnet: {
		Provider:     ProviderAnthropic,
		Name:         ModelClaude35Sonnet,
		DisplayName:  "Claude 3.5 Sonnet",
		ContextSize:  200000,
		InputCost:    3.0,
		OutputCost:   15.0,
		Capabilities: Capabilities{Chat: true, FunctionCalling: true},
	},
	ModelClaude35Haiku: {
		Provider:     ProviderAnthropic,
		Name:         ModelClaude35Haiku,
		DisplayName:  "Claude 3.5 Haiku",
		ContextSize:  200000,
		InputCost:    0.80,
		OutputCost:   4.0,
		Capabilities: Capabilities{Chat: true, FunctionCalling: true},
	},
}

// GetModel returns model metadata for a given model name
func GetModel(name string) (Model, error) {
	model, exists := AvailableModels[name]
	if !exists {
		return Model{}, errors.Newf("unknown model: %s", name)
	}
	return model, nil
}

// GetModelsByProvider returns all known models for a given provider, sorted by name
func GetModelsByProvider(provider Provider) []Model {
	var models []Model
	for _, model := range AvailableModels {
		if model.Provider == provider {
			models = append(models, model)
		}
	}
	sort.Slice(models, func(i, j int) bool { return models[i].Name < models[j].Name })
	return models
}

// ValidateProviderModel rejects a known model that belongs to another provider.
// Unknown model names are allowed.
func ValidateProviderModel(provider Provider, name string) error {
	model, err := GetModel(name)
	if err != nil {
		return nil
	}
	if model.Provider != provider {
		return errors.Newf("model %s is not a %s model", name, provider)
	}
	return nil
}

// String returns a human-readable representation of the model
func (m Model) String() string {
	return fmt.Sprintf("%s (%s) - %s", m.DisplayName, m.Name, m.Provider)
}

// EstimateCost estimates the cost for given token counts
func (m Model) EstimateCost(inputTokens, outputTokens int) float64 {
	inputCost := (float64(inputTokens) / 1000000) * m.InputCost
	outputCost := (float64(outputTokens) / 1000000) * m.OutputCost
	return inputCost + outputCost
}
