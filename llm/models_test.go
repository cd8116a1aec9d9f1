package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetModel(t *testing.T) {
	tests := []struct {
		model            string
		expectedExists   bool
		expectedProvider Provider
	}{
		{ModelDeepSeekChat, true, ProviderOpenAI},
		{ModelDeepSeekReasoner, true, ProviderOpenAI},
		{ModelGPT4o, true, ProviderOpenAI},
		{ModelGPT4oMini, true, ProviderOpenAI},
		{ModelClaude35Sonnet, true, ProviderAnthropic},
		{ModelClaude35Haiku, true, ProviderAnthropic},
		{"invalid-model", false, ""},
	}

	for _, tc := range tests {
		t.Run(tc.model, func(t *testing.T) {
			model, err := GetModel(tc.model)
			if !tc.expectedExists {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.model, model.Name)
			assert.Equal(t, tc.expectedProvider, model.Provider)
			assert.Positive(t, model.ContextSize)
			assert.True(t, model.Capabilities.Chat)
		})
	}
}

func TestDefaultModelSupportsTools(t *testing.T) {
	model, err := GetModel(DefaultModel)
	require.NoError(t, err)
	assert.True(t, model.Capabilities.FunctionCalling)
}

func TestGetModelsByProvider(t *testing.T) {
	openai := GetModelsByProvider(ProviderOpenAI)
	require.Len(t, openai, 4)
	for i := 1; i < len(openai); i++ {
		assert.Less(t, openai[i-1].Name, openai[i].Name)
	}
	assert.Len(t, GetModelsByProvider(ProviderAnthropic), 2)
	assert.Empty(t, GetModelsByProvider(Provider("unknown")))
}

func TestValidateProviderModel(t *testing.T) {
	assert.NoError(t, ValidateProviderModel(ProviderOpenAI, ModelDeepSeekChat))
	assert.NoError(t, ValidateProviderModel(ProviderOpenAI, "some-local-model"))
	assert.NoError(t, ValidateProviderModel(ProviderAnthropic, ModelClaude35Haiku))
	assert.Error(t, ValidateProviderModel(ProviderAnthropic, ModelDeepSeekChat))
	assert.Error(t, ValidateProviderModel(ProviderOpenAI, ModelClaude35Sonnet))
}

func TestModel_EstimateCost(t *testing.T) {
	model := Model{InputCost: 1.0, OutputCost: 2.0}
	assert.InDelta(t, 0.003, model.EstimateCost(1000, 1000), 1e-9)
	assert.Equal(t, 0.0, model.EstimateCost(0, 0))
}

func TestModel_String(t *testing.T) {
	model, err := GetModel(ModelDeepSeekChat)
	require.NoError(t, err)
	assert.Equal(t, "DeepSeek Chat (deepseek-chat) - openai", model.String())
}
