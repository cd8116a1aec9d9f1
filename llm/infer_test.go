package llm_test

import (
	"context"
	"testing"

	"github.com/KamdynS/mcpchat/llm"
	"github.com/KamdynS/mcpchat/llm/mockllm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newMock(t *testing.T) *mockllm.MockClient {
	ctrl := gomock.NewController(t)
	m := mockllm.NewMockClient(ctrl)
	m.EXPECT().Model().Return("deepseek-chat").AnyTimes()
	m.EXPECT().Provider().Return(llm.ProviderOpenAI).AnyTimes()
	return m
}

var addTool = llm.Tool{
	Type: "function",
	Function: llm.ToolFunction{
		Name:        "add",
		Description: "Add two numbers",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"a": map[string]any{"type": "number"},
				"b": map[string]any{"type": "number"},
			},
		},
	},
}

func TestInfer_Text(t *testing.T) {
	m := newMock(t)
	history := []llm.Message{{Role: llm.RoleUser, Content: "hello"}}

	m.EXPECT().Chat(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, req *llm.ChatRequest) (*llm.Response, error) {
			assert.Equal(t, history, req.Messages)
			assert.Equal(t, "deepseek-chat", req.Model)
			assert.Empty(t, req.Tools)
			assert.Nil(t, req.ToolChoice)
			return &llm.Response{Content: "hi there", FinishReason: "stop"}, nil
		})

	res, err := llm.Infer(context.Background(), m, history, nil)
	require.NoError(t, err)
	assert.Equal(t, llm.ResultText, res.Kind)
	assert.Equal(t, "hi there", res.Content)
	assert.Empty(t, res.Calls)
	assert.Equal(t, llm.Message{Role: llm.RoleAssistant, Content: "hi there"}, res.Assistant)
}

func TestInfer_ToolCalls(t *testing.T) {
	m := newMock(t)
	history := []llm.Message{{Role: llm.RoleUser, Content: "what is 2 + 2"}}
	calls := []llm.ToolCall{
		{ID: "call_1", Type: "function", Function: llm.Function{Name: "add", Arguments: `{"a":2,"b":2}`}},
		{ID: "call_2", Type: "function", Function: llm.Function{Name: "add", Arguments: ""}},
	}

	m.EXPECT().Chat(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, req *llm.ChatRequest) (*llm.Response, error) {
			require.Len(t, req.Tools, 1)
			assert.Equal(t, "add", req.Tools[0].Function.Name)
			assert.Equal(t, "auto", req.ToolChoice)
			return &llm.Response{Content: "let me add", FinishReason: "tool_calls", ToolCalls: calls}, nil
		})

	res, err := llm.Infer(context.Background(), m, history, []llm.Tool{addTool})
	require.NoError(t, err)
	assert.Equal(t, llm.ResultToolCalls, res.Kind)
	assert.Equal(t, "let me add", res.AssistantContent)
	require.Len(t, res.Calls, 2)
	assert.Equal(t, llm.ToolCallRequest{ID: "call_1", Name: "add", Arguments: map[string]any{"a": 2.0, "b": 2.0}}, res.Calls[0])
	assert.Equal(t, map[string]any{}, res.Calls[1].Arguments)
	assert.Equal(t, calls, res.Assistant.ToolCalls)
	assert.Equal(t, llm.RoleAssistant, res.Assistant.Role)
}

func TestInfer_MalformedArguments(t *testing.T) {
	tests := []struct {
		name string
		args string
	}{
		{"not json", `{"a":`},
		{"array", `[1,2]`},
		{"string", `"2+2"`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := newMock(t)
			m.EXPECT().Chat(gomock.Any(), gomock.Any()).Return(&llm.Response{
				ToolCalls: []llm.ToolCall{{ID: "c", Type: "function", Function: llm.Function{Name: "add", Arguments: tc.args}}},
			}, nil)

			_, err := llm.Infer(context.Background(), m, nil, []llm.Tool{addTool})
			require.Error(t, err)
			assert.ErrorIs(t, err, llm.ErrMalformedResponse)
		})
	}
}

func TestInfer_MissingToolCalls(t *testing.T) {
	m := newMock(t)
	m.EXPECT().Chat(gomock.Any(), gomock.Any()).Return(&llm.Response{FinishReason: "tool_calls"}, nil)

	_, err := llm.Infer(context.Background(), m, nil, nil)
	assert.ErrorIs(t, err, llm.ErrMalformedResponse)
}

func TestInfer_NilResponse(t *testing.T) {
	m := newMock(t)
	m.EXPECT().Chat(gomock.Any(), gomock.Any()).Return(nil, nil)

	_, err := llm.Infer(context.Background(), m, nil, nil)
	assert.ErrorIs(t, err, llm.ErrMalformedResponse)
}

func TestInfer_PropagatesClientError(t *testing.T) {
	m := newMock(t)
	m.EXPECT().Chat(gomock.Any(), gomock.Any()).Return(nil, llm.ParseHTTPError(llm.ProviderOpenAI, 401, ""))

	_, err := llm.Infer(context.Background(), m, nil, nil)
	assert.ErrorIs(t, err, llm.ErrAuth)
}

func TestDecodeArguments(t *testing.T) {
	args, err := llm.DecodeArguments(" null ")
	require.NoError(t, err)
	assert.Empty(t, args)

	args, err = llm.DecodeArguments(`{"x":"y"}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": "y"}, args)
}
