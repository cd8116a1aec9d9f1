package memory

import (
	"testing"

	"github.com/KamdynS/mcpchat/llm"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageRoundTrip(t *testing.T) {
	in := llm.Message{
		Role:       llm.RoleTool,
		Content:    "4",
		Name:       "add",
		ToolCallID: "call_1",
	}
	m := NewMessage(in)
	assert.NotZero(t, m.Timestamp)
	assert.Equal(t, in, m.LLM())
}

func TestNewConversationID(t *testing.T) {
	a := NewConversationID()
	b := NewConversationID()
	assert.NotEqual(t, a, b)
	_, err := uuid.Parse(a)
	require.NoError(t, err)
}
