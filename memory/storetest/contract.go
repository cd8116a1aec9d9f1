// Package storetest holds the behaviour every memory.ConversationStore
// backend must satisfy.
package storetest

import (
	"context"
	"sync"
	"testing"

	"github.com/KamdynS/mcpchat/llm"
	"github.com/KamdynS/mcpchat/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunConversationContract exercises a fresh store
func RunConversationContract(t *testing.T, cs memory.ConversationStore) {
	t.Helper()
	ctx := context.Background()

	id := memory.NewConversationID()
	other := memory.NewConversationID()

	history := []llm.Message{
		{Role: llm.RoleUser, Content: "what is 2 + 2"},
		{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{{
			ID:       "call_1",
			Type:     "function",
			Function: llm.Function{Name: "add", Arguments: `{"a":2,"b":2}`},
		}}},
		{Role: llm.RoleTool, Name: "add", ToolCallID: "call_1", Content: "4"},
		{Role: llm.RoleAssistant, Content: "2 + 2 = 4"},
	}
	for _, m := range history {
		require.NoError(t, cs.AppendMessage(ctx, id, m))
	}
	require.NoError(t, cs.AppendMessage(ctx, other, llm.Message{Role: llm.RoleUser, Content: "hello"}))

	msgs, err := cs.GetMessages(ctx, id)
	require.NoError(t, err)
	require.Len(t, msgs, len(history))
	for i, m := range msgs {
		assert.Equal(t, history[i], m.LLM(), "message %d", i)
		assert.NotZero(t, m.Timestamp)
	}

	ids, err := cs.ListConversations(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, id)
	assert.Contains(t, ids, other)

	require.NoError(t, cs.ClearConversation(ctx, id))
	msgs, err = cs.GetMessages(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	msgs, err = cs.GetMessages(ctx, other)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
	require.NoError(t, cs.ClearConversation(ctx, other))

	msgs, err = cs.GetMessages(ctx, memory.NewConversationID())
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

// RunConcurrentAppend checks that concurrent appends are not lost
func RunConcurrentAppend(t *testing.T, cs memory.ConversationStore) {
	t.Helper()
	ctx := context.Background()
	id := memory.NewConversationID()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, cs.AppendMessage(ctx, id, llm.Message{Role: llm.RoleUser, Content: "x"}))
		}()
	}
	wg.Wait()

	msgs, err := cs.GetMessages(ctx, id)
	require.NoError(t, err)
	assert.Len(t, msgs, n)
	require.NoError(t, cs.ClearConversation(ctx, id))
}
