package inmemory

import (
	"context"
	"sort"
	"sync"

	"github.com/KamdynS/mcpchat/llm"
	"github.com/KamdynS/mcpchat/memory"
)

// ConversationStore keeps transcripts in process memory
type ConversationStore struct {
	mu   sync.RWMutex
	data map[string][]memory.Message
}

// NewConversationStore creates a new in-memory conversation store
func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		data: make(map[string][]memory.Message),
	}
}

// AppendMessage implements memory.ConversationStore interface
func (cs *ConversationStore) AppendMessage(ctx context.Context, conversationID string, msg llm.Message) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.data[conversationID] = append(cs.data[conversationID], memory.NewMessage(msg))
	return nil
}

// GetMessages implements memory.ConversationStore interface
func (cs *ConversationStore) GetMessages(ctx context.Context, conversationID string) ([]memory.Message, error) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	msgs := cs.data[conversationID]
	out := make([]memory.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// ListConversations implements memory.ConversationStore interface
func (cs *ConversationStore) ListConversations(ctx context.Context) ([]string, error) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	ids := make([]string, 0, len(cs.data))
	for id := range cs.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// ClearConversation implements memory.ConversationStore interface
func (cs *ConversationStore) ClearConversation(ctx context.Context, conversationID string) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	delete(cs.data, conversationID)
	return nil
}

// Close implements memory.ConversationStore interface
func (cs *ConversationStore) Close() error {
	return nil
}

var _ memory.ConversationStore = (*ConversationStore)(nil)
