// Package memory persists conversation transcripts.
package memory

import (
	"context"
	"time"

	"github.com/KamdynS/mcpchat/llm"
	"github.com/google/uuid"
)

// ConversationStore records the messages of a conversation in append order
type ConversationStore interface {
	// AppendMessage adds a message to the conversation
	AppendMessage(ctx context.Context, conversationID string, msg llm.Message) error

	// GetMessages retrieves conversation history in append order
	GetMessages(ctx context.Context, conversationID string) ([]Message, error)

	// ListConversations returns the IDs of stored conversations
	ListConversations(ctx context.Context) ([]string, error)

	// ClearConversation removes all messages for a conversation
	ClearConversation(ctx context.Context, conversationID string) error

	// Close releases the backend connection
	Close() error
}

// Message represents a stored conversation message
type Message struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	Name       string         `json:"name,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	ToolCalls  []llm.ToolCall `json:"tool_calls,omitempty"`
	Timestamp  int64          `json:"timestamp"`
}

// NewMessage stamps msg with the current time
func NewMessage(msg llm.Message) Message {
	return Message{
		Role:       msg.Role,
		Content:    msg.Content,
		Name:       msg.Name,
		ToolCallID: msg.ToolCallID,
		ToolCalls:  msg.ToolCalls,
		Timestamp:  time.Now().Unix(),
	}
}

// LLM converts the stored message back into a history entry
func (m Message) LLM() llm.Message {
	return llm.Message{
		Role:       m.Role,
		Content:    m.Content,
		Name:       m.Name,
		ToolCallID: m.ToolCallID,
		ToolCalls:  m.ToolCalls,
	}
}

// NewConversationID returns a fresh random conversation ID
func NewConversationID() string {
	return uuid.NewString()
}
