package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/KamdynS/mcpchat/llm"
	"github.com/KamdynS/mcpchat/memory"
	"github.com/cockroachdb/errors"
	rds "github.com/redis/go-redis/v9"
)

// ConversationStore keeps each transcript in a Redis list
type ConversationStore struct {
	client *rds.Client
	prefix string
	ttl    time.Duration
}

// NewConversationStore wraps an existing client. A zero ttl keeps
// transcripts until they are cleared.
func NewConversationStore(client *rds.Client, prefix string, ttl time.Duration) *ConversationStore {
	return &ConversationStore{client: client, prefix: prefix, ttl: ttl}
}

// Open connects using a redis:// URL and verifies the connection
func Open(ctx context.Context, url, prefix string, ttl time.Duration) (*ConversationStore, error) {
	opts, err := rds.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	client := rds.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "ping redis")
	}
	return NewConversationStore(client, prefix, ttl), nil
}

func (cs *ConversationStore) keyPrefix() string {
	p := cs.prefix
	if p != "" {
		p += ":"
	}
	return p + "conversation:"
}

func (cs *ConversationStore) convKey(conversationID string) string {
	return fmt.Sprintf("%s%s", cs.keyPrefix(), conversationID)
}

// AppendMessage implements memory.ConversationStore interface
func (cs *ConversationStore) AppendMessage(ctx context.Context, conversationID string, msg llm.Message) error {
	key := cs.convKey(conversationID)
	b, err := json.Marshal(memory.NewMessage(msg))
	if err != nil {
		return errors.WithStack(err)
	}
	if err := cs.client.RPush(ctx, key, b).Err(); err != nil {
		return errors.Wrapf(err, "append to %s", key)
	}
	if cs.ttl > 0 {
		_ = cs.client.Expire(ctx, key, cs.ttl).Err()
	}
	return nil
}

// GetMessages implements memory.ConversationStore interface
func (cs *ConversationStore) GetMessages(ctx context.Context, conversationID string) ([]memory.Message, error) {
	key := cs.convKey(conversationID)
	vals, err := cs.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		if errors.Is(err, rds.Nil) {
			return []memory.Message{}, nil
		}
		return nil, errors.Wrapf(err, "read %s", key)
	}
	msgs := make([]memory.Message, 0, len(vals))
	for _, v := range vals {
		var m memory.Message
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			return nil, errors.Wrapf(err, "decode message in %s", key)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// ListConversations implements memory.ConversationStore interface
func (cs *ConversationStore) ListConversations(ctx context.Context) ([]string, error) {
	prefix := cs.keyPrefix()
	var cursor uint64
	ids := []string{}
	for {
		ks, cur, err := cs.client.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			return nil, errors.Wrap(err, "scan conversations")
		}
		for _, k := range ks {
			ids = append(ids, strings.TrimPrefix(k, prefix))
		}
		if cur == 0 {
			break
		}
		cursor = cur
	}
	sort.Strings(ids)
	return ids, nil
}

// ClearConversation implements memory.ConversationStore interface
func (cs *ConversationStore) ClearConversation(ctx context.Context, conversationID string) error {
	return cs.client.Del(ctx, cs.convKey(conversationID)).Err()
}

// Close implements memory.ConversationStore interface
func (cs *ConversationStore) Close() error {
	return cs.client.Close()
}

var _ memory.ConversationStore = (*ConversationStore)(nil)
