// Package postgres stores conversation transcripts in a Postgres table.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/KamdynS/mcpchat/llm"
	"github.com/KamdynS/mcpchat/memory"
	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultTable holds transcripts unless configured otherwise
const DefaultTable = "mcpchat_messages"

var validTable = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ConversationStore appends one row per message. Rows are ordered by a
// serial column so GetMessages returns append order.
//
// Table schema:
//
//	CREATE TABLE IF NOT EXISTS mcpchat_messages (
//	  seq bigserial PRIMARY KEY,
//	  conversation_id text NOT NULL,
//	  role text NOT NULL,
//	  content text NOT NULL,
//	  name text NOT NULL DEFAULT '',
//	  tool_call_id text NOT NULL DEFAULT '',
//	  tool_calls jsonb,
//	  created_at bigint NOT NULL
//	);
type ConversationStore struct {
	pool  *pgxpool.Pool
	table string
}

// New wraps an existing pool
func New(pool *pgxpool.Pool, table string) (*ConversationStore, error) {
	if table == "" {
		table = DefaultTable
	}
	if !validTable.MatchString(table) {
		return nil, errors.Newf("invalid table name %q", table)
	}
	return &ConversationStore{pool: pool, table: table}, nil
}

// Open connects to the database and creates the table if needed
func Open(ctx context.Context, dsn, table string) (*ConversationStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "connect postgres")
	}
	cs, err := New(pool, table)
	if err != nil {
		pool.Close()
		return nil, err
	}
	if err := cs.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return cs, nil
}

// EnsureSchema creates the transcript table and its index
func (cs *ConversationStore) EnsureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %[1]s (
  seq bigserial PRIMARY KEY,
  conversation_id text NOT NULL,
  role text NOT NULL,
  content text NOT NULL,
  name text NOT NULL DEFAULT '',
  tool_call_id text NOT NULL DEFAULT '',
  tool_calls jsonb,
  created_at bigint NOT NULL
);
CREATE INDEX IF NOT EXISTS %[1]s_conversation_idx ON %[1]s (conversation_id, seq);`, cs.table)
	if _, err := cs.pool.Exec(ctx, ddl); err != nil {
		return errors.Wrap(err, "create transcript table")
	}
	return nil
}

// AppendMessage implements memory.ConversationStore interface
func (cs *ConversationStore) AppendMessage(ctx context.Context, conversationID string, msg llm.Message) error {
	m := memory.NewMessage(msg)
	var calls []byte
	if len(m.ToolCalls) > 0 {
		var err error
		if calls, err = json.Marshal(m.ToolCalls); err != nil {
			return errors.WithStack(err)
		}
	}
	_, err := cs.pool.Exec(ctx,
		fmt.Sprintf("INSERT INTO %s (conversation_id, role, content, name, tool_call_id, tool_calls, created_at) VALUES ($1,$2,$3,$4,$5,$6,$7)", cs.table),
		conversationID, m.Role, m.Content, m.Name, m.ToolCallID, calls, m.Timestamp)
	if err != nil {
		return errors.Wrap(err, "insert message")
	}
	return nil
}

// GetMessages implements memory.ConversationStore interface
func (cs *ConversationStore) GetMessages(ctx context.Context, conversationID string) ([]memory.Message, error) {
	rows, err := cs.pool.Query(ctx,
		fmt.Sprintf("SELECT role, content, name, tool_call_id, tool_calls, created_at FROM %s WHERE conversation_id=$1 ORDER BY seq", cs.table),
		conversationID)
	if err != nil {
		return nil, errors.Wrap(err, "query messages")
	}
	defer rows.Close()

	out := []memory.Message{}
	for rows.Next() {
		var m memory.Message
		var calls []byte
		if err := rows.Scan(&m.Role, &m.Content, &m.Name, &m.ToolCallID, &calls, &m.Timestamp); err != nil {
			return nil, errors.WithStack(err)
		}
		if len(calls) > 0 {
			if err := json.Unmarshal(calls, &m.ToolCalls); err != nil {
				return nil, errors.Wrap(err, "decode tool calls")
			}
		}
		out = append(out, m)
	}
	return out, errors.WithStack(rows.Err())
}

// ListConversations implements memory.ConversationStore interface
func (cs *ConversationStore) ListConversations(ctx context.Context) ([]string, error) {
	rows, err := cs.pool.Query(ctx, fmt.Sprintf("SELECT DISTINCT conversation_id FROM %s ORDER BY conversation_id", cs.table))
	if err != nil {
		return nil, errors.Wrap(err, "query conversations")
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.WithStack(err)
		}
		ids = append(ids, id)
	}
	return ids, errors.WithStack(rows.Err())
}

// ClearConversation implements memory.ConversationStore interface
func (cs *ConversationStore) ClearConversation(ctx context.Context, conversationID string) error {
	_, err := cs.pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE conversation_id=$1", cs.table), conversationID)
	return errors.Wrap(err, "delete conversation")
}

// Close implements memory.ConversationStore interface
func (cs *ConversationStore) Close() error {
	cs.pool.Close()
	return nil
}

var _ memory.ConversationStore = (*ConversationStore)(nil)
