package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/KamdynS/mcpchat/memory/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *ConversationStore {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	cs, err := Open(context.Background(), dsn, "mcpchat_messages_test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func TestConversationContract(t *testing.T) {
	storetest.RunConversationContract(t, openTestStore(t))
}

func TestConcurrentAppend(t *testing.T) {
	storetest.RunConcurrentAppend(t, openTestStore(t))
}

func TestNewRejectsBadTable(t *testing.T) {
	_, err := New(nil, "messages; DROP TABLE x")
	assert.Error(t, err)

	cs, err := New(nil, "")
	require.NoError(t, err)
	assert.Equal(t, DefaultTable, cs.table)
}
