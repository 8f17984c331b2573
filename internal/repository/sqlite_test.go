package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStoreContract(t *testing.T) {
	testStoreContract(t, func(t *testing.T) Store { return newTestStore(t) })
}

func TestSQLiteStoreMigratesLegacySchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE chat_messages (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		timestamp INTEGER NOT NULL
	)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer store.Close()

	msg := newMessage("m1", "s1", "user", baseTime)
	msg.ImageURL = "AAAA"
	require.NoError(t, store.InsertMessage(context.Background(), msg))

	messages, err := store.ListMessages(context.Background(), "s1", 10)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "AAAA", messages[0].ImageURL)
}

func TestSQLiteStoreReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "chat.db")

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.CreateSession(ctx, newSession("s1", baseTime)))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.NotNil(t, got)
}
