package repository

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// Set TEST_DATABASE_URL to a disposable database to run these tests.
func newTestPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	store, err := NewPostgresStore(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, store.DropSchema(ctx))
	require.NoError(t, store.CreateSchema(ctx))
	t.Cleanup(func() {
		_ = store.DropSchema(context.Background())
		_ = store.Close()
	})
	return store
}

func TestPostgresStoreContract(t *testing.T) {
	testStoreContract(t, func(t *testing.T) Store { return newTestPostgresStore(t) })
}
