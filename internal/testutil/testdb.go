package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/dailyreports/importer/internal/storage/sqlite"
)

// NewTestStore creates an in-memory SQLite store with the schema applied.
// The store is closed when the test completes.
func NewTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	return openStore(t, ":memory:")
}

// NewFileStore creates a SQLite store in a temporary directory, for tests
// that need the database to outlive a single connection.
func NewFileStore(t *testing.T) *sqlite.Store {
	t.Helper()
	return openStore(t, filepath.Join(t.TempDir(), "reports.db"))
}

func openStore(t *testing.T, path string) *sqlite.Store {
	t.Helper()
	ctx := context.Background()

	store, err := sqlite.Open(ctx, path)
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})

	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	return store
}
