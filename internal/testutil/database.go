// Package testutil provides shared fixtures and an in-memory record store for tests.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/transcat/internal/model"
	"github.com/Veraticus/transcat/internal/storage"
)

// TestTable is the record table used by test stores.
const TestTable = "records"

// SetupTestStore creates a migrated in-memory store seeded with records.
// The store is closed automatically when the test ends.
//
// Example:
//
//	store := testutil.SetupTestStore(t, testutil.FixtureGroceries.Records()...)
func SetupTestStore(t *testing.T, records ...model.CategoryRecord) *storage.Store {
	t.Helper()
	ctx := context.Background()

	store, err := storage.NewSQLiteStore(ctx, ":memory:", TestTable)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	if len(records) > 0 {
		if _, err := store.AppendRecords(ctx, records); err != nil {
			t.Fatalf("failed to seed records: %v", err)
		}
	}

	return store
}
