// Package repotest opens migrated in-memory SQLite stores for tests.
package repotest

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/outrclub/outr-api/internal/repository"
)

var dbSeq atomic.Int64

// DSN returns a DSN for a fresh, private in-memory SQLite database.
func DSN() string {
	return fmt.Sprintf("file:testdb_%d?mode=memory&cache=shared&_pragma=foreign_keys(1)&_time_format=sqlite", dbSeq.Add(1))
}

// NewDB opens and migrates an in-memory SQLite database closed at test cleanup.
func NewDB(t testing.TB) *sql.DB {
	t.Helper()
	ctx := context.Background()

	db, err := repository.NewDB(ctx, repository.DialectSQLite, DSN())
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := repository.Migrate(ctx, db, repository.DialectSQLite); err != nil {
		t.Fatalf("migrating sqlite: %v", err)
	}
	return db
}

// NewStore returns a Store over a fresh migrated database.
func NewStore(t testing.TB) *repository.Store {
	t.Helper()
	return repository.NewStore(NewDB(t), repository.DialectSQLite)
}
