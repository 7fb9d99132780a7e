// Package dbtest opens migrated SQLite databases for tests.
package dbtest

import (
	"context"
	"database/sql"
	"path/filepath"
	"runtime"
	"testing"

	"ataraxia/internal/db"
)

// MigrationsDir is the repository's migrations directory.
func MigrationsDir() string {
	_, currentFile, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(currentFile), "..", "..", "..", "migrations")
}

// Open returns a fresh database in a temp dir with all migrations applied.
// It is closed when the test ends.
func Open(t testing.TB) *sql.DB {
	t.Helper()
	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	if _, err := db.Migrate(context.Background(), database, MigrationsDir()); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return database
}
