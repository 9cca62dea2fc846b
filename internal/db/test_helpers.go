package db

import (
	"path/filepath"
	"testing"
)

// migrationsDirForTest is the migrations path relative to this package.
const migrationsDirForTest = "../../db/migrations"

// newTestDB opens a migrated sqlite database in a test temp directory.
func newTestDB(t *testing.T) *DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tracking_test.db")
	database, err := NewDB(path)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := database.MigrateUp(migrationsDirForTest); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return database
}
