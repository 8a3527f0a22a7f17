// Package testing provides testing utilities and helpers for the augur project.
package testing

import (
	"path/filepath"
	"testing"

	"github.com/aristath/augur/internal/database"
)

// NewTestDB creates a temp-file SQLite database for testing with automatic schema migration.
// Returns the database instance and a cleanup function that closes the connection.
// The cleanup function is idempotent and can be called multiple times safely.
//
// Supported schema names:
//   - "history" - applies history_schema.sql
//   - "ledger" - applies ledger_schema.sql
//   - "cache" - applies cache_schema.sql
//   - Unknown names - creates empty database (no schema applied)
func NewTestDB(t *testing.T, name string) (*database.DB, func()) {
	t.Helper()

	// Temp dir per test keeps databases isolated and removes WAL files too
	path := filepath.Join(t.TempDir(), "test_"+name+".db")

	db, err := database.New(database.Config{
		Path:    path,
		Profile: database.ProfileStandard,
		Name:    name,
	})
	if err != nil {
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}

	if err := db.Migrate(); err != nil {
		_ = db.Close()
		t.Fatalf("Failed to migrate test database %s: %v", name, err)
	}

	closed := false
	cleanup := func() {
		if closed {
			return
		}
		closed = true
		if err := db.Close(); err != nil {
			t.Logf("Warning: Failed to close test database %s: %v", name, err)
		}
	}
	t.Cleanup(cleanup)

	return db, cleanup
}

// Databases bundles the three engine databases for integration tests.
type Databases struct {
	History *database.DB
	Ledger  *database.DB
	Cache   *database.DB
}

// NewTestDatabases creates migrated history, ledger and cache databases.
// They are closed automatically when the test ends.
func NewTestDatabases(t *testing.T) *Databases {
	t.Helper()

	history, _ := NewTestDB(t, database.NameHistory)
	ledger, _ := NewTestDB(t, database.NameLedger)
	cache, _ := NewTestDB(t, database.NameCache)

	return &Databases{History: history, Ledger: ledger, Cache: cache}
}
