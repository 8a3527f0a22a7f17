package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T, name string, profile DatabaseProfile) *DB {
	t.Helper()

	db, err := New(Config{
		Path:    filepath.Join(t.TempDir(), name+".db"),
		Profile: profile,
		Name:    name,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func tableExists(t *testing.T, db *DB, table string) bool {
	t.Helper()

	var count int
	err := db.Conn().QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table,
	).Scan(&count)
	require.NoError(t, err)
	return count == 1
}

func TestMigrate_CreatesTablesPerDatabase(t *testing.T) {
	tests := []struct {
		name    string
		profile DatabaseProfile
		tables  []string
	}{
		{NameHistory, ProfileStandard, []string{"draws"}},
		{NameLedger, ProfileLedger, []string{"performance_records", "staging_performance_records", "strategies", "replay_runs"}},
		{NameCache, ProfileCache, []string{"ranking_entries", "cached_predictions"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := openTestDB(t, tt.name, tt.profile)
			require.NoError(t, db.Migrate())
			require.NoError(t, db.Migrate(), "migrations must be idempotent")

			for _, table := range tt.tables {
				assert.True(t, tableExists(t, db, table), "missing table %s", table)
			}
		})
	}
}

func TestMigrate_UnknownNameIsNoop(t *testing.T) {
	db := openTestDB(t, "scratch", ProfileStandard)
	assert.NoError(t, db.Migrate())
	assert.False(t, tableExists(t, db, "draws"))
}

func TestWithTransaction_RollsBackOnError(t *testing.T) {
	db := openTestDB(t, NameCache, ProfileCache)
	require.NoError(t, db.Migrate())

	boom := errors.New("boom")
	err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		_, err := tx.Exec("INSERT INTO ranking_entries (strategy_name, avg_accuracy, sample_count, last_updated) VALUES ('a', 1, 1, 1)")
		require.NoError(t, err)
		return boom
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))

	var count int
	require.NoError(t, db.Conn().QueryRow("SELECT COUNT(*) FROM ranking_entries").Scan(&count))
	assert.Equal(t, 0, count)
}

func TestWithTransaction_RecoversPanic(t *testing.T) {
	db := openTestDB(t, NameCache, ProfileCache)
	require.NoError(t, db.Migrate())

	err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		panic("strategy exploded")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strategy exploded")
}

func TestWithTransaction_NilConnection(t *testing.T) {
	err := WithTransaction(nil, func(tx *sql.Tx) error { return nil })
	assert.Error(t, err)
}

func TestHealthCheckAndStats(t *testing.T) {
	db := openTestDB(t, NameLedger, ProfileLedger)
	require.NoError(t, db.Migrate())

	assert.NoError(t, db.HealthCheck(context.Background()))
	assert.NoError(t, db.WALCheckpoint(""))

	stats, err := db.GetStats()
	require.NoError(t, err)
	assert.Equal(t, NameLedger, stats.Name)
	assert.Greater(t, stats.PageCount, int64(0))
}

func TestBuildConnectionString_Profiles(t *testing.T) {
	assert.Contains(t, buildConnectionString("x.db", ProfileLedger), "synchronous(FULL)")
	assert.Contains(t, buildConnectionString("x.db", ProfileCache), "synchronous(OFF)")
	assert.Contains(t, buildConnectionString("x.db", ProfileStandard), "synchronous(NORMAL)")
}
