package performance

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/augur/internal/database"
	"github.com/aristath/augur/internal/domain"
	testingpkg "github.com/aristath/augur/internal/testing"
)

func newLedger(t *testing.T) *database.DB {
	t.Helper()
	db, _ := testingpkg.NewTestDB(t, database.NameLedger)
	return db
}

func record(drawID int64, strategy string, hits int) domain.PerformanceRecord {
	return domain.PerformanceRecord{
		DrawID:    drawID,
		Strategy:  strategy,
		Predicted: domain.CandidateSet{1, 2, 3},
		Actual:    []int{1, 2, 3, 4, 5},
		Hits:      hits,
		Accuracy:  float64(hits) * 20,
		CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestRepository_InsertIsAtMostOnce(t *testing.T) {
	repo := NewProductionRepository(newLedger(t).Conn(), zerolog.Nop())
	ctx := context.Background()

	inserted, err := repo.Insert(ctx, record(1, "hot_window", 3))
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.Insert(ctx, record(1, "hot_window", 5))
	require.NoError(t, err)
	assert.False(t, inserted)

	exists, err := repo.Exists(ctx, 1, "hot_window")
	require.NoError(t, err)
	assert.True(t, exists)

	recs, err := repo.Recent(ctx, "hot_window", 0, 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 3, recs[0].Hits, "first write wins, records are never mutated")
	assert.Equal(t, domain.CandidateSet{1, 2, 3}, recs[0].Predicted)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), recs[0].CreatedAt)
}

func TestRepository_RecentOrderingAndCutoff(t *testing.T) {
	repo := NewProductionRepository(newLedger(t).Conn(), zerolog.Nop())
	ctx := context.Background()

	for id := int64(1); id <= 10; id++ {
		_, err := repo.Insert(ctx, record(id, "a", int(id%6)))
		require.NoError(t, err)
	}
	_, err := repo.Insert(ctx, record(5, "b", 1))
	require.NoError(t, err)

	recs, err := repo.Recent(ctx, "a", 0, 3)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, []int64{10, 9, 8}, []int64{recs[0].DrawID, recs[1].DrawID, recs[2].DrawID})

	recs, err = repo.Recent(ctx, "a", 4, 10)
	require.NoError(t, err)
	require.Len(t, recs, 3, "cutoff is strict")
	assert.Equal(t, int64(3), recs[0].DrawID)

	counts, err := repo.CountByStrategy(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a": 10, "b": 1}, counts)
}

func TestRepository_NamespacesAreIsolated(t *testing.T) {
	db := newLedger(t)
	prod := NewProductionRepository(db.Conn(), zerolog.Nop())
	staging := NewStagingRepository(db.Conn(), zerolog.Nop())
	ctx := context.Background()

	assert.Equal(t, domain.NamespaceStaging, staging.Namespace())

	_, err := staging.Insert(ctx, record(1, "new_strategy", 2))
	require.NoError(t, err)

	exists, err := prod.Exists(ctx, 1, "new_strategy")
	require.NoError(t, err)
	assert.False(t, exists)

	count, err := staging.Count(ctx, "new_strategy")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRepository_TxHelpers(t *testing.T) {
	db := newLedger(t)
	prod := NewProductionRepository(db.Conn(), zerolog.Nop())
	ctx := context.Background()

	_, err := prod.Insert(ctx, record(1, "a", 1))
	require.NoError(t, err)
	_, err = prod.Insert(ctx, record(1, "anti_a", 4))
	require.NoError(t, err)
	_, err = prod.Insert(ctx, record(1, "other", 4))
	require.NoError(t, err)

	err = database.WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		recs, err := prod.ListByStrategiesTx(ctx, tx, "a", "anti_a")
		require.NoError(t, err)
		assert.Len(t, recs, 2)

		deleted, err := prod.DeleteByStrategiesTx(ctx, tx, "a", "anti_a")
		require.NoError(t, err)
		assert.Equal(t, int64(2), deleted)

		inserted, err := prod.InsertTx(ctx, tx, []domain.PerformanceRecord{record(2, "a", 2)})
		require.NoError(t, err)
		assert.Equal(t, 1, inserted)
		return nil
	})
	require.NoError(t, err)

	recs, err := prod.ListByStrategies(ctx, "a", "anti_a", "other")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "other", recs[0].Strategy)
	assert.Equal(t, int64(2), recs[1].DrawID)
}

func TestStatusRepository(t *testing.T) {
	repo := NewStatusRepository(newLedger(t).Conn(), zerolog.Nop())
	ctx := context.Background()

	active, err := repo.IsActive(ctx, "unknown")
	require.NoError(t, err)
	assert.True(t, active, "unregistered strategies default to active")

	require.NoError(t, repo.Register(ctx, "linear_trend", domain.KindBase, false))
	require.NoError(t, repo.Register(ctx, "linear_trend", domain.KindBase, true), "register keeps existing state")

	active, err = repo.IsActive(ctx, "linear_trend")
	require.NoError(t, err)
	assert.False(t, active)

	inactive, err := repo.InactiveSet(ctx)
	require.NoError(t, err)
	assert.True(t, inactive["linear_trend"])

	require.NoError(t, repo.Activate(ctx, "linear_trend", domain.KindBase))
	status, err := repo.Get(ctx, "linear_trend")
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.True(t, status.Active)
	assert.NotNil(t, status.ActivatedAt)

	require.NoError(t, repo.Deactivate(ctx, "linear_trend"))
	err = repo.Deactivate(ctx, "missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestRunRepository(t *testing.T) {
	repo := NewRunRepository(newLedger(t).Conn(), zerolog.Nop())
	ctx := context.Background()

	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	run := &domain.ReplayRun{
		ID:        "run-1",
		Mode:      domain.ModeIncremental,
		Weighting: domain.WeightingPointInTime,
		Namespace: domain.NamespaceProduction,
		Status:    domain.RunRunning,
		StartedAt: started,
	}
	require.NoError(t, repo.Save(ctx, run))

	finished := started.Add(time.Minute)
	run.Processed, run.Skipped, run.Failed = 10, 2, 1
	run.Status = domain.RunCompleted
	run.FinishedAt = &finished
	require.NoError(t, repo.Save(ctx, run))

	got, err := repo.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RunCompleted, got.Status)
	assert.Equal(t, 10, got.Processed)
	assert.Equal(t, "", got.Strategy)
	require.NotNil(t, got.FinishedAt)
	assert.Equal(t, finished, *got.FinishedAt)

	runs, err := repo.List(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	_, err = repo.Get(ctx, "missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
