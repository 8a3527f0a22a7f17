package ranking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/augur/internal/domain"
	"github.com/aristath/augur/internal/metrics"
	"github.com/aristath/augur/internal/modules/performance"
	testingpkg "github.com/aristath/augur/internal/testing"
)

type fakeStrategies struct {
	names []string
}

func (f fakeStrategies) ActiveNames(context.Context) ([]string, error) { return f.names, nil }

func (f fakeStrategies) Known(name string) bool {
	for _, n := range f.names {
		if n == name {
			return true
		}
	}
	return false
}

func insertAccuracies(t *testing.T, repo *performance.Repository, strategy string, hits ...int) {
	t.Helper()
	for i, h := range hits {
		_, err := repo.Insert(context.Background(), domain.PerformanceRecord{
			DrawID:   int64(i + 1),
			Strategy: strategy,
			Actual:   []int{1, 2, 3, 4, 5},
			Hits:     h,
			Accuracy: float64(h) * 20,
		})
		require.NoError(t, err)
	}
}

func newService(t *testing.T, names []string, window int) (*Service, *performance.Repository) {
	t.Helper()
	dbs := testingpkg.NewTestDatabases(t)
	records := performance.NewProductionRepository(dbs.Ledger.Conn(), zerolog.Nop())
	repo := NewRepository(dbs.Cache.Conn(), zerolog.Nop())
	return NewService(records, repo, fakeStrategies{names: names}, window, metrics.New(), zerolog.Nop()), records
}

func TestSnapshot_OrderAndTop(t *testing.T) {
	snap := NewSnapshot([]domain.RankingEntry{
		{Strategy: "c", AvgAccuracy: 40},
		{Strategy: "b", AvgAccuracy: 60},
		{Strategy: "a", AvgAccuracy: 60},
		{Strategy: "d", AvgAccuracy: 10},
	}, time.Now())

	names := func(entries []domain.RankingEntry) []string {
		out := make([]string, len(entries))
		for i, e := range entries {
			out[i] = e.Strategy
		}
		return out
	}

	assert.Equal(t, []string{"a", "b", "c", "d"}, names(snap.Entries), "ties broken by name")
	assert.Equal(t, []string{"a", "b"}, names(snap.Top(2, nil)))
	assert.Equal(t, []string{"b", "d"}, names(snap.Top(2, func(n string) bool { return n != "a" && n != "c" })))
	assert.Len(t, snap.Top(10, nil), 4)

	e, ok := snap.Get("c")
	assert.True(t, ok)
	assert.Equal(t, 40.0, e.AvgAccuracy)
}

func TestCompute_OmitsEmpty(t *testing.T) {
	_, ok := Compute("new", nil, time.Now())
	assert.False(t, ok)

	e, ok := Compute("s", []float64{20, 40, 60}, time.Now())
	require.True(t, ok)
	assert.InDelta(t, 40.0, e.AvgAccuracy, 1e-9)
	assert.Equal(t, 3, e.SampleCount)
}

func TestWindow_MatchesRefreshArithmetic(t *testing.T) {
	accuracies := []float64{20, 0, 40, 60, 20, 80, 100, 0, 20, 40, 60, 20}

	w := NewWindow(5)
	for _, a := range accuracies {
		w.Add("s", a)
	}

	newestFirst := make([]float64, 0, 5)
	for i := len(accuracies) - 1; i >= len(accuracies)-5; i-- {
		newestFirst = append(newestFirst, accuracies[i])
	}
	want, _ := Compute("s", newestFirst, time.Time{})

	got, ok := w.Snapshot(time.Time{}).Get("s")
	require.True(t, ok)
	assert.Equal(t, want.AvgAccuracy, got.AvgAccuracy, "bitwise equal, same summation order")
	assert.Equal(t, 5, got.SampleCount)

	seeded := NewWindow(5)
	seeded.Seed("s", newestFirst)
	again, _ := seeded.Snapshot(time.Time{}).Get("s")
	assert.Equal(t, want.AvgAccuracy, again.AvgAccuracy)
}

func TestService_Refresh(t *testing.T) {
	svc, records := newService(t, []string{"a", "b", "fresh"}, 3)
	ctx := context.Background()

	insertAccuracies(t, records, "a", 5, 1, 3, 3, 3) // last 3: 3,3,3 -> 60
	insertAccuracies(t, records, "b", 0, 0, 2)       // 0,0,2 -> 13.33

	result, err := svc.Refresh(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, result.Ranked)
	assert.Equal(t, []string{"fresh"}, result.Omitted, "no records means omitted, not zero")

	entries, err := svc.Get(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].Strategy)
	assert.InDelta(t, 60.0, entries[0].AvgAccuracy, 1e-9)
	assert.Equal(t, 3, entries[0].SampleCount)
	assert.InDelta(t, 40.0/3, entries[1].AvgAccuracy, 1e-9)

	_, err = svc.Entry(ctx, "fresh")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	_, err = svc.Entry(ctx, "unregistered")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	e, err := svc.Entry(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, 3, e.SampleCount)
}

// A strictly better strategy on every shared draw never ranks lower.
func TestService_Monotonicity(t *testing.T) {
	svc, records := newService(t, []string{"A", "B"}, 100)
	ctx := context.Background()

	hitsB := []int{0, 1, 2, 1, 0, 3, 2, 1, 4, 0, 2, 1}
	hitsA := make([]int, len(hitsB))
	for i, h := range hitsB {
		hitsA[i] = h + 1
	}
	insertAccuracies(t, records, "A", hitsA...)
	insertAccuracies(t, records, "B", hitsB...)

	_, err := svc.Refresh(ctx)
	require.NoError(t, err)

	a, err := svc.Entry(ctx, "A")
	require.NoError(t, err)
	b, err := svc.Entry(ctx, "B")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, a.AvgAccuracy, b.AvgAccuracy)
}

type flakyReader struct {
	RecordReader
	fail string
}

func (f flakyReader) Recent(ctx context.Context, strategy string, before int64, limit int) ([]domain.PerformanceRecord, error) {
	if strategy == f.fail {
		return nil, errors.New("disk on fire")
	}
	return f.RecordReader.Recent(ctx, strategy, before, limit)
}

func TestService_RefreshFailureKeepsPreviousEntry(t *testing.T) {
	dbs := testingpkg.NewTestDatabases(t)
	records := performance.NewProductionRepository(dbs.Ledger.Conn(), zerolog.Nop())
	repo := NewRepository(dbs.Cache.Conn(), zerolog.Nop())
	strategies := fakeStrategies{names: []string{"a", "b"}}
	ctx := context.Background()

	insertAccuracies(t, records, "a", 1, 2)
	insertAccuracies(t, records, "b", 4, 4)

	_, err := NewService(records, repo, strategies, 10, nil, zerolog.Nop()).Refresh(ctx)
	require.NoError(t, err)

	flaky := NewService(flakyReader{RecordReader: records, fail: "b"}, repo, strategies, 10, nil, zerolog.Nop())
	result, err := flaky.Refresh(ctx)
	require.NoError(t, err)
	assert.Contains(t, result.Failed, "b")
	assert.Equal(t, []string{"a"}, result.Ranked)

	entries, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "b", entries[0].Strategy)
	assert.InDelta(t, 80.0, entries[0].AvgAccuracy, 1e-9)
}

func TestFixed_IgnoresDraw(t *testing.T) {
	fixed := NewFixed(NewSnapshot([]domain.RankingEntry{{Strategy: "a", AvgAccuracy: 1}}, time.Now()))
	got, err := fixed.SnapshotBefore(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Len())
}
