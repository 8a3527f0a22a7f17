package work

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/augur/internal/domain"
	"github.com/aristath/augur/internal/modules/backtest"
	"github.com/aristath/augur/internal/modules/predictions"
	"github.com/aristath/augur/internal/modules/ranking"
)

type fakeReplay struct {
	ran  *order
	opts []backtest.Options
}

func (f *fakeReplay) Run(ctx context.Context, opts backtest.Options) (*backtest.Summary, error) {
	f.opts = append(f.opts, opts)
	f.ran.add(TypeReplay)
	return &backtest.Summary{Processed: 3}, nil
}

type fakeRanking struct{ ran *order }

func (f *fakeRanking) Refresh(ctx context.Context) (*ranking.RefreshResult, error) {
	f.ran.add(TypeRanking)
	return &ranking.RefreshResult{Ranked: []string{"hot_window"}}, nil
}

type fakeCache struct {
	ran *order
	err error
}

func (f *fakeCache) Refresh(ctx context.Context) (*predictions.RefreshResult, error) {
	f.ran.add(TypeCache)
	if f.err != nil {
		return nil, f.err
	}
	return &predictions.RefreshResult{Refreshed: []string{"hot_window"}}, nil
}

type fakeBackup struct{ key string }

func (f *fakeBackup) Backup(ctx context.Context) (string, error) { return f.key, nil }

type fakeDB struct {
	name string
	err  error
}

func (f fakeDB) Name() string                          { return f.name }
func (f fakeDB) HealthCheck(ctx context.Context) error { return f.err }

func TestPipeline_ReplayChainsRankingAndCache(t *testing.T) {
	ran := &order{}
	replay := &fakeReplay{ran: ran}
	registry := NewRegistry()
	RegisterPipelineWorkTypes(registry, &PipelineDeps{
		Replay:  replay,
		Ranking: &fakeRanking{ran: ran},
		Cache:   &fakeCache{ran: ran},
	})
	assert.Equal(t, []string{TypeCache, TypeRanking, TypeReplay}, registry.IDs(), "maintenance needs its dependencies")
	require.NoError(t, registry.Validate())

	p := NewProcessorWithTimeout(registry, NewCompletionTracker(), nil, zerolog.Nop(), 5*time.Second)
	go p.Run()
	defer p.Stop()

	require.NoError(t, p.Enqueue(TypeReplay, "hot_window"))
	require.Eventually(t, func() bool { return len(ran.get()) == 3 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{TypeReplay, TypeRanking, TypeCache}, ran.get())

	require.Len(t, replay.opts, 1)
	assert.Equal(t, []string{"hot_window"}, replay.opts[0].Strategies)
	assert.Equal(t, domain.ModeIncremental, replay.opts[0].Mode)
}

func TestPipeline_EmptySubjectReplaysEverything(t *testing.T) {
	ran := &order{}
	replay := &fakeReplay{ran: ran}
	registry := NewRegistry()
	RegisterPipelineWorkTypes(registry, &PipelineDeps{Replay: replay, Ranking: &fakeRanking{ran: ran}, Cache: &fakeCache{ran: ran}})

	p := NewProcessorWithTimeout(registry, NewCompletionTracker(), nil, zerolog.Nop(), 5*time.Second)
	require.NoError(t, p.ExecuteNow(context.Background(), TypeReplay, ""))

	require.Len(t, replay.opts, 1)
	assert.Empty(t, replay.opts[0].Strategies)
}

func TestPipeline_CacheFailureIsReported(t *testing.T) {
	ran := &order{}
	registry := NewRegistry()
	RegisterPipelineWorkTypes(registry, &PipelineDeps{
		Replay:  &fakeReplay{ran: ran},
		Ranking: &fakeRanking{ran: ran},
		Cache:   &fakeCache{ran: ran, err: errors.New("store offline")},
	})

	p := NewProcessorWithTimeout(registry, NewCompletionTracker(), nil, zerolog.Nop(), 5*time.Second)
	err := p.ExecuteNow(context.Background(), TypeCache, "")
	assert.ErrorContains(t, err, "store offline")
}

func TestPipeline_Maintenance(t *testing.T) {
	registry := NewRegistry()
	RegisterPipelineWorkTypes(registry, &PipelineDeps{
		Replay:    &fakeReplay{ran: &order{}},
		Ranking:   &fakeRanking{ran: &order{}},
		Cache:     &fakeCache{ran: &order{}},
		Backup:    &fakeBackup{key: "augur/2024.tar.gz"},
		Databases: []HealthChecker{fakeDB{name: "history"}, fakeDB{name: "ledger", err: errors.New("corrupt")}},
	})
	require.NotNil(t, registry.Get(TypeBackup))
	require.NotNil(t, registry.Get(TypeHealthCheck))

	p := NewProcessorWithTimeout(registry, NewCompletionTracker(), nil, zerolog.Nop(), 5*time.Second)
	assert.NoError(t, p.ExecuteNow(context.Background(), TypeBackup, ""))
	assert.ErrorContains(t, p.ExecuteNow(context.Background(), TypeHealthCheck, ""), "corrupt")
}
