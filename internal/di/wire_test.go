package di

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/augur/internal/config"
	"github.com/aristath/augur/internal/server"
	testingpkg "github.com/aristath/augur/internal/testing"
	"github.com/aristath/augur/internal/work"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Engine.RankingWindow = 20
	cfg.Engine.ReplayWindow = 30
	cfg.Engine.Tiers = []config.Tier{{Name: "gold", Size: 3}}
	cfg.Schedule = config.ScheduleConfig{
		Replay:  "0 */30 * * * *",
		Ranking: "0 5 * * * *",
		Cache:   "0 10 * * * *",
		Backup:  "0 0 3 * * *",
	}
	cfg.Catalog = &config.Catalog{
		Strategies: []config.StrategySpec{{Name: "linear_trend", Staged: true}},
	}
	return cfg
}

func TestInitializeDatabases(t *testing.T) {
	cfg := testConfig(t)

	container, err := InitializeDatabases(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer container.Close()

	require.Len(t, container.Databases(), 3)
	assert.FileExists(t, filepath.Join(cfg.DataDir, "history.db"))
	assert.FileExists(t, filepath.Join(cfg.DataDir, "ledger.db"))
	assert.FileExists(t, filepath.Join(cfg.DataDir, "cache.db"))
}

func TestWire(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	container, err := Wire(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })

	assert.NotNil(t, container.Simulator)
	assert.NotNil(t, container.StagingSimulator)
	assert.NotNil(t, container.Workbench)
	assert.Nil(t, container.BackupService)

	assert.Equal(t, []string{
		work.TypeCache, work.TypeHealthCheck, work.TypeRanking, work.TypeReplay,
	}, container.WorkRegistry.IDs())
	assert.Equal(t, 4, container.Scheduler.Len(), "three schedules plus WAL checks, no backup")

	for name, want := range map[string]bool{
		"hot_window":        true,
		"anti_hot_window":   true,
		"linear_trend":      false,
		"anti_linear_trend": false,
	} {
		active, err := container.ActiveSet.IsActive(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, want, active, name)
	}
}

func TestWire_RunsPipelineEndToEnd(t *testing.T) {
	ctx := context.Background()
	container, err := Wire(ctx, testConfig(t), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })

	_, err = container.DrawRepo.InsertBatch(ctx, testingpkg.SyntheticHistory(40, 7))
	require.NoError(t, err)

	for _, typeID := range []string{work.TypeReplay, work.TypeRanking, work.TypeCache} {
		require.NoError(t, container.WorkProcessor.ExecuteNow(ctx, typeID, ""), typeID)
	}

	entry, err := container.RankingService.Entry(ctx, "hot_window")
	require.NoError(t, err)
	assert.Positive(t, entry.SampleCount)
	assert.LessOrEqual(t, entry.SampleCount, 20, "bounded by the ranking window")

	cached, err := container.PredictionService.Get(ctx, "medal_gold")
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.NotEmpty(t, cached.Candidates)

	staged, err := container.PredictionService.Get(ctx, "linear_trend")
	require.NoError(t, err)
	assert.Nil(t, staged, "inactive strategies are not cached")

	srv := server.New(container.ServerConfig(0, true, zerolog.Nop()))
	for _, path := range []string{
		"/health",
		"/api/strategies",
		"/api/ranking/hot_window",
		"/api/predictions/medal_gold",
		"/api/runs/",
		"/api/staging/linear_trend",
		"/api/work/types",
	} {
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}
