package di

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/augur/internal/config"
	"github.com/aristath/augur/internal/events"
	"github.com/aristath/augur/internal/metrics"
	"github.com/aristath/augur/internal/modules/backtest"
	"github.com/aristath/augur/internal/modules/draws"
	"github.com/aristath/augur/internal/modules/predictions"
	"github.com/aristath/augur/internal/modules/ranking"
	"github.com/aristath/augur/internal/modules/staging"
	"github.com/aristath/augur/internal/modules/strategies"
	"github.com/aristath/augur/internal/reliability"
)

// rankingProvider breaks the construction cycle between the registry, whose
// ensembles read the ranking, and the ranking service, which needs the registry.
type rankingProvider struct {
	service *ranking.Service
}

func (p *rankingProvider) Current(ctx context.Context) (ranking.Snapshot, error) {
	if p.service == nil {
		return ranking.Snapshot{}, fmt.Errorf("ranking service not initialized")
	}
	return p.service.Current(ctx)
}

// InitializeServices builds the strategy registry and every service on top of it
func InitializeServices(ctx context.Context, container *Container, cfg *config.Config, log zerolog.Logger) error {
	container.Metrics = metrics.New()
	container.EventBus = events.NewBus(log)
	container.EventManager = events.NewManager(container.EventBus, log)

	provider := &rankingProvider{}
	registry, err := strategies.Build(cfg.Game, cfg.Catalog, cfg.Engine.Tiers, provider)
	if err != nil {
		return fmt.Errorf("failed to build strategy registry: %w", err)
	}
	container.Registry = registry

	if err := seedStrategyStatus(ctx, container, cfg.Catalog); err != nil {
		return err
	}
	container.ActiveSet = strategies.NewActiveSet(registry, container.StatusRepo)

	container.RankingService = ranking.NewService(
		container.ProductionRepo,
		container.RankingRepo,
		container.ActiveSet,
		cfg.Engine.RankingWindow,
		container.Metrics,
		log,
	)
	provider.service = container.RankingService

	container.Importer = draws.NewImporter(container.DrawRepo, cfg.Game, log)

	container.Simulator = backtest.NewSimulator(backtest.Config{
		Draws:   container.DrawRepo,
		Sink:    container.ProductionRepo,
		Active:  container.ActiveSet,
		Current: container.RankingService,
		Runs:    container.RunRepo,
		Engine:  cfg.Engine,
		Metrics: container.Metrics,
		Emitter: container.EventManager,
	}, log)

	container.StagingSimulator = backtest.NewSimulator(backtest.Config{
		Draws:   container.DrawRepo,
		Sink:    container.StagingRepo,
		Active:  container.ActiveSet,
		Current: container.RankingService,
		Runs:    container.RunRepo,
		Engine:  cfg.Engine,
		Metrics: container.Metrics,
		Emitter: container.EventManager,
	}, log)

	container.Workbench = staging.NewWorkbench(
		container.LedgerDB.Conn(),
		container.ProductionRepo,
		container.StagingRepo,
		container.StatusRepo,
		container.StagingSimulator,
		registry,
		container.EventManager,
		log,
	)

	store, err := newPredictionStore(ctx, container, cfg.Cache, log)
	if err != nil {
		return err
	}
	container.PredictionStore = store
	container.PredictionService = predictions.NewService(
		container.DrawRepo,
		container.ActiveSet,
		store,
		cfg.Cache.Concurrency,
		container.Metrics,
		container.EventManager,
		log,
	)

	if cfg.Backup != nil && cfg.Backup.Enabled {
		client, err := reliability.NewS3Client(ctx, cfg.Backup, log)
		if err != nil {
			return fmt.Errorf("failed to create backup client: %w", err)
		}
		container.BackupService = reliability.NewBackupService(
			client,
			container.Databases(),
			cfg.DataDir,
			cfg.Backup.Prefix,
			cfg.Backup.RetentionDays,
			log,
		)
	}

	return nil
}

// seedStrategyStatus registers every strategy the first time it is seen.
// Staged catalog entries start inactive; everything else starts active.
func seedStrategyStatus(ctx context.Context, container *Container, catalog *config.Catalog) error {
	staged := strategies.Staged(container.Registry, catalog)
	for _, d := range container.Registry.List() {
		if err := container.StatusRepo.Register(ctx, d.Name, d.Kind, !staged[d.Name]); err != nil {
			return err
		}
	}
	return nil
}

func newPredictionStore(ctx context.Context, container *Container, cfg config.CacheConfig, log zerolog.Logger) (predictions.Store, error) {
	switch cfg.Backend {
	case "redis":
		client, err := predictions.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		container.redis = client
		log.Info().Str("prefix", cfg.RedisPrefix).Msg("Using redis prediction cache")
		return predictions.NewRedisStore(client, cfg.RedisPrefix, log), nil
	default:
		return predictions.NewSQLiteStore(container.CacheDB.Conn(), log), nil
	}
}

