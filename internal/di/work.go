package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/augur/internal/config"
	"github.com/aristath/augur/internal/scheduler"
	"github.com/aristath/augur/internal/work"
)

// InitializeWork registers the pipeline work types and the cron jobs that queue them
func InitializeWork(container *Container, cfg *config.Config, log zerolog.Logger) error {
	deps := &work.PipelineDeps{
		Replay:  container.Simulator,
		Ranking: container.RankingService,
		Cache:   container.PredictionService,
	}
	// Backup stays a nil interface when backups are disabled
	if container.BackupService != nil {
		deps.Backup = container.BackupService
	}
	for _, db := range container.Databases() {
		deps.Databases = append(deps.Databases, db)
	}

	container.WorkRegistry = work.NewRegistry()
	work.RegisterPipelineWorkTypes(container.WorkRegistry, deps)
	if err := container.WorkRegistry.Validate(); err != nil {
		return fmt.Errorf("failed to validate work types: %w", err)
	}

	container.WorkProcessor = work.NewProcessor(
		container.WorkRegistry,
		work.NewCompletionTracker(),
		container.EventManager,
		log,
	)

	container.Scheduler = scheduler.New(log)
	if err := scheduler.RegisterJobs(
		container.Scheduler,
		cfg.Schedule,
		container.WorkProcessor,
		deps.Backup != nil,
		container.Databases()...,
	); err != nil {
		return fmt.Errorf("failed to register jobs: %w", err)
	}

	log.Info().
		Int("work_types", container.WorkRegistry.Count()).
		Int("jobs", container.Scheduler.Len()).
		Msg("Background work registered")
	return nil
}
