package work

import (
	"context"
	"fmt"

	"github.com/aristath/augur/internal/domain"
	"github.com/aristath/augur/internal/modules/backtest"
	"github.com/aristath/augur/internal/modules/predictions"
	"github.com/aristath/augur/internal/modules/ranking"
)

// Work type IDs.
const (
	TypeReplay      = "replay:incremental"
	TypeRanking     = "ranking:refresh"
	TypeCache       = "cache:refresh"
	TypeBackup      = "maintenance:backup"
	TypeHealthCheck = "maintenance:health"
)

// Replayer produces production performance records.
type Replayer interface {
	Run(ctx context.Context, opts backtest.Options) (*backtest.Summary, error)
}

// RankingRefresher recomputes the ranking table.
type RankingRefresher interface {
	Refresh(ctx context.Context) (*ranking.RefreshResult, error)
}

// CacheRefresher recomputes cached predictions.
type CacheRefresher interface {
	Refresh(ctx context.Context) (*predictions.RefreshResult, error)
}

// Backuper uploads a snapshot of the databases and returns its object key.
type Backuper interface {
	Backup(ctx context.Context) (string, error)
}

// HealthChecker is implemented by database.DB.
type HealthChecker interface {
	Name() string
	HealthCheck(ctx context.Context) error
}

// PipelineDeps contains the services driven by the pipeline work types.
// Backup and Databases are optional.
type PipelineDeps struct {
	Replay    Replayer
	Ranking   RankingRefresher
	Cache     CacheRefresher
	Backup    Backuper
	Databases []HealthChecker
}

// RegisterPipelineWorkTypes registers replay, ranking and cache refresh work
// plus the maintenance types whose dependencies are present.
func RegisterPipelineWorkTypes(registry *Registry, deps *PipelineDeps) {
	// replay:incremental - subject selects one strategy, empty replays all active
	registry.Register(&WorkType{
		ID:          TypeReplay,
		Description: "Incremental replay of new draws",
		Priority:    PriorityCritical,
		Execute: func(ctx context.Context, subject string, progress *ProgressReporter) error {
			opts := backtest.Options{Mode: domain.ModeIncremental}
			if subject != "" {
				opts.Strategies = []string{subject}
			}
			progress.ReportPhase("replay", "Replaying draws")

			summary, err := deps.Replay.Run(ctx, opts)
			if err != nil {
				return fmt.Errorf("failed to replay: %w", err)
			}
			progress.ReportWithDetails("Replay finished", map[string]interface{}{
				"processed": summary.Processed,
				"skipped":   summary.Skipped,
				"failed":    summary.Failed,
			})
			return nil
		},
	})

	// ranking:refresh - runs after every replay
	registry.Register(&WorkType{
		ID:          TypeRanking,
		Description: "Recompute strategy ranking",
		DependsOn:   []string{TypeReplay},
		Priority:    PriorityHigh,
		Global:      true,
		Execute: func(ctx context.Context, subject string, progress *ProgressReporter) error {
			result, err := deps.Ranking.Refresh(ctx)
			if err != nil {
				return fmt.Errorf("failed to refresh ranking: %w", err)
			}
			progress.Report(len(result.Ranked), len(result.Ranked)+len(result.Omitted), "Ranking refreshed")
			return nil
		},
	})

	// cache:refresh - ensembles read the ranking, so it runs after it
	registry.Register(&WorkType{
		ID:          TypeCache,
		Description: "Refresh cached predictions",
		DependsOn:   []string{TypeRanking},
		Priority:    PriorityMedium,
		Global:      true,
		Execute: func(ctx context.Context, subject string, progress *ProgressReporter) error {
			result, err := deps.Cache.Refresh(ctx)
			if err != nil {
				return fmt.Errorf("failed to refresh prediction cache: %w", err)
			}
			progress.Report(len(result.Refreshed), len(result.Refreshed)+len(result.Failed), "Prediction cache refreshed")
			return nil
		},
	})

	if len(deps.Databases) > 0 {
		registry.Register(&WorkType{
			ID:          TypeHealthCheck,
			Description: "Database integrity check",
			Priority:    PriorityLow,
			Global:      true,
			Execute: func(ctx context.Context, subject string, progress *ProgressReporter) error {
				for i, db := range deps.Databases {
					progress.Report(i, len(deps.Databases), "Checking "+db.Name())
					if err := db.HealthCheck(ctx); err != nil {
						return fmt.Errorf("health check failed: %w", err)
					}
				}
				return nil
			},
		})
	}

	if deps.Backup != nil {
		registry.Register(&WorkType{
			ID:          TypeBackup,
			Description: "Upload database backup",
			Priority:    PriorityLow,
			Global:      true,
			Execute: func(ctx context.Context, subject string, progress *ProgressReporter) error {
				key, err := deps.Backup.Backup(ctx)
				if err != nil {
					return fmt.Errorf("failed to upload backup: %w", err)
				}
				progress.ReportPhase("uploaded", key)
				return nil
			},
		})
	}
}
