// Package di wires databases, repositories, services and background work
// into a Container.
package di

import (
	"github.com/go-redis/redis/v8"

	"github.com/aristath/augur/internal/database"
	"github.com/aristath/augur/internal/events"
	"github.com/aristath/augur/internal/metrics"
	"github.com/aristath/augur/internal/modules/backtest"
	"github.com/aristath/augur/internal/modules/draws"
	"github.com/aristath/augur/internal/modules/performance"
	"github.com/aristath/augur/internal/modules/predictions"
	"github.com/aristath/augur/internal/modules/ranking"
	"github.com/aristath/augur/internal/modules/staging"
	"github.com/aristath/augur/internal/modules/strategies"
	"github.com/aristath/augur/internal/reliability"
	"github.com/aristath/augur/internal/scheduler"
	"github.com/aristath/augur/internal/work"
)

// Container holds every long-lived component. It is created by Wire and
// released with Close.
type Container struct {
	// Databases
	HistoryDB *database.DB
	LedgerDB  *database.DB
	CacheDB   *database.DB

	// Repositories
	DrawRepo       *draws.Repository
	ProductionRepo *performance.Repository
	StagingRepo    *performance.Repository
	StatusRepo     *performance.StatusRepository
	RunRepo        *performance.RunRepository
	RankingRepo    *ranking.Repository

	// Observability
	Metrics      *metrics.Registry
	EventBus     *events.Bus
	EventManager *events.Manager

	// Services
	Registry          *strategies.Registry
	ActiveSet         *strategies.ActiveSet
	Importer          *draws.Importer
	RankingService    *ranking.Service
	Simulator         *backtest.Simulator
	StagingSimulator  *backtest.Simulator
	Workbench         *staging.Workbench
	PredictionStore   predictions.Store
	PredictionService *predictions.Service
	BackupService     *reliability.BackupService // nil when backups are disabled

	// Background work
	WorkRegistry  *work.Registry
	WorkProcessor *work.Processor
	Scheduler     *scheduler.Scheduler

	redis *redis.Client
}

// Databases returns the open databases in a stable order.
func (c *Container) Databases() []*database.DB {
	var out []*database.DB
	for _, db := range []*database.DB{c.HistoryDB, c.LedgerDB, c.CacheDB} {
		if db != nil {
			out = append(out, db)
		}
	}
	return out
}
