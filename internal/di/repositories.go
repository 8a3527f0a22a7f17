package di

import (
	"github.com/rs/zerolog"

	"github.com/aristath/augur/internal/modules/draws"
	"github.com/aristath/augur/internal/modules/performance"
	"github.com/aristath/augur/internal/modules/ranking"
)

// InitializeRepositories creates all repositories on the open databases
func InitializeRepositories(container *Container, log zerolog.Logger) {
	container.DrawRepo = draws.NewRepository(container.HistoryDB.Conn(), log)

	ledger := container.LedgerDB.Conn()
	container.ProductionRepo = performance.NewProductionRepository(ledger, log)
	container.StagingRepo = performance.NewStagingRepository(ledger, log)
	container.StatusRepo = performance.NewStatusRepository(ledger, log)
	container.RunRepo = performance.NewRunRepository(ledger, log)

	container.RankingRepo = ranking.NewRepository(container.CacheDB.Conn(), log)
}
