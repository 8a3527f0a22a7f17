package di

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/aristath/augur/internal/config"
	"github.com/aristath/augur/internal/database"
)

// InitializeDatabases opens and migrates the history, ledger and cache databases
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	specs := []struct {
		name    string
		profile database.DatabaseProfile
		target  **database.DB
	}{
		// history.db - imported draws
		{database.NameHistory, database.ProfileStandard, &container.HistoryDB},
		// ledger.db - performance records, staging, strategy status, runs
		{database.NameLedger, database.ProfileLedger, &container.LedgerDB},
		// cache.db - ranking and predictions, rebuildable at any time
		{database.NameCache, database.ProfileCache, &container.CacheDB},
	}

	for _, spec := range specs {
		db, err := database.New(database.Config{
			Path:    filepath.Join(cfg.DataDir, spec.name+".db"),
			Profile: spec.profile,
			Name:    spec.name,
		})
		if err != nil {
			closeDatabases(container)
			return nil, fmt.Errorf("failed to initialize %s database: %w", spec.name, err)
		}
		*spec.target = db

		if err := db.Migrate(); err != nil {
			closeDatabases(container)
			return nil, fmt.Errorf("failed to migrate %s database: %w", spec.name, err)
		}
	}

	log.Info().Str("data_dir", cfg.DataDir).Msg("Databases initialized")
	return container, nil
}

func closeDatabases(c *Container) {
	for _, db := range c.Databases() {
		db.Close()
	}
}
