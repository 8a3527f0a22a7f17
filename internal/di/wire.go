package di

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/augur/internal/config"
)

// Wire initializes all dependencies and returns a fully configured container.
// Order of operations:
// 1. Initialize databases
// 2. Initialize repositories
// 3. Initialize services
// 4. Register work and jobs
//
// Nothing is started: the caller runs the processor and scheduler.
func Wire(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container, err := InitializeDatabases(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize databases: %w", err)
	}

	InitializeRepositories(container, log)

	if err := InitializeServices(ctx, container, cfg, log); err != nil {
		container.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := InitializeWork(container, cfg, log); err != nil {
		container.Close()
		return nil, fmt.Errorf("failed to initialize work: %w", err)
	}

	log.Info().Msg("Dependency injection wiring completed successfully")
	return container, nil
}

// Close releases the redis client and closes every database.
func (c *Container) Close() error {
	var first error
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			first = fmt.Errorf("failed to close redis client: %w", err)
		}
	}
	for _, db := range c.Databases() {
		if err := db.Close(); err != nil && first == nil {
			first = fmt.Errorf("failed to close %s database: %w", db.Name(), err)
		}
	}
	return first
}
