package di

import (
	"github.com/rs/zerolog"

	performancehandlers "github.com/aristath/augur/internal/modules/performance/handlers"
	predictionshandlers "github.com/aristath/augur/internal/modules/predictions/handlers"
	rankinghandlers "github.com/aristath/augur/internal/modules/ranking/handlers"
	staginghandlers "github.com/aristath/augur/internal/modules/staging/handlers"
	strategieshandlers "github.com/aristath/augur/internal/modules/strategies/handlers"
	"github.com/aristath/augur/internal/server"
	"github.com/aristath/augur/internal/work"
)

// Routes returns the module handlers mounted by the HTTP server.
func (c *Container) Routes(log zerolog.Logger) []server.RouteRegistrar {
	return []server.RouteRegistrar{
		strategieshandlers.NewHandler(c.Registry, c.ActiveSet, log),
		rankinghandlers.NewHandler(c.RankingService, log),
		predictionshandlers.NewHandler(c.PredictionService, log),
		performancehandlers.NewHandler(c.RunRepo, log),
		staginghandlers.NewHandler(c.Workbench, log),
		work.NewHandlers(c.WorkProcessor, c.WorkRegistry),
	}
}

// ServerConfig builds the HTTP server configuration.
func (c *Container) ServerConfig(port int, devMode bool, log zerolog.Logger) server.Config {
	return server.Config{
		Log:       log,
		Port:      port,
		DevMode:   devMode,
		Databases: c.Databases(),
		Bus:       c.EventBus,
		Metrics:   c.Metrics,
		Routes:    c.Routes(log),
	}
}
