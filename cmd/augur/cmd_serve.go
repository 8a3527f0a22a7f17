package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/aristath/augur/internal/server"
)

const shutdownTimeout = 30 * time.Second

func newBackupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Upload a snapshot of every database to S3-compatible storage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.container.BackupService == nil {
				return fmt.Errorf("backups are disabled, set BACKUP_ENABLED=true")
			}
			name, err := a.container.BackupService.Backup(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(map[string]string{"backup": name}, func(w *tabwriter.Writer) {
				fmt.Fprintf(w, "uploaded\t%s\n", name)
			})
		},
	}
}

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the scheduler and the work processor",
		Long: `serve exposes the read API and runs the scheduled pipeline: incremental
replay, then ranking refresh, then prediction cache refresh. It stops
gracefully on SIGINT or SIGTERM; an interrupted replay resumes on the next run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	c := a.container
	log := a.log.With().Str("component", "serve").Logger()

	srv := server.New(c.ServerConfig(a.cfg.Port, a.cfg.DevMode, a.log))

	go c.WorkProcessor.Run()
	log.Info().Msg("Work processor started")

	c.Scheduler.Start()
	for _, e := range c.Scheduler.Entries() {
		log.Info().Str("job", e.Name).Str("schedule", e.Schedule).Time("next", e.Next).Msg("Job scheduled")
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("Shutdown signal received")
	case serveErr = <-errCh:
		log.Error().Err(serveErr).Msg("HTTP server stopped")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to shut down HTTP server")
	}
	c.Scheduler.Stop()
	c.WorkProcessor.Stop()

	log.Info().Msg("Shutdown complete")
	return serveErr
}
