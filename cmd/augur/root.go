package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aristath/augur/internal/config"
	"github.com/aristath/augur/internal/di"
	"github.com/aristath/augur/pkg/logger"
)

// app is the state shared by every subcommand.
type app struct {
	cfg       *config.Config
	log       zerolog.Logger
	container *di.Container
	out       io.Writer
	jsonOut   bool
}

// execute runs the command line and closes the container afterwards, also
// when the command failed.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a := &app{}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if cerr := a.close(); err == nil {
		err = cerr
	}
	return err
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "augur",
		Short: "Prediction ensemble and incremental backtesting engine",
		Long: `augur replays prediction strategies against the draw history, keeps a
rolling accuracy ranking, builds medal ensembles from it and caches the next
prediction of every active strategy.

Configuration comes from environment variables (and an optional .env file).`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "Print results as JSON")

	root.AddCommand(
		newImportCmd(a),
		newBackfillCmd(a),
		newStagingCmd(a),
		newRankingCmd(a),
		newCacheCmd(a),
		newStrategiesCmd(a),
		newRunsCmd(a),
		newBackupCmd(a),
		newServeCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	a.cfg = cfg
	a.out = cmd.OutOrStdout()
	a.log = logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
		Output: cmd.ErrOrStderr(),
	})

	container, err := di.Wire(cmd.Context(), cfg, a.log)
	if err != nil {
		return fmt.Errorf("failed to wire dependencies: %w", err)
	}
	a.container = container
	return nil
}

func (a *app) close() error {
	if a.container == nil {
		return nil
	}
	err := a.container.Close()
	a.container = nil
	return err
}

// print writes v as JSON when --json is set, otherwise calls table.
func (a *app) print(v interface{}, table func(w *tabwriter.Writer)) error {
	if a.jsonOut {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	table(w)
	return w.Flush()
}
