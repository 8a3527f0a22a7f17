package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aristath/augur/internal/domain"
	"github.com/aristath/augur/internal/modules/backtest"
)

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import draws from a CSV file",
		Long: `Import draws from CSV. Each row is: id, date, primary numbers, secondary numbers.
Use - to read from stdin. Draws already stored are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open %s: %w", args[0], err)
				}
				defer f.Close()
				in = f
			}

			result, err := a.container.Importer.Import(cmd.Context(), in)
			if err != nil {
				return err
			}
			return a.print(result, func(w *tabwriter.Writer) {
				fmt.Fprintf(w, "read\t%d\n", result.Read)
				fmt.Fprintf(w, "inserted\t%d\n", result.Inserted)
				fmt.Fprintf(w, "skipped\t%d\n", result.Skipped)
			})
		},
	}
}

// replayFlags are shared by backfill and staging backfill.
type replayFlags struct {
	strategies []string
	from       int64
	to         int64
	limit      int
	mode       string
	weighting  string
}

func (f *replayFlags) register(cmd *cobra.Command, withStrategies bool) {
	if withStrategies {
		cmd.Flags().StringSliceVarP(&f.strategies, "strategy", "s", nil, "Strategies to replay (default: every active strategy)")
		cmd.Flags().Int64Var(&f.from, "from", 0, "First target draw ID")
		cmd.Flags().Int64Var(&f.to, "to", 0, "Last target draw ID")
		cmd.Flags().StringVar(&f.mode, "mode", string(domain.ModeIncremental), "Replay mode: incremental or windowed")
		cmd.Flags().StringVar(&f.weighting, "weighting", string(domain.WeightingPointInTime), "Ensemble weighting: point_in_time or snapshot")
	}
	cmd.Flags().IntVar(&f.limit, "limit", 0, "Replay only the most recent N draws")
}

func (f *replayFlags) options() (backtest.Options, error) {
	opts := backtest.Options{
		Strategies: f.strategies,
		FromDraw:   f.from,
		ToDraw:     f.to,
		Limit:      f.limit,
		Mode:       domain.ReplayMode(f.mode),
		Weighting:  domain.Weighting(f.weighting),
	}
	switch opts.Mode {
	case domain.ModeIncremental, domain.ModeWindowed:
	default:
		return opts, fmt.Errorf("unknown mode %q", f.mode)
	}
	switch opts.Weighting {
	case domain.WeightingPointInTime, domain.WeightingSnapshot:
	default:
		return opts, fmt.Errorf("unknown weighting %q", f.weighting)
	}
	if f.limit < 0 {
		return opts, fmt.Errorf("limit must not be negative")
	}
	return opts, nil
}

func newBackfillCmd(a *app) *cobra.Command {
	var flags replayFlags
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Replay strategies into production performance records",
		Long: `Replay strategies over history and record each prediction's accuracy.
Records that already exist are skipped, so backfill can be re-run or resumed
after an interruption. Inactive (staged) strategies are rejected.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options()
			if err != nil {
				return err
			}
			summary, err := a.container.Simulator.Run(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return a.printSummary(summary)
		},
	}
	flags.register(cmd, true)
	return cmd
}

func (a *app) printSummary(s *backtest.Summary) error {
	return a.print(s, func(w *tabwriter.Writer) {
		fmt.Fprintf(w, "run\t%s\n", s.RunID)
		fmt.Fprintf(w, "namespace\t%s\n", s.Namespace)
		fmt.Fprintf(w, "mode\t%s\n", s.Mode)
		fmt.Fprintf(w, "weighting\t%s\n", s.Weighting)
		if s.LookAhead {
			fmt.Fprintf(w, "warning\tensemble weights used the current ranking (look-ahead)\n")
		}
		fmt.Fprintf(w, "status\t%s\n", s.Status)
		fmt.Fprintf(w, "draws\t%d (%d..%d)\n", s.Draws, s.FromDraw, s.ToDraw)
		fmt.Fprintf(w, "duration\t%s\n", s.Duration)
		fmt.Fprintln(w)

		fmt.Fprintln(w, "STRATEGY\tPROCESSED\tSKIPPED\tFAILED")
		names := make([]string, 0, len(s.Strategies))
		for name := range s.Strategies {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			c := s.Strategies[name]
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", name, c.Processed, c.Skipped, c.Failed)
		}
		fmt.Fprintf(w, "total\t%d\t%d\t%d\n", s.Processed, s.Skipped, s.Failed)
	})
}
