package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/aristath/augur/internal/domain"
)

func newRankingCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ranking",
		Short: "Recompute or show the strategy ranking",
	}

	refresh := &cobra.Command{
		Use:   "refresh",
		Short: "Recompute rolling average accuracy for every active strategy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := a.container.RankingService.Refresh(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(result, func(w *tabwriter.Writer) {
				fmt.Fprintf(w, "ranked\t%d\n", len(result.Ranked))
				fmt.Fprintf(w, "omitted\t%s\n", strings.Join(result.Omitted, ", "))
				for _, name := range sortedKeys(result.Failed) {
					fmt.Fprintf(w, "failed\t%s: %s\n", name, result.Failed[name])
				}
			})
		},
	}

	show := &cobra.Command{
		Use:   "show [strategy]",
		Short: "Show the ranking, best first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var entries []domain.RankingEntry
			if len(args) == 1 {
				entry, err := a.container.RankingService.Entry(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				entries = []domain.RankingEntry{*entry}
			} else {
				var err error
				if entries, err = a.container.RankingService.Get(cmd.Context()); err != nil {
					return err
				}
			}
			return a.print(entries, func(w *tabwriter.Writer) {
				fmt.Fprintln(w, "#\tSTRATEGY\tAVG ACCURACY\tSAMPLES\tUPDATED")
				for i, e := range entries {
					fmt.Fprintf(w, "%d\t%s\t%.2f\t%d\t%s\n",
						i+1, e.Strategy, e.AvgAccuracy, e.SampleCount, e.LastUpdated.Format(time.RFC3339))
				}
			})
		},
	}

	cmd.AddCommand(refresh, show)
	return cmd
}

func newCacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Refresh or show cached next-draw predictions",
	}

	refresh := &cobra.Command{
		Use:   "refresh",
		Short: "Predict the next draw for every active strategy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := a.container.PredictionService.Refresh(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(result, func(w *tabwriter.Writer) {
				fmt.Fprintf(w, "refreshed\t%d\n", len(result.Refreshed))
				fmt.Fprintf(w, "duration\t%s\n", result.Duration)
				for _, name := range sortedKeys(result.Failed) {
					fmt.Fprintf(w, "failed\t%s: %s\n", name, result.Failed[name])
				}
			})
		},
	}

	show := &cobra.Command{
		Use:   "show [strategy]",
		Short: "Show cached predictions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var cached []domain.CachedPrediction
			if len(args) == 1 {
				p, err := a.container.PredictionService.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if p == nil {
					return fmt.Errorf("no cached prediction for %s yet, run cache refresh", args[0])
				}
				cached = []domain.CachedPrediction{*p}
			} else {
				var err error
				if cached, err = a.container.PredictionService.List(cmd.Context()); err != nil {
					return err
				}
			}
			return a.print(cached, func(w *tabwriter.Writer) {
				fmt.Fprintln(w, "STRATEGY\tCANDIDATES\tUPDATED")
				for _, p := range cached {
					fmt.Fprintf(w, "%s\t%s\t%s\n", p.Strategy, joinInts(p.Candidates), p.UpdatedAt.Format(time.RFC3339))
				}
			})
		},
	}

	cmd.AddCommand(refresh, show)
	return cmd
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, " ")
}
