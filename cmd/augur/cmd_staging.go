package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newStagingCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "staging",
		Short: "Try a strategy in staging, then commit or discard it",
	}

	var flags replayFlags
	backfill := &cobra.Command{
		Use:   "backfill <strategy>",
		Short: "Replay a strategy and its complement into staging",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := a.container.Workbench.Backfill(cmd.Context(), args[0], flags.limit)
			if err != nil {
				return err
			}
			return a.printSummary(summary)
		},
	}
	flags.register(backfill, false)

	commit := &cobra.Command{
		Use:   "commit <strategy>",
		Short: "Promote staged records to production and activate the strategy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := a.container.Workbench.Commit(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.print(result, func(w *tabwriter.Writer) {
				fmt.Fprintf(w, "strategy\t%s\n", result.Strategy)
				fmt.Fprintf(w, "activated\t%v\n", result.Strategies)
				fmt.Fprintf(w, "promoted\t%d\n", result.Promoted)
				fmt.Fprintf(w, "replaced\t%d\n", result.Replaced)
			})
		},
	}

	discard := &cobra.Command{
		Use:   "discard <strategy>",
		Short: "Delete staged records of a strategy and its complement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := a.container.Workbench.Discard(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.print(map[string]interface{}{"strategy": args[0], "removed": removed}, func(w *tabwriter.Writer) {
				fmt.Fprintf(w, "removed\t%d\n", removed)
			})
		},
	}

	status := &cobra.Command{
		Use:   "status <strategy>",
		Short: "Show staged record counts and activation state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.container.Workbench.Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.print(st, func(w *tabwriter.Writer) {
				fmt.Fprintln(w, "STRATEGY\tSTAGED\tACTIVE")
				names := make([]string, 0, len(st.Records))
				for name := range st.Records {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					fmt.Fprintf(w, "%s\t%d\t%v\n", name, st.Records[name], st.Active[name])
				}
			})
		},
	}

	cmd.AddCommand(backfill, commit, discard, status)
	return cmd
}
