package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	strategieshandlers "github.com/aristath/augur/internal/modules/strategies/handlers"
)

func newStrategiesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "strategies",
		Short: "Inspect the strategy catalog",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List registered strategies with their activation state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := a.container.ActiveSet.ActiveNames(cmd.Context())
			if err != nil {
				return err
			}
			active := make(map[string]bool, len(names))
			for _, n := range names {
				active[n] = true
			}

			descriptors := a.container.Registry.List()
			views := make([]strategieshandlers.StrategyView, len(descriptors))
			for i, d := range descriptors {
				views[i] = strategieshandlers.StrategyView{Descriptor: d, Active: active[d.Name]}
			}
			return a.print(views, func(w *tabwriter.Writer) {
				fmt.Fprintln(w, "NAME\tKIND\tSTATEFUL\tACTIVE\tDESCRIPTION")
				for _, v := range views {
					fmt.Fprintf(w, "%s\t%s\t%v\t%v\t%s\n", v.Name, v.Kind, v.Stateful, v.Active, v.Description)
				}
			})
		},
	}

	cmd.AddCommand(list)
	return cmd
}

func newRunsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect the replay audit trail",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List recent replay runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := a.container.RunRepo.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return a.print(runs, func(w *tabwriter.Writer) {
				fmt.Fprintln(w, "ID\tNAMESPACE\tMODE\tWEIGHTING\tSTATUS\tPROCESSED\tSKIPPED\tFAILED\tSTARTED")
				for _, r := range runs {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
						r.ID, r.Namespace, r.Mode, r.Weighting, r.Status,
						r.Processed, r.Skipped, r.Failed, r.StartedAt.Format(time.RFC3339))
				}
			})
		},
	}
	list.Flags().IntVar(&limit, "limit", 20, "Maximum runs to show")

	cmd.AddCommand(list)
	return cmd
}
