package commands

import (
	"runtime"

	"github.com/spf13/cobra"
	"go.trai.ch/bench/internal/app"
)

func (c *CLI) newRunCmd() *cobra.Command {
	var (
		selects     []string
		force       bool
		parallelism int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate a query and execute the selected benchmarks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pred, err := parseSelectors(selects)
			if err != nil {
				return err
			}

			if err := c.components.App.LoadManifest(c.ManifestPath()); err != nil {
				return err
			}

			summary, runErr := c.components.App.Run(cmd.Context(), pred, app.RunOptions{
				Force:       force,
				Parallelism: parallelism,
			})

			cmd.Printf("units: %d  succeeded: %d  skipped: %d  failed: %d  cancelled: %d\n",
				summary.Total, summary.Succeeded, summary.Skipped, summary.Failed, summary.Cancelled)

			return runErr
		},
	}

	cmd.Flags().StringArrayVarP(&selects, "select", "s", nil,
		"Selector over instance attributes, e.g. 'workload=matmul' or 'device.kind in gpu,cpu' (repeatable, conjunctive)")
	cmd.Flags().BoolVarP(&force, "force", "f", false,
		"Bypass the result cache and recompute every unit")
	cmd.Flags().IntVarP(&parallelism, "parallelism", "p", runtime.NumCPU(),
		"Maximum number of concurrently dispatched units")

	return cmd
}
