package commands

import (
	"sort"

	"github.com/spf13/cobra"
)

func (c *CLI) newResultsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "results",
		Short: "List cached benchmark results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			results, err := c.components.Results.List()
			if err != nil {
				return err
			}

			for _, r := range results {
				cmd.Printf("%s  %-14s  %s  (%s)\n", r.Fingerprint, r.Status, r.Unit, r.Duration)
				metrics := make([]string, 0, len(r.Metrics))
				for name := range r.Metrics {
					metrics = append(metrics, name)
				}
				sort.Strings(metrics)
				for _, name := range metrics {
					cmd.Printf("    %s=%g\n", name, r.Metrics[name])
				}
				if r.Error != "" {
					cmd.Printf("    error: %s\n", r.Error)
				}
			}
			return nil
		},
	}
}
