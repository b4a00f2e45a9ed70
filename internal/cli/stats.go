package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

// NewStatsCommand creates the "stats" command.
func NewStatsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate index statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, cleanup, err := openRepository(opts)
			if err != nil {
				return err
			}
			defer cleanup()

			stats, err := repo.Stats(cmd.Context())
			if err != nil {
				return err
			}

			if opts.Format == "json" {
				return printJSON(cmd, stats)
			}

			keys := make([]string, 0, len(stats))
			for k := range stats {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(cmd.OutOrStdout(), "%-20s %d\n", k, stats[k])
			}
			return nil
		},
	}
}
