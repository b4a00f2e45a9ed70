package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewDropCommand creates the "drop" command.
func NewDropCommand(opts *RootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "drop",
		Short: "Delete every record and index entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to drop all data without --yes")
			}

			repo, cleanup, err := openRepository(opts)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := repo.DropAll(cmd.Context()); err != nil {
				return err
			}

			if opts.Format == "json" {
				return printJSON(cmd, map[string]bool{"dropped": true})
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All records and indexes dropped")
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the drop")

	return cmd
}
