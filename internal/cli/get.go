package cli

import (
	"github.com/spf13/cobra"
)

// NewGetCommand creates the "get" command.
func NewGetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a record by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, cleanup, err := openRepository(opts)
			if err != nil {
				return err
			}
			defer cleanup()

			rec, err := repo.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printRecord(cmd, opts.Format, rec)
		},
	}
}
