package cli

import (
	"fmt"

	"github.com/devrev/txstore/internal/model"
	"github.com/spf13/cobra"
)

// NewListStatusCommand creates the "list-status" command.
func NewListStatusCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list-status <owner-id> <status>",
		Short: "List an owner's records with the given status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := model.ParseStatus(args[1])
			if err != nil {
				return err
			}

			repo, cleanup, err := openRepository(opts)
			if err != nil {
				return err
			}
			defer cleanup()

			records, err := repo.ListByStatus(cmd.Context(), args[0], status)
			if err != nil {
				return err
			}

			if opts.Format == "json" {
				return printJSON(cmd, records)
			}

			if len(records) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No %s records for owner %s\n", status, args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d record(s):\n", len(records))
			for _, rec := range records {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s  seq=%d  amount=%s  dest=%s\n",
					rec.ID, rec.Sequence, rec.Amount, rec.Destination)
			}
			return nil
		},
	}
}
