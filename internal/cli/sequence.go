package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewSequenceCommand creates the "sequence" command.
func NewSequenceCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sequence <owner-id> <sequence>",
		Short: "Look up an owner's record by sequence number",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			seq, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid sequence %q: %w", args[1], err)
			}

			repo, cleanup, err := openRepository(opts)
			if err != nil {
				return err
			}
			defer cleanup()

			rec, err := repo.GetBySequence(cmd.Context(), args[0], seq)
			if err != nil {
				return err
			}

			if rec == nil {
				if opts.Format == "json" {
					return printJSON(cmd, nil)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "No record at sequence %d for owner %s\n", seq, args[0])
				return nil
			}

			return printRecord(cmd, opts.Format, rec)
		},
	}
}
