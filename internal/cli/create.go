package cli

import (
	"fmt"
	"strconv"

	"github.com/devrev/txstore/internal/model"
	"github.com/spf13/cobra"
)

// NewCreateCommand creates the "create" command.
func NewCreateCommand(opts *RootOptions) *cobra.Command {
	var feePrice, feeLimit uint64

	cmd := &cobra.Command{
		Use:   "create <owner-id> <sequence> <destination> <amount>",
		Short: "Create a new record",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			sequence, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid sequence %q: %w", args[1], err)
			}

			repo, cleanup, err := openRepository(opts)
			if err != nil {
				return err
			}
			defer cleanup()

			rec := model.NewRecord(args[0], sequence, args[2], args[3], feePrice, feeLimit)
			created, err := repo.Create(cmd.Context(), rec)
			if err != nil {
				return err
			}

			if opts.Format == "json" {
				return printJSON(cmd, created)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created record %s\n", created.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "  Owner:    %s\n", created.OwnerID)
			fmt.Fprintf(cmd.OutOrStdout(), "  Sequence: %d\n", created.Sequence)
			fmt.Fprintf(cmd.OutOrStdout(), "  Status:   %s\n", created.Status)
			return nil
		},
	}

	cmd.Flags().Uint64Var(&feePrice, "fee-price", 20000000000, "fee price")
	cmd.Flags().Uint64Var(&feeLimit, "fee-limit", 21000, "fee limit")

	return cmd
}
