package cli

import (
	"fmt"

	"github.com/devrev/txstore/internal/model"
	"github.com/spf13/cobra"
)

// NewUpdateCommand creates the "update" command.
func NewUpdateCommand(opts *RootOptions) *cobra.Command {
	var ref string
	var guarded bool

	cmd := &cobra.Command{
		Use:   "update <id> <status>",
		Short: "Update a record's status",
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

			rec, err := repo.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			rec.Status = status
			if ref != "" {
				rec.ExternalRef = ref
			}

			var updated *model.Record
			if guarded {
				updated, err = repo.UpdateGuarded(cmd.Context(), rec)
			} else {
				updated, err = repo.Update(cmd.Context(), rec)
			}
			if err != nil {
				return err
			}

			if opts.Format == "json" {
				return printJSON(cmd, updated)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated record %s to status %s\n", updated.ID, updated.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&ref, "ref", "", "external reference (e.g. settlement hash)")
	cmd.Flags().BoolVar(&guarded, "guarded", false, "reject the update if a concurrent writer got there first")

	return cmd
}
