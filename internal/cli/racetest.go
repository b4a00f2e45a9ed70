package cli

import (
	"fmt"

	"github.com/devrev/txstore/internal/model"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewRaceTestCommand creates the "race-test" command. It fires N
// concurrent status updates at a single record and then reports how
// many of the owner's status sets still reference it, which makes
// dangling index entries visible in the field.
func NewRaceTestCommand(opts *RootOptions) *cobra.Command {
	var updates int
	var keep bool

	cmd := &cobra.Command{
		Use:   "race-test",
		Short: "Stress a single record with concurrent status updates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if updates <= 0 {
				return fmt.Errorf("--updates must be positive, got %d", updates)
			}

			repo, cleanup, err := openRepository(opts)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := cmd.Context()
			rec, err := repo.Create(ctx, model.NewRecord("race-owner", 0, "0xracetest", "1", 20_000_000_000, 21_000))
			if err != nil {
				return err
			}

			statuses := model.AllStatuses()
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(8)
			for i := 0; i < updates; i++ {
				i := i
				g.Go(func() error {
					next := rec.Clone()
					next.Status = statuses[i%len(statuses)]
					_, err := repo.Update(gctx, next)
					return err
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			// Count which status sets still hold the record. A clean
			// run shows exactly one membership.
			memberships := 0
			counts := make(map[string]int, len(statuses))
			for _, s := range statuses {
				recs, err := repo.ListByStatus(ctx, rec.OwnerID, s)
				if err != nil {
					return err
				}
				for _, got := range recs {
					if got.ID == rec.ID {
						memberships++
						counts[string(s)]++
					}
				}
			}

			if !keep {
				if err := repo.Delete(ctx, rec.ID); err != nil {
					return err
				}
			}

			result := map[string]any{
				"record_id":   rec.ID,
				"updates":     updates,
				"memberships": memberships,
				"by_status":   counts,
			}
			if opts.Format == "json" {
				return printJSON(cmd, result)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Record %s indexed in %d status set(s) after %d concurrent updates\n",
				rec.ID, memberships, updates)
			for _, s := range statuses {
				if n := counts[string(s)]; n > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s: %d\n", s, n)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&updates, "updates", 50, "number of concurrent status updates")
	cmd.Flags().BoolVar(&keep, "keep", false, "keep the test record instead of deleting it")

	return cmd
}
