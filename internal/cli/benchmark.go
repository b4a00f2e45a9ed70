package cli

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/devrev/txstore/internal/model"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewBenchmarkCommand creates the "benchmark" command. It spreads
// concurrent record creations across a handful of synthetic owners and
// reports write throughput.
func NewBenchmarkCommand(opts *RootOptions) *cobra.Command {
	var count int
	var workers int

	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Measure indexed write throughput",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count <= 0 {
				return fmt.Errorf("--count must be positive, got %d", count)
			}

			repo, cleanup, err := openRepository(opts)
			if err != nil {
				return err
			}
			defer cleanup()

			const owners = 10
			var created atomic.Int64
			var failed atomic.Int64

			start := time.Now()
			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(workers)
			for i := 0; i < count; i++ {
				i := i
				g.Go(func() error {
					owner := fmt.Sprintf("bench-owner-%02d", i%owners)
					rec := model.NewRecord(owner, uint64(i/owners), "0xbenchmark", "1000000", 20_000_000_000, 21_000)
					if _, err := repo.Create(ctx, rec); err != nil {
						failed.Add(1)
						return err
					}
					created.Add(1)
					return nil
				})
			}
			runErr := g.Wait()
			elapsed := time.Since(start)

			ok := created.Load()
			result := map[string]any{
				"created":    ok,
				"failed":     failed.Load(),
				"elapsed_ms": elapsed.Milliseconds(),
				"per_second": float64(ok) / elapsed.Seconds(),
			}

			if opts.Format == "json" {
				if err := printJSON(cmd, result); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Created %d records in %s (%.0f/s, %d failed)\n",
					ok, elapsed.Round(time.Millisecond), float64(ok)/elapsed.Seconds(), failed.Load())
			}
			return runErr
		},
	}

	cmd.Flags().IntVar(&count, "count", 1000, "number of records to create")
	cmd.Flags().IntVar(&workers, "workers", 16, "concurrent writers")

	return cmd
}
