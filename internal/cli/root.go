// Package cli wires the repository into a command-line front end.
package cli

import (
	"encoding/json"
	"fmt"

	"github.com/devrev/txstore/internal/metrics"
	"github.com/devrev/txstore/internal/model"
	"github.com/devrev/txstore/internal/repository"
	"github.com/devrev/txstore/internal/server"
	"github.com/devrev/txstore/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	RedisURL    string
	InMemory    bool
	Verbose     bool
	Format      string // "json" | "text"
	MetricsPort int
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the txstore CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "txstore",
		Short:         "Atomically indexed record store",
		Long:          "Manages records in a key-value store with atomically maintained status, sequence and owner indexes.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.RedisURL, "redis-url", "redis://127.0.0.1:6379", "Redis connection URL")
	cmd.PersistentFlags().BoolVar(&opts.InMemory, "in-memory", false, "use an in-process store (demo mode, state is not persisted)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().IntVar(&opts.MetricsPort, "metrics-port", 0, "serve Prometheus metrics on this port while the command runs (0 disables)")

	cmd.AddCommand(NewCreateCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewUpdateCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewListStatusCommand(opts))
	cmd.AddCommand(NewSequenceCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewDropCommand(opts))
	cmd.AddCommand(NewBenchmarkCommand(opts))
	cmd.AddCommand(NewRaceTestCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// openRepository builds the repository and everything around it. The
// returned cleanup must be called when the command finishes.
func openRepository(opts *RootOptions) (*repository.Repository, func(), error) {
	logger, err := newLogger(opts.Verbose)
	if err != nil {
		return nil, nil, err
	}

	var kv store.Store
	if opts.InMemory {
		kv = store.NewMemStore()
	} else {
		kv, err = store.NewRedisStoreFromURL(opts.RedisURL, logger)
		if err != nil {
			return nil, nil, err
		}
	}

	repoOpts := []repository.Option{}
	var srv *server.MetricsServer
	if opts.MetricsPort > 0 {
		m := metrics.NewMetrics()
		repoOpts = append(repoOpts, repository.WithMetrics(m))
		srv = server.New(&server.Config{Port: opts.MetricsPort}, kv, logger)
		srv.Start()
	}

	repo := repository.New(kv, logger, repoOpts...)

	cleanup := func() {
		if srv != nil {
			_ = srv.Stop()
		}
		_ = kv.Close()
		_ = logger.Sync()
	}
	return repo, cleanup, nil
}

// newLogger builds the CLI logger. Non-verbose runs only surface warnings
// so command output stays clean.
func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		return cfg.Build()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

// printRecord writes one record in the selected format.
func printRecord(cmd *cobra.Command, format string, rec *model.Record) error {
	if format == "json" {
		return printJSON(cmd, rec)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:          %s\n", rec.ID)
	fmt.Fprintf(out, "Owner:       %s\n", rec.OwnerID)
	fmt.Fprintf(out, "Sequence:    %d\n", rec.Sequence)
	fmt.Fprintf(out, "Status:      %s\n", rec.Status)
	fmt.Fprintf(out, "Destination: %s\n", rec.Destination)
	fmt.Fprintf(out, "Amount:      %s\n", rec.Amount)
	fmt.Fprintf(out, "Fee Price:   %d\n", rec.FeePrice)
	fmt.Fprintf(out, "Fee Limit:   %d\n", rec.FeeLimit)
	if rec.ExternalRef != "" {
		fmt.Fprintf(out, "Ref:         %s\n", rec.ExternalRef)
	}
	fmt.Fprintf(out, "Created:     %s\n", rec.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Updated:     %s\n", rec.UpdatedAt.Format("2006-01-02 15:04:05"))
	return nil
}

// printJSON writes any value as indented JSON.
func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
