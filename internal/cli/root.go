// Package cli implements marketctl, the organizer's command line for
// closing editions and settling payouts.
package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/ariefcatur/go-resale-market.git/internal/market"
	"github.com/ariefcatur/go-resale-market.git/internal/payout"
)

var ValidFormats = []string{"text", "json"}

type RootOptions struct {
	Format string
	DSN    string
}

// EditionAdmin flips an edition between open and closed.
type EditionAdmin interface {
	Edition(ctx context.Context, id string) (market.Edition, error)
	SetStatus(ctx context.Context, id string, status market.EditionStatus) error
}

// Backend is what a command runs against. Close flushes any pending events.
type Backend struct {
	Editions EditionAdmin
	Payouts  *payout.Calculator
	Migrate  func(ctx context.Context) error
	Close    func()
}

type Opener func(ctx context.Context, opts *RootOptions) (*Backend, error)

func NewRootCommand(open Opener) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "marketctl",
		Short: "Operate a resale market edition",
		Long:  "Open and close editions, compute depositor payouts and record their settlement.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.DSN, "dsn", "", "postgres DSN (defaults to POSTGRES_DSN)")

	cmd.AddCommand(newMigrateCommand(opts, open))
	cmd.AddCommand(newEditionsCommand(opts, open))
	cmd.AddCommand(newPayoutsCommand(opts, open))
	return cmd
}

// withBackend opens a backend for one command run.
func withBackend(cmd *cobra.Command, opts *RootOptions, open Opener, fn func(ctx context.Context, b *Backend) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	b, err := open(ctx, opts)
	if err != nil {
		return fmt.Errorf("open backend: %w", err)
	}
	if b.Close != nil {
		defer b.Close()
	}
	return fn(ctx, b)
}

func newMigrateCommand(opts *RootOptions, open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, opts, open, func(ctx context.Context, b *Backend) error {
				if b.Migrate == nil {
					return fmt.Errorf("backend has no schema to apply")
				}
				if err := b.Migrate(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
				return nil
			})
		},
	}
}
