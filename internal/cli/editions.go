package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ariefcatur/go-resale-market.git/internal/market"
)

func newEditionsCommand(opts *RootOptions, open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "editions",
		Short: "Open or close an edition",
	}
	cmd.AddCommand(
		editionStatusCommand(opts, open, "open", market.EditionOpen, "Reopen an edition for sales and cancellations"),
		editionStatusCommand(opts, open, "close", market.EditionClosed, "Close an edition so payouts can be computed"),
	)
	return cmd
}

func editionStatusCommand(opts *RootOptions, open Opener, use string, status market.EditionStatus, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <edition-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, opts, open, func(ctx context.Context, b *Backend) error {
				if err := b.Editions.SetStatus(ctx, args[0], status); err != nil {
					return err
				}
				e, err := b.Editions.Edition(ctx, args[0])
				if err != nil {
					return err
				}
				if opts.Format == "json" {
					return writeJSON(cmd.OutOrStdout(), e)
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "edition %s is %s\n", e.ID, e.Status)
				return err
			})
		},
	}
}
