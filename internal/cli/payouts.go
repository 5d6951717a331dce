package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/ariefcatur/go-resale-market.git/internal/payout"
)

type payOptions struct {
	Method    string
	Reference string
	Notes     string
}

func newPayoutsCommand(opts *RootOptions, open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payouts",
		Short: "Compute and settle depositor payouts",
	}

	calculate := &cobra.Command{
		Use:   "calculate <edition-id>",
		Short: "Compute one payout per item list of a closed edition",
		Long: `Compute one payout per item list of a closed edition.

Re-running refreshes pending and ready payouts; paid and cancelled payouts
are left untouched and reported as skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, opts, open, func(ctx context.Context, b *Backend) error {
				sum, err := b.Payouts.Calculate(ctx, args[0])
				if err != nil {
					return err
				}
				return printSummary(cmd.OutOrStdout(), opts.Format, sum)
			})
		},
	}

	get := &cobra.Command{
		Use:   "get <payout-id>",
		Short: "Show a payout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, opts, open, func(ctx context.Context, b *Backend) error {
				p, err := b.Payouts.Get(ctx, args[0])
				if err != nil {
					return err
				}
				return printPayout(cmd.OutOrStdout(), opts.Format, p)
			})
		},
	}

	ready := &cobra.Command{
		Use:   "ready <payout-id>",
		Short: "Mark a pending payout ready and notify the depositor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, opts, open, func(ctx context.Context, b *Backend) error {
				p, err := b.Payouts.MarkReady(ctx, args[0])
				if err != nil {
					return err
				}
				return printPayout(cmd.OutOrStdout(), opts.Format, p)
			})
		},
	}

	pay := &payOptions{}
	payCmd := &cobra.Command{
		Use:   "pay <payout-id>",
		Short: "Record the settlement of a ready payout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, opts, open, func(ctx context.Context, b *Backend) error {
				p, err := b.Payouts.RecordPayment(ctx, args[0], payout.PaymentRequest{
					Method:    pay.Method,
					Reference: pay.Reference,
					Notes:     pay.Notes,
				})
				if err != nil {
					return err
				}
				return printPayout(cmd.OutOrStdout(), opts.Format, p)
			})
		},
	}
	payCmd.Flags().StringVar(&pay.Method, "method", "", "cash|check|transfer (required)")
	_ = payCmd.MarkFlagRequired("method")
	payCmd.Flags().StringVar(&pay.Reference, "reference", "", "check number or transfer reference")
	payCmd.Flags().StringVar(&pay.Notes, "notes", "", "free-form notes")

	var cancelNotes string
	cancel := &cobra.Command{
		Use:   "cancel <payout-id>",
		Short: "Cancel a pending or ready payout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, opts, open, func(ctx context.Context, b *Backend) error {
				p, err := b.Payouts.Cancel(ctx, args[0], cancelNotes)
				if err != nil {
					return err
				}
				return printPayout(cmd.OutOrStdout(), opts.Format, p)
			})
		},
	}
	cancel.Flags().StringVar(&cancelNotes, "notes", "", "reason for cancelling")

	cmd.AddCommand(calculate, get, ready, payCmd, cancel)
	return cmd
}
