package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-resale-market.git/internal/market"
)

type PayoutRepo struct{ DB *pgxpool.Pool }

var _ market.PayoutStore = (*PayoutRepo)(nil)

const payoutCols = `id, edition_id, list_id, depositor_id, gross_amount::text, commission_amount::text,
	list_fees::text, net_amount::text, total_articles, sold_articles, unsold_articles, status,
	payment_method, payment_reference, notes, paid_at, created_at, updated_at`

func scanPayout(row rowScanner, extra ...any) (market.Payout, error) {
	var (
		p                            market.Payout
		gross, commission, fees, net string
		status, method               string
	)
	dest := []any{&p.ID, &p.EditionID, &p.ListID, &p.DepositorID, &gross, &commission, &fees, &net,
		&p.TotalArticles, &p.SoldArticles, &p.UnsoldArticles, &status, &method, &p.PaymentReference,
		&p.Notes, &p.PaidAt, &p.CreatedAt, &p.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return market.Payout{}, err
	}
	var err error
	if p.Gross, err = parseNumeric(gross); err != nil {
		return market.Payout{}, err
	}
	if p.Commission, err = parseNumeric(commission); err != nil {
		return market.Payout{}, err
	}
	if p.ListFees, err = parseNumeric(fees); err != nil {
		return market.Payout{}, err
	}
	if p.Net, err = parseNumeric(net); err != nil {
		return market.Payout{}, err
	}
	p.Status = market.PayoutStatus(status)
	p.PaymentMethod = market.PayoutMethod(method)
	return p, nil
}

// UpsertPayout serializes concurrent calculations of one list on the
// list_id unique key. The WHERE on DO UPDATE leaves paid/cancelled rows alone.
func (r *PayoutRepo) UpsertPayout(ctx context.Context, p market.Payout) (market.Payout, market.UpsertOutcome, error) {
	var inserted bool
	stored, err := scanPayout(r.DB.QueryRow(ctx, `
		INSERT INTO payouts(id, edition_id, list_id, depositor_id, gross_amount, commission_amount, list_fees,
			net_amount, total_articles, sold_articles, unsold_articles, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::text::numeric, $6::text::numeric, $7::text::numeric, $8::text::numeric,
			$9, $10, $11, $12, $13, $14)
		ON CONFLICT (list_id) DO UPDATE SET
			depositor_id = EXCLUDED.depositor_id,
			gross_amount = EXCLUDED.gross_amount,
			commission_amount = EXCLUDED.commission_amount,
			list_fees = EXCLUDED.list_fees,
			net_amount = EXCLUDED.net_amount,
			total_articles = EXCLUDED.total_articles,
			sold_articles = EXCLUDED.sold_articles,
			unsold_articles = EXCLUDED.unsold_articles,
			updated_at = EXCLUDED.updated_at
		WHERE payouts.status IN ('pending', 'ready')
		RETURNING `+payoutCols+`, (xmax = 0)`,
		p.ID, p.EditionID, p.ListID, p.DepositorID, p.Gross.String(), p.Commission.String(), p.ListFees.String(),
		p.Net.String(), p.TotalArticles, p.SoldArticles, p.UnsoldArticles, string(p.Status), p.CreatedAt, p.UpdatedAt,
	), &inserted)
	switch {
	case err == nil && inserted:
		return stored, market.UpsertCreated, nil
	case err == nil:
		return stored, market.UpsertUpdated, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return market.Payout{}, "", err
	}
	cur, err := r.PayoutByList(ctx, p.ListID)
	if err != nil {
		return market.Payout{}, "", err
	}
	return cur, market.UpsertSkippedFinal, nil
}

func (r *PayoutRepo) one(ctx context.Context, where string, arg any) (market.Payout, error) {
	p, err := scanPayout(r.DB.QueryRow(ctx, `SELECT `+payoutCols+` FROM payouts WHERE `+where, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return market.Payout{}, fmt.Errorf("%w: payout %v", market.ErrNotFound, arg)
	}
	return p, err
}

func (r *PayoutRepo) Payout(ctx context.Context, id string) (market.Payout, error) {
	return r.one(ctx, `id = $1`, id)
}

func (r *PayoutRepo) PayoutByList(ctx context.Context, listID string) (market.Payout, error) {
	return r.one(ctx, `list_id = $1`, listID)
}

// UpdatePayout writes status and payment fields if the row is still in from.
// Amounts are owned by UpsertPayout and never written here.
func (r *PayoutRepo) UpdatePayout(ctx context.Context, p market.Payout, from market.PayoutStatus) (market.Payout, error) {
	out, err := scanPayout(r.DB.QueryRow(ctx, `
		UPDATE payouts SET status = $2, payment_method = $3, payment_reference = $4, notes = $5,
			paid_at = $6, updated_at = $7
		WHERE id = $1 AND status = $8
		RETURNING `+payoutCols,
		p.ID, string(p.Status), string(p.PaymentMethod), p.PaymentReference, p.Notes, p.PaidAt, p.UpdatedAt, string(from)))
	if err == nil {
		return out, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return market.Payout{}, err
	}
	cur, err := r.Payout(ctx, p.ID)
	if err != nil {
		return market.Payout{}, err
	}
	return cur, fmt.Errorf("%w: payout %s is %s, expected %s", market.ErrInvalidState, p.ID, cur.Status, from)
}
