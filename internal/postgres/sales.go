package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-resale-market.git/internal/market"
)

type SaleRepo struct{ DB *pgxpool.Pool }

var _ market.SaleStore = (*SaleRepo)(nil)

const saleCols = `id, COALESCE(client_id, ''), article_id, edition_id, list_id, depositor_id, price::text,
	payment_method, register_number, seller_id, sold_at, offline, synced_at, private_sale,
	cancelled_at, cancel_reason`

func scanSale(row rowScanner) (market.Sale, error) {
	var (
		s      market.Sale
		price  string
		method string
	)
	if err := row.Scan(&s.ID, &s.ClientID, &s.ArticleID, &s.EditionID, &s.ListID, &s.DepositorID, &price,
		&method, &s.RegisterNumber, &s.SellerID, &s.SoldAt, &s.Offline, &s.SyncedAt, &s.PrivateSale,
		&s.CancelledAt, &s.CancelReason); err != nil {
		return market.Sale{}, err
	}
	p, err := parseNumeric(price)
	if err != nil {
		return market.Sale{}, err
	}
	s.Price = p
	s.PaymentMethod = market.PaymentMethod(method)
	return s, nil
}

// CreateSale relies on the unique client_id and the partial unique index on
// active sales per article; either violation reports ErrConflict.
func (r *SaleRepo) CreateSale(ctx context.Context, s market.Sale) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO sales(id, client_id, article_id, edition_id, list_id, depositor_id, price,
			payment_method, register_number, seller_id, sold_at, offline, synced_at, private_sale)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7::text::numeric, $8, $9, $10, $11, $12, $13, $14)`,
		s.ID, s.ClientID, s.ArticleID, s.EditionID, s.ListID, s.DepositorID, s.Price.String(),
		string(s.PaymentMethod), s.RegisterNumber, s.SellerID, s.SoldAt, s.Offline, s.SyncedAt, s.PrivateSale)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: duplicate sale for article %s", market.ErrConflict, s.ArticleID)
	}
	return err
}

func (r *SaleRepo) one(ctx context.Context, what, where string, arg any) (market.Sale, error) {
	s, err := scanSale(r.DB.QueryRow(ctx, `SELECT `+saleCols+` FROM sales WHERE `+where, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return market.Sale{}, fmt.Errorf("%w: %s %v", market.ErrNotFound, what, arg)
	}
	return s, err
}

func (r *SaleRepo) Sale(ctx context.Context, id string) (market.Sale, error) {
	return r.one(ctx, "sale", `id = $1`, id)
}

func (r *SaleRepo) SaleByClientID(ctx context.Context, clientID string) (market.Sale, error) {
	return r.one(ctx, "client id", `client_id = $1`, clientID)
}

func (r *SaleRepo) ActiveSaleByArticle(ctx context.Context, articleID string) (market.Sale, error) {
	return r.one(ctx, "active sale for article", `article_id = $1 AND cancelled_at IS NULL`, articleID)
}

func (r *SaleRepo) VoidSale(ctx context.Context, id, reason string, at time.Time) (market.Sale, error) {
	s, err := scanSale(r.DB.QueryRow(ctx, `
		UPDATE sales SET cancelled_at = $2, cancel_reason = $3
		WHERE id = $1 AND cancelled_at IS NULL
		RETURNING `+saleCols, id, at, reason))
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return market.Sale{}, err
	}
	cur, err := r.Sale(ctx, id)
	if err != nil {
		return market.Sale{}, err
	}
	return cur, fmt.Errorf("%w: sale %s", market.ErrAlreadyCancelled, id)
}

// VoidAndRelease voids the sale and reopens its article in one transaction.
func (r *SaleRepo) VoidAndRelease(ctx context.Context, id, reason string, at time.Time) (market.Sale, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return market.Sale{}, err
	}
	defer tx.Rollback(ctx)

	s, err := scanSale(tx.QueryRow(ctx, `
		UPDATE sales SET cancelled_at = $2, cancel_reason = $3
		WHERE id = $1 AND cancelled_at IS NULL
		RETURNING `+saleCols, id, at, reason))
	if errors.Is(err, pgx.ErrNoRows) {
		cur, err := r.Sale(ctx, id)
		if err != nil {
			return market.Sale{}, err
		}
		return cur, fmt.Errorf("%w: sale %s", market.ErrAlreadyCancelled, id)
	}
	if err != nil {
		return market.Sale{}, err
	}

	ct, err := tx.Exec(ctx, `
		UPDATE articles SET status = 'available', updated_at = now()
		WHERE id = $1 AND status = 'sold'`, s.ArticleID)
	if err != nil {
		return market.Sale{}, err
	}
	if ct.RowsAffected() != 1 {
		return market.Sale{}, fmt.Errorf("%w: article %s is not sold", market.ErrInvalidState, s.ArticleID)
	}

	if err := tx.Commit(ctx); err != nil {
		return market.Sale{}, err
	}
	return s, nil
}

func (r *SaleRepo) SalesByEdition(ctx context.Context, editionID string) ([]market.Sale, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+saleCols+` FROM sales WHERE edition_id = $1 ORDER BY sold_at, id`, editionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []market.Sale
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
