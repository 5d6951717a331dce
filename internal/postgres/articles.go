package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-resale-market.git/internal/market"
)

// ArticleRepo is the market.Ledger over the articles table.
type ArticleRepo struct{ DB *pgxpool.Pool }

var _ market.Ledger = (*ArticleRepo)(nil)

const articleCols = `a.id, a.barcode, a.description, a.category, a.price::text, a.list_id,
	l.edition_id, l.depositor_id, a.is_lot, a.lot_quantity, a.status`

func scanArticle(row rowScanner) (market.Article, error) {
	var (
		a      market.Article
		price  string
		status string
	)
	if err := row.Scan(&a.ID, &a.Barcode, &a.Description, &a.Category, &price, &a.ListID,
		&a.EditionID, &a.DepositorID, &a.IsLot, &a.LotQuantity, &status); err != nil {
		return market.Article{}, err
	}
	p, err := parseNumeric(price)
	if err != nil {
		return market.Article{}, err
	}
	a.Price = p
	a.Status = market.ArticleStatus(status)
	return a, nil
}

func (r *ArticleRepo) one(ctx context.Context, where string, arg any) (market.Article, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+articleCols+`
		FROM articles a JOIN item_lists l ON l.id = a.list_id
		WHERE `+where, arg)
	a, err := scanArticle(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return market.Article{}, fmt.Errorf("%w: article %v", market.ErrNotFound, arg)
	}
	return a, err
}

func (r *ArticleRepo) Article(ctx context.Context, id string) (market.Article, error) {
	return r.one(ctx, `a.id = $1`, id)
}

func (r *ArticleRepo) ArticleByBarcode(ctx context.Context, barcode string) (market.Article, error) {
	return r.one(ctx, `a.barcode = $1`, barcode)
}

func (r *ArticleRepo) ArticlesByList(ctx context.Context, listID string) ([]market.Article, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+articleCols+`
		FROM articles a JOIN item_lists l ON l.id = a.list_id
		WHERE a.list_id = $1 ORDER BY a.barcode`, listID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []market.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Claim is a single conditional UPDATE; Postgres row locking makes the
// available -> sold transition atomic across registers.
func (r *ArticleRepo) Claim(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE articles SET status = 'sold', updated_at = now()
		WHERE id = $1 AND status = 'available'`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 1 {
		return nil
	}
	return r.explain(ctx, id, market.ArticleAvailable)
}

func (r *ArticleRepo) Release(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE articles SET status = 'available', updated_at = now()
		WHERE id = $1 AND status = 'sold'`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 1 {
		return nil
	}
	return r.explain(ctx, id, market.ArticleSold)
}

// explain turns a conditional update that matched nothing into an error kind.
func (r *ArticleRepo) explain(ctx context.Context, id string, wanted market.ArticleStatus) error {
	var s string
	err := r.DB.QueryRow(ctx, `SELECT status FROM articles WHERE id = $1`, id).Scan(&s)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: article %s", market.ErrNotFound, id)
	}
	if err != nil {
		return err
	}
	if wanted == market.ArticleAvailable && market.ArticleStatus(s) == market.ArticleSold {
		return fmt.Errorf("%w: article %s", market.ErrAlreadySold, id)
	}
	return fmt.Errorf("%w: article %s is %s", market.ErrInvalidState, id, s)
}

// PutArticle inserts or replaces an article record; used by seeding tools.
func (r *ArticleRepo) PutArticle(ctx context.Context, a market.Article) error {
	if a.Status == "" {
		a.Status = market.ArticleAvailable
	}
	_, err := r.DB.Exec(ctx, `
		INSERT INTO articles(id, barcode, description, category, price, list_id, is_lot, lot_quantity, status)
		VALUES ($1, $2, $3, $4, $5::text::numeric, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			barcode = EXCLUDED.barcode, description = EXCLUDED.description, category = EXCLUDED.category,
			price = EXCLUDED.price, is_lot = EXCLUDED.is_lot, lot_quantity = EXCLUDED.lot_quantity,
			updated_at = now()`,
		a.ID, a.Barcode, a.Description, a.Category, a.Price.String(), a.ListID, a.IsLot, a.LotQuantity, string(a.Status))
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: barcode %s already used", market.ErrConflict, a.Barcode)
	}
	return err
}
