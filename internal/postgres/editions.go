package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-resale-market.git/internal/market"
)

// EditionRepo serves both market.Editions and market.Catalog.
type EditionRepo struct{ DB *pgxpool.Pool }

var (
	_ market.Editions = (*EditionRepo)(nil)
	_ market.Catalog  = (*EditionRepo)(nil)
)

func (r *EditionRepo) Edition(ctx context.Context, id string) (market.Edition, error) {
	var (
		e      market.Edition
		status string
	)
	err := r.DB.QueryRow(ctx, `SELECT id, name, status FROM editions WHERE id = $1`, id).Scan(&e.ID, &e.Name, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return market.Edition{}, fmt.Errorf("%w: edition %s", market.ErrNotFound, id)
	}
	if err != nil {
		return market.Edition{}, err
	}
	e.Status = market.EditionStatus(status)
	return e, nil
}

func (r *EditionRepo) PutEdition(ctx context.Context, e market.Edition) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO editions(id, name, status) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, status = EXCLUDED.status`,
		e.ID, e.Name, string(e.Status))
	return err
}

func (r *EditionRepo) SetStatus(ctx context.Context, id string, status market.EditionStatus) error {
	ct, err := r.DB.Exec(ctx, `UPDATE editions SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: edition %s", market.ErrNotFound, id)
	}
	return nil
}

func (r *EditionRepo) ListsByEdition(ctx context.Context, editionID string) ([]market.ItemList, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, edition_id, number, depositor_id FROM item_lists
		WHERE edition_id = $1 ORDER BY number`, editionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []market.ItemList
	for rows.Next() {
		var l market.ItemList
		if err := rows.Scan(&l.ID, &l.EditionID, &l.Number, &l.DepositorID); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *EditionRepo) PutList(ctx context.Context, l market.ItemList) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO item_lists(id, edition_id, number, depositor_id) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET number = EXCLUDED.number, depositor_id = EXCLUDED.depositor_id`,
		l.ID, l.EditionID, l.Number, l.DepositorID)
	return err
}
