package market

import (
	"context"
	"time"
)

// Ledger is the authoritative record of article sale status. Claim is the
// only way an article becomes sold and must be an atomic conditional update:
// two concurrent claims on one article never both succeed.
type Ledger interface {
	Article(ctx context.Context, id string) (Article, error)
	ArticleByBarcode(ctx context.Context, barcode string) (Article, error)
	ArticlesByList(ctx context.Context, listID string) ([]Article, error)
	// Claim moves available -> sold. ErrNotFound, ErrAlreadySold, or
	// ErrInvalidState for a withdrawn article.
	Claim(ctx context.Context, id string) error
	// Release moves sold -> available. ErrInvalidState if the article is not sold.
	Release(ctx context.Context, id string) error
}

type SaleStore interface {
	// CreateSale fails with ErrConflict when the article already has an
	// active sale or the client id was already used.
	CreateSale(ctx context.Context, s Sale) error
	Sale(ctx context.Context, id string) (Sale, error)
	SaleByClientID(ctx context.Context, clientID string) (Sale, error)
	ActiveSaleByArticle(ctx context.Context, articleID string) (Sale, error)
	// VoidSale marks the sale cancelled. ErrAlreadyCancelled if it already was.
	VoidSale(ctx context.Context, id, reason string, at time.Time) (Sale, error)
	// VoidAndRelease voids the sale and moves its article sold -> available
	// as one atomic step: either both happen or neither does.
	VoidAndRelease(ctx context.Context, id, reason string, at time.Time) (Sale, error)
	SalesByEdition(ctx context.Context, editionID string) ([]Sale, error)
}

type UpsertOutcome string

const (
	UpsertCreated      UpsertOutcome = "created"
	UpsertUpdated      UpsertOutcome = "updated"
	UpsertSkippedFinal UpsertOutcome = "skipped_final"
)

type PayoutStore interface {
	// UpsertPayout is keyed by list id. An existing pending/ready payout gets
	// its amounts and counts replaced in place; a paid/cancelled one is
	// returned unchanged with UpsertSkippedFinal.
	UpsertPayout(ctx context.Context, p Payout) (Payout, UpsertOutcome, error)
	Payout(ctx context.Context, id string) (Payout, error)
	PayoutByList(ctx context.Context, listID string) (Payout, error)
	// UpdatePayout writes the lifecycle fields of p (status, payment method,
	// reference, notes, paid_at, updated_at) only if the stored status still
	// equals from. Amounts and counts are owned by UpsertPayout and are never
	// written here; the stored payout is returned.
	UpdatePayout(ctx context.Context, p Payout, from PayoutStatus) (Payout, error)
}

type Catalog interface {
	ListsByEdition(ctx context.Context, editionID string) ([]ItemList, error)
}

type Editions interface {
	Edition(ctx context.Context, id string) (Edition, error)
}

type FeeSource interface {
	Rates(ctx context.Context, editionID string) (FeeRates, error)
}

// AuditSink is fire-and-forget.
type AuditSink interface {
	Record(ctx context.Context, ev AuditEvent)
}

type Notifier interface {
	PayoutReady(ctx context.Context, p Payout)
}

type NopAudit struct{}

func (NopAudit) Record(context.Context, AuditEvent) {}

type NopNotifier struct{}

func (NopNotifier) PayoutReady(context.Context, Payout) {}
