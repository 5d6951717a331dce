package syncer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ariefcatur/go-resale-market.git/internal/market"
)

const (
	DefaultMaxBatch = 500
	DefaultWorkers  = 8
)

type Status string

const (
	StatusSynced   Status = "synced"
	StatusConflict Status = "conflict"
	StatusError    Status = "error"
)

type Result struct {
	ClientID  string `json:"client_id"`
	ArticleID string `json:"article_id"`
	Status    Status `json:"status"`
	SaleID    string `json:"sale_id,omitempty"`
	Kind      string `json:"error_kind,omitempty"`
	Message   string `json:"message,omitempty"`
}

type Summary struct {
	Results   []Result `json:"results"`
	Synced    int      `json:"synced"`
	Conflicts int      `json:"conflicts"`
	Errors    int      `json:"errors"`
}

// IdempotencyCache is an optional fast path in front of SaleByClientID. The
// sale store stays the source of truth.
type IdempotencyCache interface {
	Lookup(ctx context.Context, clientID string) (saleID string, ok bool)
	Remember(ctx context.Context, clientID, saleID string)
}

// Reconciler replays offline sales from a register against the ledger.
type Reconciler struct {
	Ledger   market.Ledger
	Sales    market.SaleStore
	Cache    IdempotencyCache
	Audit    market.AuditSink
	Window   market.PrivateSaleWindow
	Logger   *zap.Logger
	Now      func() time.Time
	MaxBatch int
	Workers  int

	articles keyLock
}

func (r *Reconciler) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now().UTC()
}

func (r *Reconciler) log() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

func (r *Reconciler) maxBatch() int {
	if r.MaxBatch <= 0 {
		return DefaultMaxBatch
	}
	return r.MaxBatch
}

func (r *Reconciler) workers() int {
	if r.Workers <= 0 {
		return DefaultWorkers
	}
	return r.Workers
}

// SyncBatch gives every record its own outcome; one bad record never aborts
// the batch. The only error returned is for an oversized batch.
//
// Records touching the same article run sequentially in sold_at order so the
// earliest sale keeps the article; different articles run in parallel.
func (r *Reconciler) SyncBatch(ctx context.Context, records []market.OfflineSaleRecord) (Summary, error) {
	if len(records) > r.maxBatch() {
		return Summary{}, fmt.Errorf("%w: batch of %d records exceeds limit %d", market.ErrInvalidArgument, len(records), r.maxBatch())
	}

	results := make([]Result, len(records))
	groups := map[string][]int{}
	var order []string
	for i, rec := range records {
		if rec.ClientID == "" || rec.ArticleID == "" {
			results[i] = errorResult(rec, fmt.Errorf("%w: client_id and article_id are required", market.ErrInvalidArgument))
			continue
		}
		if _, ok := groups[rec.ArticleID]; !ok {
			order = append(order, rec.ArticleID)
		}
		groups[rec.ArticleID] = append(groups[rec.ArticleID], i)
	}

	g := new(errgroup.Group)
	g.SetLimit(r.workers())
	for _, articleID := range order {
		idx := groups[articleID]
		sort.SliceStable(idx, func(a, b int) bool {
			return records[idx[a]].SoldAt.Before(records[idx[b]].SoldAt)
		})
		g.Go(func() error {
			for _, i := range idx {
				// each index is written by exactly one goroutine
				results[i] = r.syncOne(ctx, records[i])
			}
			return nil
		})
	}
	_ = g.Wait()

	sum := Summary{Results: results}
	for _, res := range results {
		switch res.Status {
		case StatusSynced:
			sum.Synced++
		case StatusConflict:
			sum.Conflicts++
		default:
			sum.Errors++
		}
	}
	r.log().Info("offline batch synced",
		zap.Int("records", len(records)),
		zap.Int("synced", sum.Synced),
		zap.Int("conflicts", sum.Conflicts),
		zap.Int("errors", sum.Errors),
	)
	return sum, nil
}

func (r *Reconciler) syncOne(ctx context.Context, rec market.OfflineSaleRecord) Result {
	unlock := r.articles.lock(rec.ArticleID)
	defer unlock()

	if id, ok := r.previouslySynced(ctx, rec.ClientID); ok {
		return Result{ClientID: rec.ClientID, ArticleID: rec.ArticleID, Status: StatusSynced, SaleID: id}
	}

	method, err := market.ParsePaymentMethod(rec.PaymentMethod)
	if err != nil {
		return errorResult(rec, err)
	}
	if err := market.ValidateRegister(rec.RegisterNumber); err != nil {
		return errorResult(rec, err)
	}
	if rec.SoldAt.IsZero() {
		return errorResult(rec, fmt.Errorf("%w: sold_at is required", market.ErrInvalidArgument))
	}
	a, err := r.Ledger.Article(ctx, rec.ArticleID)
	if err != nil {
		return errorResult(rec, err)
	}

	if err := r.Ledger.Claim(ctx, a.ID); err != nil {
		if errors.Is(err, market.ErrAlreadySold) {
			return r.conflict(ctx, rec)
		}
		return errorResult(rec, err)
	}

	synced := r.now()
	sale := market.Sale{
		ID:             uuid.NewString(),
		ClientID:       rec.ClientID,
		ArticleID:      a.ID,
		EditionID:      a.EditionID,
		ListID:         a.ListID,
		DepositorID:    a.DepositorID,
		Price:          a.Price,
		PaymentMethod:  method,
		RegisterNumber: rec.RegisterNumber,
		SellerID:       rec.SellerID,
		SoldAt:         rec.SoldAt,
		Offline:        true,
		SyncedAt:       &synced,
		PrivateSale:    r.Window.Contains(rec.SoldAt),
	}
	if err := r.Sales.CreateSale(ctx, sale); err != nil {
		if rerr := r.Ledger.Release(ctx, a.ID); rerr != nil {
			r.log().Error("release after failed offline insert", zap.String("article_id", a.ID), zap.Error(rerr))
		}
		// a concurrent replay of the same record may have won the insert
		if id, ok := r.previouslySynced(ctx, rec.ClientID); ok {
			return Result{ClientID: rec.ClientID, ArticleID: rec.ArticleID, Status: StatusSynced, SaleID: id}
		}
		return errorResult(rec, err)
	}

	if r.Cache != nil {
		r.Cache.Remember(ctx, rec.ClientID, sale.ID)
	}
	if r.Audit != nil {
		r.Audit.Record(ctx, market.SaleEvent(market.EventSaleSynced, sale))
	}
	return Result{ClientID: rec.ClientID, ArticleID: rec.ArticleID, Status: StatusSynced, SaleID: sale.ID}
}

func (r *Reconciler) previouslySynced(ctx context.Context, clientID string) (string, bool) {
	if r.Cache != nil {
		if id, ok := r.Cache.Lookup(ctx, clientID); ok {
			return id, true
		}
	}
	s, err := r.Sales.SaleByClientID(ctx, clientID)
	if err != nil {
		if !errors.Is(err, market.ErrNotFound) {
			r.log().Warn("lookup by client id", zap.String("client_id", clientID), zap.Error(err))
		}
		return "", false
	}
	if r.Cache != nil {
		r.Cache.Remember(ctx, clientID, s.ID)
	}
	return s.ID, true
}

func (r *Reconciler) conflict(ctx context.Context, rec market.OfflineSaleRecord) Result {
	res := Result{
		ClientID:  rec.ClientID,
		ArticleID: rec.ArticleID,
		Status:    StatusConflict,
		Kind:      market.Kind(market.ErrConflict),
		Message:   "article already sold",
	}
	if winner, err := r.Sales.ActiveSaleByArticle(ctx, rec.ArticleID); err == nil {
		res.Message = fmt.Sprintf("article already sold by sale %s at %s", winner.ID, winner.SoldAt.Format(time.RFC3339))
	}
	r.log().Warn("offline sale conflict",
		zap.String("client_id", rec.ClientID),
		zap.String("article_id", rec.ArticleID),
		zap.Time("sold_at", rec.SoldAt),
	)
	return res
}

func errorResult(rec market.OfflineSaleRecord, err error) Result {
	return Result{
		ClientID:  rec.ClientID,
		ArticleID: rec.ArticleID,
		Status:    StatusError,
		Kind:      market.Kind(err),
		Message:   err.Error(),
	}
}
