package payout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-resale-market.git/internal/market"
)

// Calculator turns an edition's settled sales into one payout per item list
// and drives payouts through pending -> ready -> paid.
type Calculator struct {
	Ledger   market.Ledger
	Sales    market.SaleStore
	Payouts  market.PayoutStore
	Catalog  market.Catalog
	Editions market.Editions
	Fees     market.FeeSource
	Audit    market.AuditSink
	Notifier market.Notifier
	Logger   *zap.Logger
	Now      func() time.Time
}

type ListOutcome struct {
	ListID      string               `json:"list_id"`
	ListNumber  int                  `json:"list_number"`
	DepositorID string               `json:"depositor_id"`
	PayoutID    string               `json:"payout_id"`
	Outcome     market.UpsertOutcome `json:"outcome"`
	Status      market.PayoutStatus  `json:"status"`
	Gross       decimal.Decimal      `json:"gross_amount"`
	Net         decimal.Decimal      `json:"net_amount"`
}

type Summary struct {
	EditionID       string          `json:"edition_id"`
	Rates           market.FeeRates `json:"rates"`
	Lists           []ListOutcome   `json:"lists"`
	Created         int             `json:"created"`
	Updated         int             `json:"updated"`
	Skipped         int             `json:"skipped"`
	TotalGross      decimal.Decimal `json:"total_gross"`
	TotalCommission decimal.Decimal `json:"total_commission"`
	TotalFees       decimal.Decimal `json:"total_fees"`
	TotalNet        decimal.Decimal `json:"total_net"`
}

type PaymentRequest struct {
	Method    string `json:"method"`
	Reference string `json:"reference,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

func (c *Calculator) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now().UTC()
}

func (c *Calculator) log() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

func (c *Calculator) record(ctx context.Context, ev market.AuditEvent) {
	if c.Audit != nil {
		c.Audit.Record(ctx, ev)
	}
}

func (c *Calculator) closedEdition(ctx context.Context, editionID string) error {
	ed, err := c.Editions.Edition(ctx, editionID)
	if err != nil {
		return err
	}
	if ed.Open() {
		return fmt.Errorf("%w: edition %s is still open", market.ErrInvalidState, editionID)
	}
	return nil
}

type listSales struct {
	gross decimal.Decimal
	count int
}

// Calculate (re)computes every list payout of a closed edition. Paid and
// cancelled payouts are never touched; they show up as skipped_final.
func (c *Calculator) Calculate(ctx context.Context, editionID string) (Summary, error) {
	if err := c.closedEdition(ctx, editionID); err != nil {
		return Summary{}, err
	}
	rates, err := c.Fees.Rates(ctx, editionID)
	if err != nil {
		return Summary{}, fmt.Errorf("fee rates: %w", err)
	}
	if err := rates.Validate(); err != nil {
		return Summary{}, err
	}
	lists, err := c.Catalog.ListsByEdition(ctx, editionID)
	if err != nil {
		return Summary{}, fmt.Errorf("item lists: %w", err)
	}
	sales, err := c.Sales.SalesByEdition(ctx, editionID)
	if err != nil {
		return Summary{}, fmt.Errorf("sales: %w", err)
	}

	byList := map[string]listSales{}
	for _, s := range sales {
		if s.Void() {
			continue
		}
		ls := byList[s.ListID]
		ls.gross = ls.gross.Add(s.Price)
		ls.count++
		byList[s.ListID] = ls
	}

	sum := Summary{
		EditionID:       editionID,
		Rates:           rates,
		TotalGross:      decimal.Zero,
		TotalCommission: decimal.Zero,
		TotalFees:       decimal.Zero,
		TotalNet:        decimal.Zero,
	}
	for _, l := range lists {
		articles, err := c.Ledger.ArticlesByList(ctx, l.ID)
		if err != nil {
			return sum, fmt.Errorf("articles of list %s: %w", l.ID, err)
		}
		ls := byList[l.ID]
		if len(articles) == 0 && ls.count == 0 {
			continue
		}

		sold := 0
		for _, a := range articles {
			if a.Status == market.ArticleSold {
				sold++
			}
		}
		now := c.now()
		p := market.Payout{
			ID:             uuid.NewString(),
			EditionID:      editionID,
			ListID:         l.ID,
			DepositorID:    l.DepositorID,
			TotalArticles:  len(articles),
			SoldArticles:   sold,
			UnsoldArticles: len(articles) - sold,
			Status:         market.PayoutPending,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		market.ComputeAmounts(ls.gross, rates).Apply(&p)

		stored, outcome, err := c.Payouts.UpsertPayout(ctx, p)
		if err != nil {
			return sum, fmt.Errorf("upsert payout for list %s: %w", l.ID, err)
		}
		switch outcome {
		case market.UpsertCreated:
			sum.Created++
		case market.UpsertUpdated:
			sum.Updated++
		case market.UpsertSkippedFinal:
			sum.Skipped++
			c.log().Warn("payout is final, recalculation skipped",
				zap.String("payout_id", stored.ID),
				zap.String("list_id", l.ID),
				zap.String("status", string(stored.Status)),
			)
		}
		if outcome != market.UpsertSkippedFinal {
			c.record(ctx, market.PayoutEvent(market.EventPayoutCalculated, stored))
		}

		sum.Lists = append(sum.Lists, ListOutcome{
			ListID:      l.ID,
			ListNumber:  l.Number,
			DepositorID: l.DepositorID,
			PayoutID:    stored.ID,
			Outcome:     outcome,
			Status:      stored.Status,
			Gross:       stored.Gross,
			Net:         stored.Net,
		})
		sum.TotalGross = sum.TotalGross.Add(stored.Gross)
		sum.TotalCommission = sum.TotalCommission.Add(stored.Commission)
		sum.TotalFees = sum.TotalFees.Add(stored.ListFees)
		sum.TotalNet = sum.TotalNet.Add(stored.Net)
	}

	c.log().Info("payouts calculated",
		zap.String("edition_id", editionID),
		zap.Int("created", sum.Created),
		zap.Int("updated", sum.Updated),
		zap.Int("skipped", sum.Skipped),
		zap.String("total_net", sum.TotalNet.StringFixed(2)),
	)
	return sum, nil
}

func (c *Calculator) Get(ctx context.Context, payoutID string) (market.Payout, error) {
	return c.Payouts.Payout(ctx, payoutID)
}

// transition loads a payout, applies mutate and writes it back guarded by
// the status it was read in.
func (c *Calculator) transition(ctx context.Context, payoutID string, to market.PayoutStatus, mutate func(*market.Payout)) (market.Payout, error) {
	p, err := c.Payouts.Payout(ctx, payoutID)
	if err != nil {
		return market.Payout{}, err
	}
	from := p.Status
	if p.Status, err = from.Transition(to); err != nil {
		return market.Payout{}, err
	}
	if mutate != nil {
		mutate(&p)
	}
	p.UpdatedAt = c.now()
	return c.Payouts.UpdatePayout(ctx, p, from)
}

func (c *Calculator) MarkReady(ctx context.Context, payoutID string) (market.Payout, error) {
	cur, err := c.Payouts.Payout(ctx, payoutID)
	if err != nil {
		return market.Payout{}, err
	}
	if err := c.closedEdition(ctx, cur.EditionID); err != nil {
		return market.Payout{}, err
	}
	p, err := c.transition(ctx, payoutID, market.PayoutReady, nil)
	if err != nil {
		return market.Payout{}, err
	}
	c.log().Info("payout ready", zap.String("payout_id", p.ID), zap.String("net", p.Net.StringFixed(2)))
	c.record(ctx, market.PayoutEvent(market.EventPayoutReady, p))
	if c.Notifier != nil {
		c.Notifier.PayoutReady(ctx, p)
	}
	return p, nil
}

// RecordPayment settles a ready payout. Any other status is ErrInvalidState.
func (c *Calculator) RecordPayment(ctx context.Context, payoutID string, req PaymentRequest) (market.Payout, error) {
	method, err := market.ParsePayoutMethod(req.Method)
	if err != nil {
		return market.Payout{}, err
	}
	cur, err := c.Payouts.Payout(ctx, payoutID)
	if err != nil {
		return market.Payout{}, err
	}
	if err := c.closedEdition(ctx, cur.EditionID); err != nil {
		return market.Payout{}, err
	}
	paidAt := c.now()
	p, err := c.transition(ctx, payoutID, market.PayoutPaid, func(p *market.Payout) {
		p.PaymentMethod = method
		p.PaymentReference = req.Reference
		p.Notes = req.Notes
		p.PaidAt = &paidAt
	})
	if err != nil {
		return market.Payout{}, err
	}
	c.log().Info("payout paid",
		zap.String("payout_id", p.ID),
		zap.String("method", string(method)),
		zap.String("net", p.Net.StringFixed(2)),
	)
	c.record(ctx, market.PayoutEvent(market.EventPayoutPaid, p))
	return p, nil
}

func (c *Calculator) Cancel(ctx context.Context, payoutID, notes string) (market.Payout, error) {
	p, err := c.transition(ctx, payoutID, market.PayoutCancelled, func(p *market.Payout) {
		if notes != "" {
			p.Notes = notes
		}
	})
	if err != nil {
		return market.Payout{}, err
	}
	c.log().Info("payout cancelled", zap.String("payout_id", p.ID))
	c.record(ctx, market.PayoutEvent(market.EventPayoutCancelled, p))
	return p, nil
}
