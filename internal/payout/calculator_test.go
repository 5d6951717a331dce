package payout

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ariefcatur/go-resale-market.git/internal/market"
	"github.com/ariefcatur/go-resale-market.git/internal/memstore"
	"github.com/ariefcatur/go-resale-market.git/internal/testutil"
)

type fixedFees market.FeeRates

func (f fixedFees) Rates(context.Context, string) (market.FeeRates, error) {
	return market.FeeRates(f), nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sell(t *testing.T, st *memstore.Store, articleID string) market.Sale {
	t.Helper()
	ctx := context.Background()
	a, err := st.Article(ctx, articleID)
	require.NoError(t, err)
	require.NoError(t, st.Claim(ctx, articleID))
	s := market.Sale{
		ID:        "sale-" + articleID,
		ArticleID: a.ID,
		EditionID: a.EditionID,
		ListID:    a.ListID,
		Price:     a.Price,
		SoldAt:    time.Now(),
	}
	require.NoError(t, st.CreateSale(ctx, s))
	return s
}

type fixture struct {
	st       *memstore.Store
	calc     *Calculator
	audit    *testutil.Audit
	notifier *testutil.Notifier
}

// ten articles at 10.00 in L1, all sold, edition closed
func newFixture(t *testing.T, rates market.FeeRates) fixture {
	prices := map[string]string{}
	for i := 0; i < 10; i++ {
		prices[fmt.Sprintf("A%d", i)] = "10.00"
	}
	st := testutil.Market(t, prices)
	for id := range prices {
		sell(t, st, id)
	}
	st.PutEdition(market.Edition{ID: "ed1", Status: market.EditionClosed})

	f := fixture{st: st, audit: &testutil.Audit{}, notifier: &testutil.Notifier{}}
	f.calc = &Calculator{
		Ledger:   st,
		Sales:    st,
		Payouts:  st,
		Catalog:  st,
		Editions: st,
		Fees:     fixedFees(rates),
		Audit:    f.audit,
		Notifier: f.notifier,
		Logger:   zaptest.NewLogger(t),
	}
	return f
}

var defaultRates = market.FeeRates{CommissionRate: dec("0.20"), ListFee: dec("5.00")}

func TestCalculate_CommissionAndFees(t *testing.T) {
	f := newFixture(t, defaultRates)
	ctx := context.Background()

	sum, err := f.calc.Calculate(ctx, "ed1")
	require.NoError(t, err)
	require.Len(t, sum.Lists, 1)
	assert.Equal(t, 1, sum.Created)

	p, err := f.calc.Get(ctx, sum.Lists[0].PayoutID)
	require.NoError(t, err)
	assert.True(t, p.Gross.Equal(dec("100.00")), p.Gross.String())
	assert.True(t, p.Commission.Equal(dec("20.00")), p.Commission.String())
	assert.True(t, p.ListFees.Equal(dec("5.00")))
	assert.True(t, p.Net.Equal(dec("75.00")), p.Net.String())
	assert.Equal(t, market.PayoutPending, p.Status)
	assert.Equal(t, 10, p.TotalArticles)
	assert.Equal(t, 10, p.SoldArticles)
	assert.Equal(t, 0, p.UnsoldArticles)
	assert.Equal(t, "dep1", p.DepositorID)
	assert.True(t, sum.TotalNet.Equal(dec("75.00")))
}

func TestCalculate_RecomputesInPlaceAndExcludesVoid(t *testing.T) {
	f := newFixture(t, defaultRates)
	ctx := context.Background()

	first, err := f.calc.Calculate(ctx, "ed1")
	require.NoError(t, err)

	_, err = f.st.VoidSale(ctx, "sale-A0", "refund", time.Now())
	require.NoError(t, err)
	require.NoError(t, f.st.Release(ctx, "A0"))

	second, err := f.calc.Calculate(ctx, "ed1")
	require.NoError(t, err)
	assert.Equal(t, 1, second.Updated)
	assert.Equal(t, first.Lists[0].PayoutID, second.Lists[0].PayoutID, "upsert keyed by list")

	p, err := f.calc.Get(ctx, second.Lists[0].PayoutID)
	require.NoError(t, err)
	assert.True(t, p.Gross.Equal(dec("90.00")))
	assert.True(t, p.Commission.Equal(dec("18.00")))
	assert.True(t, p.Net.Equal(dec("67.00")))
	assert.Equal(t, 9, p.SoldArticles)
	assert.Equal(t, 1, p.UnsoldArticles)
}

func TestCalculate_PaidIsNotRecomputed(t *testing.T) {
	f := newFixture(t, defaultRates)
	ctx := context.Background()

	sum, err := f.calc.Calculate(ctx, "ed1")
	require.NoError(t, err)
	id := sum.Lists[0].PayoutID

	_, err = f.calc.MarkReady(ctx, id)
	require.NoError(t, err)
	_, err = f.calc.RecordPayment(ctx, id, PaymentRequest{Method: "check", Reference: "CHK-42"})
	require.NoError(t, err)

	f.calc.Fees = fixedFees(market.FeeRates{CommissionRate: dec("0.50")})
	again, err := f.calc.Calculate(ctx, "ed1")
	require.NoError(t, err)
	assert.Equal(t, 1, again.Skipped)
	assert.Equal(t, market.UpsertSkippedFinal, again.Lists[0].Outcome)

	p, err := f.calc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, market.PayoutPaid, p.Status)
	assert.True(t, p.Net.Equal(dec("75.00")), "paid amounts are frozen")
}

func TestCalculate_NetClampedAtZero(t *testing.T) {
	st := testutil.Market(t, map[string]string{"A1": "2.00", "A2": "3.00"})
	sell(t, st, "A1")
	st.PutEdition(market.Edition{ID: "ed1", Status: market.EditionClosed})
	calc := &Calculator{
		Ledger: st, Sales: st, Payouts: st, Catalog: st, Editions: st,
		Fees: fixedFees(market.FeeRates{CommissionRate: dec("0.10"), ListFee: dec("5.00")}),
	}

	sum, err := calc.Calculate(context.Background(), "ed1")
	require.NoError(t, err)
	p, err := calc.Get(context.Background(), sum.Lists[0].PayoutID)
	require.NoError(t, err)
	assert.True(t, p.Net.IsZero(), p.Net.String())
	assert.Equal(t, 1, p.UnsoldArticles)
}

func TestCalculate_SkipsEmptyListsAndRequiresClosedEdition(t *testing.T) {
	st := testutil.Market(t, map[string]string{"A1": "1"})
	st.PutList(market.ItemList{ID: "L2", EditionID: "ed1", Number: 2, DepositorID: "dep2"})
	calc := &Calculator{Ledger: st, Sales: st, Payouts: st, Catalog: st, Editions: st, Fees: fixedFees(defaultRates)}
	ctx := context.Background()

	_, err := calc.Calculate(ctx, "ed1")
	assert.ErrorIs(t, err, market.ErrInvalidState, "edition still open")

	st.PutEdition(market.Edition{ID: "ed1", Status: market.EditionClosed})
	sum, err := calc.Calculate(ctx, "ed1")
	require.NoError(t, err)
	require.Len(t, sum.Lists, 1, "L2 has nothing")
	assert.Equal(t, "L1", sum.Lists[0].ListID)

	_, err = calc.Calculate(ctx, "nope")
	assert.ErrorIs(t, err, market.ErrNotFound)
}

func TestCalculate_RejectsBadRates(t *testing.T) {
	f := newFixture(t, market.FeeRates{CommissionRate: dec("2")})
	_, err := f.calc.Calculate(context.Background(), "ed1")
	assert.ErrorIs(t, err, market.ErrInvalidArgument)
}

func TestPayoutLifecycle(t *testing.T) {
	f := newFixture(t, defaultRates)
	ctx := context.Background()

	sum, err := f.calc.Calculate(ctx, "ed1")
	require.NoError(t, err)
	id := sum.Lists[0].PayoutID

	_, err = f.calc.RecordPayment(ctx, id, PaymentRequest{Method: "cash"})
	assert.ErrorIs(t, err, market.ErrInvalidState, "pending cannot skip ready")

	_, err = f.calc.RecordPayment(ctx, id, PaymentRequest{Method: "bitcoin"})
	assert.ErrorIs(t, err, market.ErrInvalidArgument)

	ready, err := f.calc.MarkReady(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, market.PayoutReady, ready.Status)
	require.Len(t, f.notifier.Ready, 1)
	assert.Equal(t, id, f.notifier.Ready[0].ID)

	paid, err := f.calc.RecordPayment(ctx, id, PaymentRequest{Method: "transfer", Reference: "IBAN-1", Notes: "ok"})
	require.NoError(t, err)
	assert.Equal(t, market.PayoutPaid, paid.Status)
	assert.Equal(t, market.PayoutByTransfer, paid.PaymentMethod)
	assert.Equal(t, "IBAN-1", paid.PaymentReference)
	require.NotNil(t, paid.PaidAt)

	_, err = f.calc.Cancel(ctx, id, "")
	assert.ErrorIs(t, err, market.ErrInvalidState)
	_, err = f.calc.RecordPayment(ctx, id, PaymentRequest{Method: "cash"})
	assert.ErrorIs(t, err, market.ErrInvalidState)

	assert.Equal(t, []string{
		market.EventPayoutCalculated,
		market.EventPayoutReady,
		market.EventPayoutPaid,
	}, f.audit.Types())
}

func TestPayoutCancel(t *testing.T) {
	f := newFixture(t, defaultRates)
	ctx := context.Background()

	sum, err := f.calc.Calculate(ctx, "ed1")
	require.NoError(t, err)
	id := sum.Lists[0].PayoutID

	c, err := f.calc.Cancel(ctx, id, "depositor donated")
	require.NoError(t, err)
	assert.Equal(t, market.PayoutCancelled, c.Status)
	assert.Equal(t, "depositor donated", c.Notes)

	_, err = f.calc.MarkReady(ctx, id)
	assert.ErrorIs(t, err, market.ErrInvalidState, "no resurrection")

	again, err := f.calc.Calculate(ctx, "ed1")
	require.NoError(t, err)
	assert.Equal(t, 1, again.Skipped)

	_, err = f.calc.Cancel(ctx, "missing", "")
	assert.ErrorIs(t, err, market.ErrNotFound)
}
