package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ariefcatur/go-resale-market.git/internal/config"
	"github.com/ariefcatur/go-resale-market.git/internal/market"
	"github.com/ariefcatur/go-resale-market.git/internal/memstore"
	"github.com/ariefcatur/go-resale-market.git/internal/payout"
	"github.com/ariefcatur/go-resale-market.git/internal/testutil"
)

type harness struct {
	t        *testing.T
	st       *memstore.Store
	notifier *testutil.Notifier
	closed   int
}

func newHarness(t *testing.T) *harness {
	st := testutil.Market(t, map[string]string{"A1": "10.00", "A2": "30.00"})
	ctx := context.Background()
	require.NoError(t, st.Claim(ctx, "A2"))
	require.NoError(t, st.CreateSale(ctx, market.Sale{
		ID: "s1", ArticleID: "A2", EditionID: "ed1", ListID: "L1", DepositorID: "dep1",
		Price: decimal.RequireFromString("30.00"), SoldAt: time.Now(),
	}))
	return &harness{t: t, st: st, notifier: &testutil.Notifier{}}
}

func (h *harness) open(context.Context, *RootOptions) (*Backend, error) {
	return &Backend{
		Editions: h.st,
		Payouts: &payout.Calculator{
			Ledger: h.st, Sales: h.st, Payouts: h.st, Catalog: h.st, Editions: h.st,
			Fees: config.StaticFees{FeeRates: market.FeeRates{
				CommissionRate: decimal.RequireFromString("0.10"),
				ListFee:        decimal.Zero,
			}},
			Notifier: h.notifier,
			Logger:   zaptest.NewLogger(h.t),
		},
		Close: func() { h.closed++ },
	}, nil
}

func (h *harness) run(args ...string) (string, error) {
	cmd := NewRootCommand(h.open)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand(nil)
	for _, path := range [][]string{
		{"migrate"},
		{"editions", "open"},
		{"editions", "close"},
		{"payouts", "calculate"},
		{"payouts", "get"},
		{"payouts", "ready"},
		{"payouts", "pay"},
		{"payouts", "cancel"},
	} {
		sub, _, err := cmd.Find(path)
		require.NoError(t, err, "command %v should exist", path)
		assert.Equal(t, path[len(path)-1], sub.Name())
	}
}

func TestInvalidFormat(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("--format", "xml", "editions", "close", "ed1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestSettleEdition(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("payouts", "calculate", "ed1")
	require.Error(t, err)
	assert.ErrorIs(t, err, market.ErrInvalidState, "open edition cannot be settled")

	out, err := h.run("editions", "close", "ed1")
	require.NoError(t, err)
	assert.Contains(t, out, "edition ed1 is closed")

	out, err = h.run("--format", "json", "payouts", "calculate", "ed1")
	require.NoError(t, err)
	var sum payout.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &sum))
	require.Len(t, sum.Lists, 1)
	assert.True(t, sum.TotalNet.Equal(decimal.NewFromInt(27)), sum.TotalNet.String())
	id := sum.Lists[0].PayoutID

	out, err = h.run("payouts", "ready", id)
	require.NoError(t, err)
	assert.Contains(t, out, "status=ready")
	require.Len(t, h.notifier.Ready, 1)

	_, err = h.run("payouts", "pay", id)
	require.Error(t, err, "--method is required")

	out, err = h.run("payouts", "pay", id, "--method", "check", "--reference", "CHK-42")
	require.NoError(t, err)
	assert.Contains(t, out, "status=paid")
	assert.Contains(t, out, "net=27.00")

	_, err = h.run("payouts", "cancel", id)
	assert.True(t, errors.Is(err, market.ErrInvalidState))

	p, err := h.st.Payout(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "CHK-42", p.PaymentReference)
	assert.Positive(t, h.closed)
}

func TestMigrateWithoutSchema(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("migrate")
	assert.Error(t, err)
}
