package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ariefcatur/go-resale-market.git/internal/checkout"
	"github.com/ariefcatur/go-resale-market.git/internal/config"
	"github.com/ariefcatur/go-resale-market.git/internal/market"
	"github.com/ariefcatur/go-resale-market.git/internal/memstore"
	"github.com/ariefcatur/go-resale-market.git/internal/payout"
	"github.com/ariefcatur/go-resale-market.git/internal/syncer"
	"github.com/ariefcatur/go-resale-market.git/internal/testutil"
)

type api struct {
	t   *testing.T
	st  *memstore.Store
	srv *httptest.Server
}

func newAPI(t *testing.T) *api {
	st := testutil.Market(t, map[string]string{"A1": "10.00", "A2": "12.50"})
	log := zaptest.NewLogger(t)
	clock := testutil.NewClock(time.Date(2025, 6, 14, 10, 0, 0, 0, time.UTC))
	window := market.DefaultPrivateSaleWindow(time.UTC)
	fees := config.StaticFees{FeeRates: market.FeeRates{
		CommissionRate: decimal.RequireFromString("0.20"),
		ListFee:        decimal.RequireFromString("1.00"),
	}}

	h := &MarketHandler{
		Checkout: &checkout.Service{Ledger: st, Sales: st, Payouts: st, Editions: st, Window: window, Logger: log, Now: clock.Now},
		Sync:     &syncer.Reconciler{Ledger: st, Sales: st, Window: window, Logger: log, Now: clock.Now, MaxBatch: 3},
		Payouts:  &payout.Calculator{Ledger: st, Sales: st, Payouts: st, Catalog: st, Editions: st, Fees: fees, Notifier: market.NopNotifier{}, Logger: log, Now: clock.Now},
		Logger:   log,
	}
	r := NewRouter()
	h.Register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &api{t: t, st: st, srv: srv}
}

func (a *api) do(method, path string, body any, out any) int {
	a.t.Helper()
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(a.t, err)
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, rd)
	require.NoError(a.t, err)
	req.Header.Set("Content-Type", "application/json")
	res, err := a.srv.Client().Do(req)
	require.NoError(a.t, err)
	defer res.Body.Close()
	if out != nil {
		require.NoError(a.t, json.NewDecoder(res.Body).Decode(out))
	}
	return res.StatusCode
}

func TestHealthz(t *testing.T) {
	a := newAPI(t)
	res, err := a.srv.Client().Get(a.srv.URL + "/healthz")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestCheckoutFlow(t *testing.T) {
	a := newAPI(t)

	var scan ScanResp
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/articles/scan/A1", nil, &scan))
	assert.Equal(t, "A1", scan.Article.ID)
	assert.Equal(t, market.ArticleAvailable, scan.Article.Status)

	var sale market.Sale
	code := a.do(http.MethodPost, "/sales", checkout.SaleRequest{ArticleID: "A1", PaymentMethod: "cash", RegisterNumber: 2}, &sale)
	require.Equal(t, http.StatusCreated, code)
	assert.NotEmpty(t, sale.ID)
	assert.Equal(t, 2, sale.RegisterNumber)

	var eb errorBody
	code = a.do(http.MethodPost, "/sales", checkout.SaleRequest{ArticleID: "A1", PaymentMethod: "card", RegisterNumber: 1}, &eb)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "conflict", eb.Kind)

	scan = ScanResp{}
	assert.Equal(t, http.StatusConflict, a.do(http.MethodGet, "/articles/scan/A1", nil, &scan))
	assert.Equal(t, "already_sold", scan.Kind)
	assert.Equal(t, market.ArticleSold, scan.Article.Status)

	var cancelled market.Sale
	require.Equal(t, http.StatusOK, a.do(http.MethodPost, "/sales/"+sale.ID+"/cancel", CancelReq{Reason: "wrong item"}, &cancelled))
	assert.True(t, cancelled.Void())

	eb = errorBody{}
	assert.Equal(t, http.StatusConflict, a.do(http.MethodPost, "/sales/"+sale.ID+"/cancel", nil, &eb))
	assert.Equal(t, "already_cancelled", eb.Kind)
}

func TestRequestErrors(t *testing.T) {
	a := newAPI(t)

	var eb errorBody
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/sales", "{not json", &eb))
	assert.Equal(t, "invalid_argument", eb.Kind)

	eb = errorBody{}
	code := a.do(http.MethodPost, "/sales", checkout.SaleRequest{ArticleID: "A1", PaymentMethod: "bitcoin", RegisterNumber: 1}, &eb)
	assert.Equal(t, http.StatusBadRequest, code)

	eb = errorBody{}
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/articles/scan/nope", nil, &eb))
	assert.Equal(t, "not_found", eb.Kind)

	eb = errorBody{}
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/payouts/nope", nil, &eb))
}

func TestSyncEndpoint(t *testing.T) {
	a := newAPI(t)
	soldAt := time.Date(2025, 6, 14, 9, 30, 0, 0, time.UTC)

	require.Equal(t, http.StatusCreated,
		a.do(http.MethodPost, "/sales", checkout.SaleRequest{ArticleID: "A1", PaymentMethod: "cash", RegisterNumber: 1}, nil))

	req := SyncReq{Records: []market.OfflineSaleRecord{
		{ClientID: "c-1", ArticleID: "A2", PaymentMethod: "cash", RegisterNumber: 3, SoldAt: soldAt},
		{ClientID: "c-2", ArticleID: "A1", PaymentMethod: "card", RegisterNumber: 3, SoldAt: soldAt},
	}}
	var sum syncer.Summary
	require.Equal(t, http.StatusOK, a.do(http.MethodPost, "/sync", req, &sum))
	assert.Equal(t, 1, sum.Synced)
	assert.Equal(t, 1, sum.Conflicts)
	require.Len(t, sum.Results, 2)
	assert.Equal(t, syncer.StatusSynced, sum.Results[0].Status)
	assert.Equal(t, syncer.StatusConflict, sum.Results[1].Status)

	// replay returns the same sale
	var again syncer.Summary
	require.Equal(t, http.StatusOK, a.do(http.MethodPost, "/sync", req, &again))
	assert.Equal(t, sum.Results[0].SaleID, again.Results[0].SaleID)

	big := SyncReq{Records: make([]market.OfflineSaleRecord, 4)}
	var eb errorBody
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/sync", big, &eb))
	assert.Equal(t, "invalid_argument", eb.Kind)
}

func TestPayoutLifecycle(t *testing.T) {
	a := newAPI(t)
	require.Equal(t, http.StatusCreated,
		a.do(http.MethodPost, "/sales", checkout.SaleRequest{ArticleID: "A1", PaymentMethod: "cash", RegisterNumber: 1}, nil))

	var eb errorBody
	assert.Equal(t, http.StatusUnprocessableEntity, a.do(http.MethodPost, "/editions/ed1/payouts/calculate", nil, &eb))
	assert.Equal(t, "invalid_state", eb.Kind)

	a.st.PutEdition(market.Edition{ID: "ed1", Name: "Spring", Status: market.EditionClosed})

	var sum payout.Summary
	require.Equal(t, http.StatusOK, a.do(http.MethodPost, "/editions/ed1/payouts/calculate", nil, &sum))
	require.Len(t, sum.Lists, 1)
	assert.Equal(t, 1, sum.Created)
	assert.True(t, sum.Lists[0].Net.Equal(decimal.RequireFromString("7.00")), sum.Lists[0].Net.String())
	id := sum.Lists[0].PayoutID

	var p market.Payout
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/payouts/"+id, nil, &p))
	assert.Equal(t, market.PayoutPending, p.Status)
	assert.Equal(t, 1, p.SoldArticles)
	assert.Equal(t, 1, p.UnsoldArticles)

	eb = errorBody{}
	assert.Equal(t, http.StatusUnprocessableEntity,
		a.do(http.MethodPost, "/payouts/"+id+"/payment", payout.PaymentRequest{Method: "cash"}, &eb))

	require.Equal(t, http.StatusOK, a.do(http.MethodPost, "/payouts/"+id+"/ready", nil, &p))
	assert.Equal(t, market.PayoutReady, p.Status)

	require.Equal(t, http.StatusOK,
		a.do(http.MethodPost, "/payouts/"+id+"/payment", payout.PaymentRequest{Method: "transfer", Reference: "TX-1"}, &p))
	assert.Equal(t, market.PayoutPaid, p.Status)
	assert.Equal(t, "TX-1", p.PaymentReference)
	assert.NotNil(t, p.PaidAt)

	eb = errorBody{}
	assert.Equal(t, http.StatusUnprocessableEntity, a.do(http.MethodPost, "/payouts/"+id+"/cancel", nil, &eb))
	assert.Equal(t, "invalid_state", eb.Kind)
}

func TestSyncEndpoint_BodyLimit(t *testing.T) {
	st := testutil.Market(t, map[string]string{"A1": "10.00"})
	h := &MarketHandler{
		Sync:         &syncer.Reconciler{Ledger: st, Sales: st, Logger: zaptest.NewLogger(t)},
		MaxSyncBytes: 64,
	}
	r := NewRouter()
	h.Register(r)

	body := `{"records":[{"client_id":"` + strings.Repeat("x", 200) + `","article_id":"A1"}]}`
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sync", strings.NewReader(body)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	var eb errorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&eb))
	assert.Equal(t, "invalid_argument", eb.Kind)

	_, err := st.SaleByClientID(context.Background(), strings.Repeat("x", 200))
	assert.ErrorIs(t, err, market.ErrNotFound, "nothing was synced")
}
