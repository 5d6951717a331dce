package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-resale-market.git/internal/checkout"
	"github.com/ariefcatur/go-resale-market.git/internal/market"
	"github.com/ariefcatur/go-resale-market.git/internal/payout"
	"github.com/ariefcatur/go-resale-market.git/internal/syncer"
)

// DefaultMaxSyncBytes bounds a /sync body; it fits the default batch limit
// with plenty of room per record.
const DefaultMaxSyncBytes = 1 << 20

type MarketHandler struct {
	Checkout     *checkout.Service
	Sync         *syncer.Reconciler
	Payouts      *payout.Calculator
	Logger       *zap.Logger
	MaxSyncBytes int64
}

type SyncReq struct {
	Records []market.OfflineSaleRecord `json:"records"`
}

type CancelReq struct {
	Reason string `json:"reason"`
}

type ScanResp struct {
	Article market.Article `json:"article"`
	Kind    string         `json:"kind,omitempty"`
}

func (h *MarketHandler) Register(r *chi.Mux) {
	r.Get("/articles/scan/{barcode}", h.scan)
	r.Post("/sales", h.registerSale)
	r.Post("/sales/{id}/cancel", h.cancelSale)
	r.Post("/sync", h.syncBatch)
	r.Post("/editions/{id}/payouts/calculate", h.calculate)
	r.Get("/payouts/{id}", h.getPayout)
	r.Post("/payouts/{id}/ready", h.markReady)
	r.Post("/payouts/{id}/payment", h.recordPayment)
	r.Post("/payouts/{id}/cancel", h.cancelPayout)
}

func (h *MarketHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if market.Kind(err) == "internal" && h.Logger != nil {
		h.Logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeError(w, err)
}

func (h *MarketHandler) scan(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	a, err := h.Checkout.Scan(ctx, chi.URLParam(r, "barcode"))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, ScanResp{Article: a})
	case errors.Is(err, market.ErrAlreadySold) || (a.ID != "" && errors.Is(err, market.ErrInvalidState)):
		// the register still shows what was scanned
		kind := market.Kind(err)
		writeJSON(w, statusFor(kind), ScanResp{Article: a, Kind: kind})
	default:
		h.fail(w, r, err)
	}
}

func (h *MarketHandler) registerSale(w http.ResponseWriter, r *http.Request) {
	var req checkout.SaleRequest
	if !decode(w, r, &req) {
		return
	}
	if req.ArticleID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "missing article_id", Kind: "invalid_argument"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	sale, err := h.Checkout.RegisterSale(ctx, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sale)
}

func (h *MarketHandler) cancelSale(w http.ResponseWriter, r *http.Request) {
	var req CancelReq
	if err := decodeOptional(r.Body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json", Kind: "invalid_argument"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	sale, err := h.Checkout.CancelSale(ctx, chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sale)
}

func (h *MarketHandler) syncBatch(w http.ResponseWriter, r *http.Request) {
	limit := h.MaxSyncBytes
	if limit <= 0 {
		limit = DefaultMaxSyncBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	var req SyncReq
	if !decode(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 14*time.Second)
	defer cancel()

	sum, err := h.Sync.SyncBatch(ctx, req.Records)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *MarketHandler) calculate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 14*time.Second)
	defer cancel()

	sum, err := h.Payouts.Calculate(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *MarketHandler) getPayout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Payouts.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *MarketHandler) markReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p, err := h.Payouts.MarkReady(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *MarketHandler) recordPayment(w http.ResponseWriter, r *http.Request) {
	var req payout.PaymentRequest
	if !decode(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p, err := h.Payouts.RecordPayment(ctx, chi.URLParam(r, "id"), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *MarketHandler) cancelPayout(w http.ResponseWriter, r *http.Request) {
	var req CancelReq
	if err := decodeOptional(r.Body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json", Kind: "invalid_argument"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p, err := h.Payouts.Cancel(ctx, chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// decodeOptional accepts an empty body.
func decodeOptional(body io.Reader, v any) error {
	err := json.NewDecoder(body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
