package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-resale-market.git/internal/market"
)

// Service registers and cancels sales at the checkout registers. The
// ledger's Claim is the only mutual-exclusion point.
type Service struct {
	Ledger   market.Ledger
	Sales    market.SaleStore
	Payouts  market.PayoutStore
	Editions market.Editions
	Audit    market.AuditSink
	Window   market.PrivateSaleWindow
	Logger   *zap.Logger
	Now      func() time.Time
}

type SaleRequest struct {
	ArticleID      string `json:"article_id"`
	PaymentMethod  string `json:"payment_method"`
	RegisterNumber int    `json:"register_number"`
	SellerID       string `json:"seller_id,omitempty"`
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *Service) log() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s *Service) record(ctx context.Context, ev market.AuditEvent) {
	if s.Audit != nil {
		s.Audit.Record(ctx, ev)
	}
}

// Scan looks an article up by barcode without claiming it. A sold article is
// returned together with ErrAlreadySold so the register can still show it.
func (s *Service) Scan(ctx context.Context, barcode string) (market.Article, error) {
	if barcode == "" {
		return market.Article{}, fmt.Errorf("%w: empty barcode", market.ErrInvalidArgument)
	}
	a, err := s.Ledger.ArticleByBarcode(ctx, barcode)
	if err != nil {
		return market.Article{}, err
	}
	switch a.Status {
	case market.ArticleSold:
		return a, fmt.Errorf("%w: article %s", market.ErrAlreadySold, a.ID)
	case market.ArticleWithdrawn:
		return a, fmt.Errorf("%w: article %s is withdrawn", market.ErrInvalidState, a.ID)
	}
	return a, nil
}

func (s *Service) RegisterSale(ctx context.Context, req SaleRequest) (market.Sale, error) {
	method, err := market.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return market.Sale{}, err
	}
	if err := market.ValidateRegister(req.RegisterNumber); err != nil {
		return market.Sale{}, err
	}
	a, err := s.Ledger.Article(ctx, req.ArticleID)
	if err != nil {
		return market.Sale{}, err
	}

	if err := s.Ledger.Claim(ctx, a.ID); err != nil {
		if errors.Is(err, market.ErrAlreadySold) {
			return market.Sale{}, fmt.Errorf("%w: %w", market.ErrConflict, err)
		}
		return market.Sale{}, err
	}

	soldAt := s.now()
	sale := market.Sale{
		ID:             uuid.NewString(),
		ArticleID:      a.ID,
		EditionID:      a.EditionID,
		ListID:         a.ListID,
		DepositorID:    a.DepositorID,
		Price:          a.Price,
		PaymentMethod:  method,
		RegisterNumber: req.RegisterNumber,
		SellerID:       req.SellerID,
		SoldAt:         soldAt,
		PrivateSale:    s.Window.Contains(soldAt),
	}
	if err := s.Sales.CreateSale(ctx, sale); err != nil {
		// compensate: the claim must not outlive a failed insert
		if rerr := s.Ledger.Release(ctx, a.ID); rerr != nil {
			s.log().Error("release after failed sale insert", zap.String("article_id", a.ID), zap.Error(rerr))
		}
		return market.Sale{}, fmt.Errorf("create sale: %w", err)
	}

	s.log().Info("sale registered",
		zap.String("sale_id", sale.ID),
		zap.String("article_id", a.ID),
		zap.Int("register", sale.RegisterNumber),
		zap.Bool("private_sale", sale.PrivateSale),
	)
	s.record(ctx, market.SaleEvent(market.EventSaleRegistered, sale))
	return sale, nil
}

// CancelSale voids a sale and reopens its article. Only allowed while the
// edition is open and before the list's payout is settled.
func (s *Service) CancelSale(ctx context.Context, saleID, reason string) (market.Sale, error) {
	sale, err := s.Sales.Sale(ctx, saleID)
	if err != nil {
		return market.Sale{}, err
	}
	if sale.Void() {
		return sale, fmt.Errorf("%w: sale %s", market.ErrAlreadyCancelled, saleID)
	}

	ed, err := s.Editions.Edition(ctx, sale.EditionID)
	if err != nil {
		return market.Sale{}, err
	}
	if !ed.Open() {
		return market.Sale{}, fmt.Errorf("%w: edition %s is %s", market.ErrInvalidState, ed.ID, ed.Status)
	}

	if s.Payouts != nil {
		p, err := s.Payouts.PayoutByList(ctx, sale.ListID)
		switch {
		case err == nil && p.Status.Final():
			return market.Sale{}, fmt.Errorf("%w: payout %s for list %s is %s", market.ErrInvalidState, p.ID, sale.ListID, p.Status)
		case err != nil && !errors.Is(err, market.ErrNotFound):
			return market.Sale{}, err
		}
	}

	voided, err := s.Sales.VoidAndRelease(ctx, saleID, reason, s.now())
	if err != nil {
		if !errors.Is(err, market.ErrAlreadyCancelled) {
			s.log().Error("void sale", zap.String("sale_id", saleID), zap.String("article_id", sale.ArticleID), zap.Error(err))
		}
		return market.Sale{}, err
	}

	s.log().Info("sale cancelled", zap.String("sale_id", saleID), zap.String("reason", reason))
	s.record(ctx, market.SaleEvent(market.EventSaleCancelled, voided))
	return voided, nil
}
