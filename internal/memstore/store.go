// Package memstore keeps the whole market in process memory. It backs the
// API in STORE=memory mode and is the storage double in tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ariefcatur/go-resale-market.git/internal/market"
)

type Store struct {
	mu sync.RWMutex

	editions         map[string]market.Edition
	lists            map[string]market.ItemList
	articles         map[string]market.Article
	articleByBarcode map[string]string
	sales            map[string]market.Sale
	saleByClientID   map[string]string
	activeSaleByArt  map[string]string
	payouts          map[string]market.Payout
	payoutByList     map[string]string
}

var (
	_ market.Ledger      = (*Store)(nil)
	_ market.SaleStore   = (*Store)(nil)
	_ market.PayoutStore = (*Store)(nil)
	_ market.Catalog     = (*Store)(nil)
	_ market.Editions    = (*Store)(nil)
)

func New() *Store {
	return &Store{
		editions:         map[string]market.Edition{},
		lists:            map[string]market.ItemList{},
		articles:         map[string]market.Article{},
		articleByBarcode: map[string]string{},
		sales:            map[string]market.Sale{},
		saleByClientID:   map[string]string{},
		activeSaleByArt:  map[string]string{},
		payouts:          map[string]market.Payout{},
		payoutByList:     map[string]string{},
	}
}

// ---- seeding (the item-list read model is owned elsewhere) ----

func (s *Store) PutEdition(e market.Edition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editions[e.ID] = e
}

func (s *Store) PutList(l market.ItemList) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists[l.ID] = l
}

// PutArticle stores a; empty status defaults to available. Edition and
// depositor are copied from the owning list when it is known.
func (s *Store) PutArticle(a market.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if other, ok := s.articleByBarcode[a.Barcode]; ok && other != a.ID {
		return fmt.Errorf("%w: barcode %s already used", market.ErrConflict, a.Barcode)
	}
	if a.Status == "" {
		a.Status = market.ArticleAvailable
	}
	if l, ok := s.lists[a.ListID]; ok {
		a.EditionID = l.EditionID
		a.DepositorID = l.DepositorID
	}
	s.articles[a.ID] = a
	s.articleByBarcode[a.Barcode] = a.ID
	return nil
}

// ---- market.Editions / market.Catalog ----

func (s *Store) Edition(_ context.Context, id string) (market.Edition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.editions[id]
	if !ok {
		return market.Edition{}, fmt.Errorf("%w: edition %s", market.ErrNotFound, id)
	}
	return e, nil
}

func (s *Store) SetStatus(_ context.Context, id string, status market.EditionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.editions[id]
	if !ok {
		return fmt.Errorf("%w: edition %s", market.ErrNotFound, id)
	}
	e.Status = status
	s.editions[id] = e
	return nil
}

func (s *Store) ListsByEdition(_ context.Context, editionID string) ([]market.ItemList, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []market.ItemList
	for _, l := range s.lists {
		if l.EditionID == editionID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

// ---- market.Ledger ----

func (s *Store) Article(_ context.Context, id string) (market.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.articles[id]
	if !ok {
		return market.Article{}, fmt.Errorf("%w: article %s", market.ErrNotFound, id)
	}
	return a, nil
}

func (s *Store) ArticleByBarcode(ctx context.Context, barcode string) (market.Article, error) {
	s.mu.RLock()
	id, ok := s.articleByBarcode[barcode]
	s.mu.RUnlock()
	if !ok {
		return market.Article{}, fmt.Errorf("%w: barcode %s", market.ErrNotFound, barcode)
	}
	return s.Article(ctx, id)
}

func (s *Store) ArticlesByList(_ context.Context, listID string) ([]market.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []market.Article
	for _, a := range s.articles {
		if a.ListID == listID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Barcode < out[j].Barcode })
	return out, nil
}

// Claim is a compare-and-set on status under the write lock.
func (s *Store) Claim(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.articles[id]
	if !ok {
		return fmt.Errorf("%w: article %s", market.ErrNotFound, id)
	}
	switch a.Status {
	case market.ArticleAvailable:
		a.Status = market.ArticleSold
		s.articles[id] = a
		return nil
	case market.ArticleSold:
		return fmt.Errorf("%w: article %s", market.ErrAlreadySold, id)
	default:
		return fmt.Errorf("%w: article %s is %s", market.ErrInvalidState, id, a.Status)
	}
}

func (s *Store) Release(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.articles[id]
	if !ok {
		return fmt.Errorf("%w: article %s", market.ErrNotFound, id)
	}
	if a.Status != market.ArticleSold {
		return fmt.Errorf("%w: article %s was never sold", market.ErrInvalidState, id)
	}
	a.Status = market.ArticleAvailable
	s.articles[id] = a
	return nil
}

// ---- market.SaleStore ----

func (s *Store) CreateSale(_ context.Context, sale market.Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sales[sale.ID]; ok {
		return fmt.Errorf("%w: sale %s exists", market.ErrConflict, sale.ID)
	}
	if sale.ClientID != "" {
		if _, ok := s.saleByClientID[sale.ClientID]; ok {
			return fmt.Errorf("%w: client id %s already synced", market.ErrConflict, sale.ClientID)
		}
	}
	if _, ok := s.activeSaleByArt[sale.ArticleID]; ok && !sale.Void() {
		return fmt.Errorf("%w: article %s already has a sale", market.ErrConflict, sale.ArticleID)
	}
	s.sales[sale.ID] = sale
	if sale.ClientID != "" {
		s.saleByClientID[sale.ClientID] = sale.ID
	}
	if !sale.Void() {
		s.activeSaleByArt[sale.ArticleID] = sale.ID
	}
	return nil
}

func (s *Store) Sale(_ context.Context, id string) (market.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sale, ok := s.sales[id]
	if !ok {
		return market.Sale{}, fmt.Errorf("%w: sale %s", market.ErrNotFound, id)
	}
	return sale, nil
}

func (s *Store) SaleByClientID(ctx context.Context, clientID string) (market.Sale, error) {
	s.mu.RLock()
	id, ok := s.saleByClientID[clientID]
	s.mu.RUnlock()
	if !ok {
		return market.Sale{}, fmt.Errorf("%w: client id %s", market.ErrNotFound, clientID)
	}
	return s.Sale(ctx, id)
}

func (s *Store) ActiveSaleByArticle(ctx context.Context, articleID string) (market.Sale, error) {
	s.mu.RLock()
	id, ok := s.activeSaleByArt[articleID]
	s.mu.RUnlock()
	if !ok {
		return market.Sale{}, fmt.Errorf("%w: no active sale for article %s", market.ErrNotFound, articleID)
	}
	return s.Sale(ctx, id)
}

func (s *Store) VoidSale(_ context.Context, id, reason string, at time.Time) (market.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sale, ok := s.sales[id]
	if !ok {
		return market.Sale{}, fmt.Errorf("%w: sale %s", market.ErrNotFound, id)
	}
	if sale.Void() {
		return sale, fmt.Errorf("%w: sale %s", market.ErrAlreadyCancelled, id)
	}
	sale.CancelledAt = &at
	sale.CancelReason = reason
	s.sales[id] = sale
	if s.activeSaleByArt[sale.ArticleID] == id {
		delete(s.activeSaleByArt, sale.ArticleID)
	}
	return sale, nil
}

func (s *Store) VoidAndRelease(_ context.Context, id, reason string, at time.Time) (market.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sale, ok := s.sales[id]
	if !ok {
		return market.Sale{}, fmt.Errorf("%w: sale %s", market.ErrNotFound, id)
	}
	if sale.Void() {
		return sale, fmt.Errorf("%w: sale %s", market.ErrAlreadyCancelled, id)
	}
	a, ok := s.articles[sale.ArticleID]
	if !ok {
		return market.Sale{}, fmt.Errorf("%w: article %s", market.ErrNotFound, sale.ArticleID)
	}
	if a.Status != market.ArticleSold {
		return market.Sale{}, fmt.Errorf("%w: article %s is %s", market.ErrInvalidState, a.ID, a.Status)
	}

	a.Status = market.ArticleAvailable
	s.articles[a.ID] = a
	sale.CancelledAt = &at
	sale.CancelReason = reason
	s.sales[id] = sale
	if s.activeSaleByArt[sale.ArticleID] == id {
		delete(s.activeSaleByArt, sale.ArticleID)
	}
	return sale, nil
}

func (s *Store) SalesByEdition(_ context.Context, editionID string) ([]market.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []market.Sale
	for _, sale := range s.sales {
		if sale.EditionID == editionID {
			out = append(out, sale)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SoldAt.Before(out[j].SoldAt) })
	return out, nil
}

// ---- market.PayoutStore ----

func (s *Store) UpsertPayout(_ context.Context, p market.Payout) (market.Payout, market.UpsertOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.payoutByList[p.ListID]
	if !ok {
		s.payouts[p.ID] = p
		s.payoutByList[p.ListID] = p.ID
		return p, market.UpsertCreated, nil
	}
	cur := s.payouts[id]
	if cur.Status.Final() {
		return cur, market.UpsertSkippedFinal, nil
	}
	cur.Gross, cur.Commission, cur.ListFees, cur.Net = p.Gross, p.Commission, p.ListFees, p.Net
	cur.TotalArticles, cur.SoldArticles, cur.UnsoldArticles = p.TotalArticles, p.SoldArticles, p.UnsoldArticles
	cur.DepositorID = p.DepositorID
	cur.UpdatedAt = p.UpdatedAt
	s.payouts[id] = cur
	return cur, market.UpsertUpdated, nil
}

func (s *Store) Payout(_ context.Context, id string) (market.Payout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payouts[id]
	if !ok {
		return market.Payout{}, fmt.Errorf("%w: payout %s", market.ErrNotFound, id)
	}
	return p, nil
}

func (s *Store) PayoutByList(ctx context.Context, listID string) (market.Payout, error) {
	s.mu.RLock()
	id, ok := s.payoutByList[listID]
	s.mu.RUnlock()
	if !ok {
		return market.Payout{}, fmt.Errorf("%w: payout for list %s", market.ErrNotFound, listID)
	}
	return s.Payout(ctx, id)
}

// UpdatePayout only writes lifecycle fields; amounts belong to UpsertPayout.
func (s *Store) UpdatePayout(_ context.Context, p market.Payout, from market.PayoutStatus) (market.Payout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.payouts[p.ID]
	if !ok {
		return market.Payout{}, fmt.Errorf("%w: payout %s", market.ErrNotFound, p.ID)
	}
	if cur.Status != from {
		return cur, fmt.Errorf("%w: payout %s is %s, expected %s", market.ErrInvalidState, p.ID, cur.Status, from)
	}
	cur.Status = p.Status
	cur.PaymentMethod = p.PaymentMethod
	cur.PaymentReference = p.PaymentReference
	cur.Notes = p.Notes
	cur.PaidAt = p.PaidAt
	cur.UpdatedAt = p.UpdatedAt
	s.payouts[p.ID] = cur
	return cur, nil
}
