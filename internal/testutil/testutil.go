// Package testutil holds fixtures shared by service tests.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-resale-market.git/internal/market"
	"github.com/ariefcatur/go-resale-market.git/internal/memstore"
)

// Clock is a settable clock safe for concurrent use.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(t time.Time) *Clock { return &Clock{now: t} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Audit collects every event it is handed.
type Audit struct {
	mu     sync.Mutex
	Events []market.AuditEvent
}

func (a *Audit) Record(_ context.Context, ev market.AuditEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Events = append(a.Events, ev)
}

func (a *Audit) Types() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.Events))
	for _, ev := range a.Events {
		out = append(out, ev.Type)
	}
	return out
}

// Notifier collects payouts announced as ready.
type Notifier struct {
	mu    sync.Mutex
	Ready []market.Payout
}

func (n *Notifier) PayoutReady(_ context.Context, p market.Payout) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Ready = append(n.Ready, p)
}

// Market seeds edition "ed1" (open) with list "L1" of depositor "dep1"
// holding the given barcode -> price pairs. Article ids equal barcodes.
func Market(t *testing.T, prices map[string]string) *memstore.Store {
	t.Helper()
	s := memstore.New()
	s.PutEdition(market.Edition{ID: "ed1", Name: "Spring", Status: market.EditionOpen})
	s.PutList(market.ItemList{ID: "L1", EditionID: "ed1", Number: 1, DepositorID: "dep1"})
	for code, price := range prices {
		require.NoError(t, s.PutArticle(market.Article{
			ID:          code,
			Barcode:     code,
			Description: "article " + code,
			Price:       decimal.RequireFromString(price),
			ListID:      "L1",
		}))
	}
	return s
}

// Friday 2025-06-13 at the given local hour/minute in loc.
func Friday(loc *time.Location, hour, min int) time.Time {
	return time.Date(2025, 6, 13, hour, min, 0, 0, loc)
}
