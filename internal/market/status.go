package market

import "fmt"

type ArticleStatus string

const (
	ArticleAvailable ArticleStatus = "available"
	ArticleSold      ArticleStatus = "sold"
	ArticleWithdrawn ArticleStatus = "withdrawn"
)

// sold -> available only happens through Ledger.Release (sale cancellation).
var articleNext = map[ArticleStatus]map[ArticleStatus]bool{
	ArticleAvailable: {ArticleSold: true, ArticleWithdrawn: true},
	ArticleSold:      {ArticleAvailable: true},
	ArticleWithdrawn: {},
}

func (s ArticleStatus) Valid() bool {
	_, ok := articleNext[s]
	return ok
}

func (s ArticleStatus) CanTransition(to ArticleStatus) bool {
	return articleNext[s][to]
}

type PayoutStatus string

const (
	PayoutPending   PayoutStatus = "pending"
	PayoutReady     PayoutStatus = "ready"
	PayoutPaid      PayoutStatus = "paid"
	PayoutCancelled PayoutStatus = "cancelled"
)

var payoutNext = map[PayoutStatus]map[PayoutStatus]bool{
	PayoutPending:   {PayoutReady: true, PayoutCancelled: true},
	PayoutReady:     {PayoutPaid: true, PayoutCancelled: true},
	PayoutPaid:      {},
	PayoutCancelled: {},
}

func (s PayoutStatus) Valid() bool {
	_, ok := payoutNext[s]
	return ok
}

func (s PayoutStatus) CanTransition(to PayoutStatus) bool {
	return payoutNext[s][to]
}

// Final reports whether amounts of a payout in this status are frozen.
func (s PayoutStatus) Final() bool {
	return s == PayoutPaid || s == PayoutCancelled
}

// Transition returns to when from -> to is allowed, ErrInvalidState otherwise.
func (s PayoutStatus) Transition(to PayoutStatus) (PayoutStatus, error) {
	if !s.CanTransition(to) {
		return s, fmt.Errorf("%w: payout %s -> %s", ErrInvalidState, s, to)
	}
	return to, nil
}

type EditionStatus string

const (
	EditionOpen   EditionStatus = "open"
	EditionClosed EditionStatus = "closed"
)
