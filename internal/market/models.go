package market

import (
	"time"

	"github.com/shopspring/decimal"
)

type Edition struct {
	ID     string        `json:"id"`
	Name   string        `json:"name"`
	Status EditionStatus `json:"status"`
}

func (e Edition) Open() bool { return e.Status == EditionOpen }

// ItemList is one depositor's set of articles for an edition.
type ItemList struct {
	ID          string `json:"id"`
	EditionID   string `json:"edition_id"`
	Number      int    `json:"number"`
	DepositorID string `json:"depositor_id"`
}

type Article struct {
	ID          string          `json:"id"`
	Barcode     string          `json:"barcode"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	ListID      string          `json:"list_id"`
	EditionID   string          `json:"edition_id"`
	DepositorID string          `json:"depositor_id"`
	IsLot       bool            `json:"is_lot"`
	LotQuantity int             `json:"lot_quantity"`
	Status      ArticleStatus   `json:"status"`
}

type Sale struct {
	ID             string          `json:"id"`
	ClientID       string          `json:"client_id,omitempty"` // offline idempotency key
	ArticleID      string          `json:"article_id"`
	EditionID      string          `json:"edition_id"`
	ListID         string          `json:"list_id"`
	DepositorID    string          `json:"depositor_id"`
	Price          decimal.Decimal `json:"price"`
	PaymentMethod  PaymentMethod   `json:"payment_method"`
	RegisterNumber int             `json:"register_number"`
	SellerID       string          `json:"seller_id,omitempty"`
	SoldAt         time.Time       `json:"sold_at"`
	Offline        bool            `json:"offline"`
	SyncedAt       *time.Time      `json:"synced_at,omitempty"`
	PrivateSale    bool            `json:"private_sale"`
	CancelledAt    *time.Time      `json:"cancelled_at,omitempty"`
	CancelReason   string          `json:"cancel_reason,omitempty"`
}

func (s Sale) Void() bool { return s.CancelledAt != nil }

// OfflineSaleRecord is what a disconnected register submits for replay.
// It is never stored as-is.
type OfflineSaleRecord struct {
	ClientID       string    `json:"client_id"`
	ArticleID      string    `json:"article_id"`
	PaymentMethod  string    `json:"payment_method"`
	RegisterNumber int       `json:"register_number"`
	SellerID       string    `json:"seller_id,omitempty"`
	SoldAt         time.Time `json:"sold_at"`
}

type Payout struct {
	ID               string          `json:"id"`
	EditionID        string          `json:"edition_id"`
	ListID           string          `json:"list_id"`
	DepositorID      string          `json:"depositor_id"`
	Gross            decimal.Decimal `json:"gross_amount"`
	Commission       decimal.Decimal `json:"commission_amount"`
	ListFees         decimal.Decimal `json:"list_fees"`
	Net              decimal.Decimal `json:"net_amount"`
	TotalArticles    int             `json:"total_articles"`
	SoldArticles     int             `json:"sold_articles"`
	UnsoldArticles   int             `json:"unsold_articles"`
	Status           PayoutStatus    `json:"status"`
	PaymentMethod    PayoutMethod    `json:"payment_method,omitempty"`
	PaymentReference string          `json:"payment_reference,omitempty"`
	Notes            string          `json:"notes,omitempty"`
	PaidAt           *time.Time      `json:"paid_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}
