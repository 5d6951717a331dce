package market

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventSaleRegistered   = "SaleRegistered"
	EventSaleSynced       = "SaleSynced"
	EventSaleCancelled    = "SaleCancelled"
	EventPayoutCalculated = "PayoutCalculated"
	EventPayoutReady      = "PayoutReady"
	EventPayoutPaid       = "PayoutPaid"
	EventPayoutCancelled  = "PayoutCancelled"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // sale_id or payout_id
	Payload       json.RawMessage `json:"payload"`
}

type SaleEventPayload struct {
	SaleID         string          `json:"sale_id"`
	ClientID       string          `json:"client_id,omitempty"`
	ArticleID      string          `json:"article_id"`
	ListID         string          `json:"list_id"`
	EditionID      string          `json:"edition_id"`
	Price          decimal.Decimal `json:"price"`
	PaymentMethod  PaymentMethod   `json:"payment_method"`
	RegisterNumber int             `json:"register_number"`
	Offline        bool            `json:"offline"`
	PrivateSale    bool            `json:"private_sale"`
	Reason         string          `json:"reason,omitempty"`
}

func NewSaleEventPayload(s Sale) SaleEventPayload {
	return SaleEventPayload{
		SaleID:         s.ID,
		ClientID:       s.ClientID,
		ArticleID:      s.ArticleID,
		ListID:         s.ListID,
		EditionID:      s.EditionID,
		Price:          s.Price,
		PaymentMethod:  s.PaymentMethod,
		RegisterNumber: s.RegisterNumber,
		Offline:        s.Offline,
		PrivateSale:    s.PrivateSale,
		Reason:         s.CancelReason,
	}
}

type PayoutEventPayload struct {
	PayoutID    string          `json:"payout_id"`
	ListID      string          `json:"list_id"`
	DepositorID string          `json:"depositor_id"`
	EditionID   string          `json:"edition_id"`
	Status      PayoutStatus    `json:"status"`
	Gross       decimal.Decimal `json:"gross_amount"`
	Net         decimal.Decimal `json:"net_amount"`
	Method      PayoutMethod    `json:"payment_method,omitempty"`
	Reference   string          `json:"payment_reference,omitempty"`
}

func NewPayoutEventPayload(p Payout) PayoutEventPayload {
	return PayoutEventPayload{
		PayoutID:    p.ID,
		ListID:      p.ListID,
		DepositorID: p.DepositorID,
		EditionID:   p.EditionID,
		Status:      p.Status,
		Gross:       p.Gross,
		Net:         p.Net,
		Method:      p.PaymentMethod,
		Reference:   p.PaymentReference,
	}
}

// AuditEvent is handed to the AuditSink; the sink wraps it into an Envelope.
type AuditEvent struct {
	Type          string
	CorrelationID string
	Payload       any
}

func SaleEvent(eventType string, s Sale) AuditEvent {
	return AuditEvent{Type: eventType, CorrelationID: s.ID, Payload: NewSaleEventPayload(s)}
}

func PayoutEvent(eventType string, p Payout) AuditEvent {
	return AuditEvent{Type: eventType, CorrelationID: p.ID, Payload: NewPayoutEventPayload(p)}
}
