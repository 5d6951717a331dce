package kafka

import (
	"context"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-resale-market.git/internal/market"
)

const envelopeVersion = 1

type queue interface {
	Publish(key, value []byte, headers ...kafka.Header) bool
}

// Publisher is the market.AuditSink and market.Notifier backed by Kafka.
type Publisher struct {
	Audit   queue // market.audit
	Ready   queue // market.payout.ready
	Service string
}

var (
	_ market.AuditSink = (*Publisher)(nil)
	_ market.Notifier  = (*Publisher)(nil)
)

func (p *Publisher) envelope(ctx context.Context, eventType, correlationID string, payload any) []byte {
	return MustMarshal(market.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  envelopeVersion,
		OccurredAt:    time.Now().UTC(),
		Producer:      p.Service,
		TraceID:       middleware.GetReqID(ctx),
		CorrelationID: correlationID,
		Payload:       MustMarshal(payload),
	})
}

func headers(eventType string) []kafka.Header {
	return []kafka.Header{
		{Key: "x-event-type", Value: []byte(eventType)},
		{Key: "x-event-version", Value: []byte(strconv.Itoa(envelopeVersion))},
	}
}

func (p *Publisher) Record(ctx context.Context, ev market.AuditEvent) {
	if p.Audit == nil {
		return
	}
	p.Audit.Publish(market.PartitionKey(ev.CorrelationID), p.envelope(ctx, ev.Type, ev.CorrelationID, ev.Payload), headers(ev.Type)...)
}

func (p *Publisher) PayoutReady(ctx context.Context, po market.Payout) {
	if p.Ready == nil {
		return
	}
	p.Ready.Publish(market.PartitionKey(po.ID),
		p.envelope(ctx, market.EventPayoutReady, po.ID, market.NewPayoutEventPayload(po)),
		headers(market.EventPayoutReady)...)
}
