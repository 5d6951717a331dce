package notify

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/ariefcatur/go-resale-market.git/internal/kafka"
	"github.com/ariefcatur/go-resale-market.git/internal/market"
	"github.com/ariefcatur/go-resale-market.git/internal/redisx"
)

// Mailer delivers the "your payout is ready" notice to a depositor.
type Mailer interface {
	SendPayoutReady(ctx context.Context, p market.PayoutEventPayload) error
}

// LogMailer only logs; real delivery lives in the email service.
type LogMailer struct{ Logger *zap.Logger }

func (m LogMailer) SendPayoutReady(_ context.Context, p market.PayoutEventPayload) error {
	log := m.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log.Info("payout ready notice",
		zap.String("payout_id", p.PayoutID),
		zap.String("depositor_id", p.DepositorID),
		zap.String("net", p.Net.StringFixed(2)),
	)
	return nil
}

// Deduper remembers delivered event ids. Mark is only called after a
// successful delivery so a failed send is retried on redelivery.
type Deduper interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Mark(ctx context.Context, eventID string) error
}

type RedisDeduper struct {
	RDB     *redis.Client
	Service string
}

func (d RedisDeduper) Seen(ctx context.Context, eventID string) (bool, error) {
	return redisx.Exists(ctx, d.RDB, fmt.Sprintf(redisx.KeyDedup, d.Service, eventID))
}

func (d RedisDeduper) Mark(ctx context.Context, eventID string) error {
	_, err := redisx.FirstSeen(ctx, d.RDB, d.Service, eventID)
	return err
}

type Service struct {
	Dedup  Deduper
	Mailer Mailer
	Logger *zap.Logger
}

func (s *Service) log() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// HandlePayoutReady is installed as the consumer handler for
// market.payout.ready. Redelivered events are dropped by event id.
func (s *Service) HandlePayoutReady(ctx context.Context, m kafkago.Message) error {
	env, err := kafkax.UnmarshalEnvelope(m.Value)
	if err != nil {
		// poison message: commit it rather than block the partition
		s.log().Error("undecodable envelope", zap.ByteString("key", m.Key), zap.Error(err))
		return nil
	}
	if env.EventType != market.EventPayoutReady {
		return nil
	}

	if s.Dedup != nil {
		seen, err := s.Dedup.Seen(ctx, env.EventID)
		if err != nil {
			s.log().Warn("dedup unavailable, delivering anyway", zap.String("event_id", env.EventID), zap.Error(err))
		} else if seen {
			return nil
		}
	}

	p, err := kafkax.UnwrapPayload[market.PayoutEventPayload](env.Payload)
	if err != nil {
		s.log().Error("bad payout payload", zap.String("event_id", env.EventID), zap.Error(err))
		return nil
	}
	if err := s.Mailer.SendPayoutReady(ctx, p); err != nil {
		return err
	}
	if s.Dedup != nil {
		if err := s.Dedup.Mark(ctx, env.EventID); err != nil {
			s.log().Warn("dedup mark", zap.String("event_id", env.EventID), zap.Error(err))
		}
	}
	return nil
}
