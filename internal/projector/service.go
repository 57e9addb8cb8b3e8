// Package projector keeps the order details cache in step with the event stream.
package projector

import (
	"context"
	"fmt"

	kafkax "github.com/ariefcatur/go-shop-core/internal/kafka"
	"github.com/ariefcatur/go-shop-core/internal/metrics"
	"github.com/ariefcatur/go-shop-core/internal/orders"
	"github.com/ariefcatur/go-shop-core/internal/tracing"
	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Deduper interface {
	FirstSeen(ctx context.Context, id string) (bool, error)
	Forget(ctx context.Context, id string) error
}

// Cache.Put must not replace a cached terminal status with a non-terminal one;
// the two topics are consumed independently and may arrive in either order.
type Cache interface {
	Put(ctx context.Context, o orders.Order) error
	Invalidate(ctx context.Context, orderID int64) error
}

type Service struct {
	Dedup Deduper
	Cache Cache
	Log   *zap.Logger
}

// Handle dipasang sebagai handler consumer untuk kedua topic.
func (s *Service) Handle(ctx context.Context, m kafkago.Message) error {
	log := s.Log
	if log == nil {
		log = zap.NewNop()
	}
	ctx = tracing.ExtractKafkaHeaders(ctx, m.Headers)
	ctx, span := otel.Tracer("projector").Start(ctx, "projector.Handle",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(attribute.String("messaging.destination", m.Topic)))
	defer span.End()

	// 1) decode envelope; pesan rusak tidak akan pernah sukses, jadi di-skip
	env, err := kafkax.UnmarshalEnvelope(m.Value)
	if err != nil {
		log.Warn("skip undecodable message", zap.String("topic", m.Topic), zap.Int64("offset", m.Offset), zap.Error(err))
		metrics.EventsConsumed.WithLabelValues("unknown", "error").Inc()
		return nil
	}
	log = log.With(zap.String("event_id", env.EventID), zap.String("event_type", env.EventType))

	// 2) dedup via Redis (pakai event_id)
	first, err := s.Dedup.FirstSeen(ctx, env.EventID)
	if err != nil {
		return fmt.Errorf("dedup %s: %w", env.EventID, err)
	}
	if !first {
		metrics.EventsConsumed.WithLabelValues(env.EventType, "duplicate").Inc()
		log.Debug("duplicate event ignored")
		return nil
	}

	if err := s.apply(ctx, env); err != nil {
		if ferr := s.Dedup.Forget(ctx, env.EventID); ferr != nil {
			log.Warn("dedup forget failed", zap.Error(ferr))
		}
		span.RecordError(err)
		metrics.EventsConsumed.WithLabelValues(env.EventType, "error").Inc()
		return err
	}
	metrics.EventsConsumed.WithLabelValues(env.EventType, "applied").Inc()
	return nil
}

func (s *Service) apply(ctx context.Context, env orders.Envelope) error {
	switch env.EventType {
	case orders.EventOrderCreated:
		p, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
		if err != nil {
			return err
		}
		if err := s.Cache.Put(ctx, p.Order); err != nil {
			return fmt.Errorf("cache order %d: %w", p.Order.ID, err)
		}
	case orders.EventPaymentRecorded:
		p, err := kafkax.UnwrapPayload[orders.PaymentRecordedPayload](env.Payload)
		if err != nil {
			return err
		}
		if p.Order.ID == 0 {
			// event tanpa snapshot order: cukup buang cache
			if err := s.Cache.Invalidate(ctx, p.Payment.OrderID); err != nil {
				return fmt.Errorf("invalidate order %d: %w", p.Payment.OrderID, err)
			}
			return nil
		}
		if err := s.Cache.Put(ctx, p.Order); err != nil {
			return fmt.Errorf("cache order %d: %w", p.Order.ID, err)
		}
	}
	// event lain diabaikan
	return nil
}
