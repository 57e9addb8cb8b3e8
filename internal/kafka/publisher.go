package kafka

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/ariefcatur/go-shop-core/internal/orders"
	"github.com/ariefcatur/go-shop-core/internal/tracing"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const HeaderEventType = "event_type"

// Sink is the write side of a Producer.
type Sink interface {
	Publish(key, value []byte, headers ...kafka.Header) bool
}

// EventPublisher turns committed domain changes into Kafka events, one topic per
// event type, keyed by order id.
type EventPublisher struct {
	orderSink   Sink
	paymentSink Sink
	producer    string
	log         *zap.Logger
}

var _ orders.Publisher = (*EventPublisher)(nil)

func NewEventPublisher(orderSink, paymentSink Sink, producer string, log *zap.Logger) *EventPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &EventPublisher{orderSink: orderSink, paymentSink: paymentSink, producer: producer, log: log}
}

func (p *EventPublisher) OrderCreated(ctx context.Context, o orders.Order, source string) {
	p.publish(ctx, p.orderSink, orders.EventOrderCreated, o.ID,
		orders.OrderCreatedPayload{Order: o, Source: source})
}

func (p *EventPublisher) PaymentRecorded(ctx context.Context, pay orders.Payment, o orders.Order) {
	p.publish(ctx, p.paymentSink, orders.EventPaymentRecorded, o.ID,
		orders.PaymentRecordedPayload{Payment: pay, Order: o, OrderStatus: o.Status, OrderTotal: o.TotalAmount})
}

func (p *EventPublisher) publish(ctx context.Context, sink Sink, eventType string, orderID int64, payload any) {
	env, err := NewEnvelope(eventType, p.producer, strconv.FormatInt(orderID, 10), tracing.TraceID(ctx), payload)
	if err != nil {
		p.log.Error("build event", zap.String("event_type", eventType), zap.Int64("order_id", orderID), zap.Error(err))
		return
	}
	b, err := json.Marshal(env)
	if err != nil {
		p.log.Error("encode event", zap.String("event_type", eventType), zap.Int64("order_id", orderID), zap.Error(err))
		return
	}
	headers := tracing.InjectKafkaHeaders(ctx, []kafka.Header{{Key: HeaderEventType, Value: []byte(eventType)}})
	if sink.Publish(orders.PartitionKey(orderID), b, headers...) {
		p.log.Debug("event queued", zap.String("event_type", eventType),
			zap.String("event_id", env.EventID), zap.Int64("order_id", orderID))
	}
}
