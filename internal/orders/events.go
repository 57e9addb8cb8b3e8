package orders

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderCreated    = "OrderCreated"
	EventPaymentRecorded = "PaymentRecorded"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // salah satu const di atas
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"` // e.g., "shop-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

// OrderCreatedPayload carries the full order so consumers need not re-query.
type OrderCreatedPayload struct {
	Order  Order  `json:"order"`
	Source string `json:"source"` // cart | direct
}

// PaymentRecordedPayload carries the order as it stands after the payment.
type PaymentRecordedPayload struct {
	Payment     Payment         `json:"payment"`
	Order       Order           `json:"order"`
	OrderStatus Status          `json:"order_status"`
	OrderTotal  decimal.Decimal `json:"order_total"`
}

const (
	SourceCart   = "cart"
	SourceDirect = "direct"
)

// Publisher receives domain events after the transaction that produced them has
// committed. Implementations must not block the caller for long.
type Publisher interface {
	OrderCreated(ctx context.Context, o Order, source string)
	PaymentRecorded(ctx context.Context, p Payment, o Order)
}

type nopPublisher struct{}

func (nopPublisher) OrderCreated(context.Context, Order, string)    {}
func (nopPublisher) PaymentRecorded(context.Context, Payment, Order) {}
