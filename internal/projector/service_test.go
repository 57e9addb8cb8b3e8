package projector

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	kafkax "github.com/ariefcatur/go-shop-core/internal/kafka"
	"github.com/ariefcatur/go-shop-core/internal/orders"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

type memDedup struct{ seen map[string]bool }

func (d *memDedup) FirstSeen(_ context.Context, id string) (bool, error) {
	if d.seen[id] {
		return false, nil
	}
	d.seen[id] = true
	return true, nil
}

func (d *memDedup) Forget(_ context.Context, id string) error {
	delete(d.seen, id)
	return nil
}

type memCache struct {
	orders  map[int64]orders.Order
	putErr  error
	dropped []int64
}

// Put follows the redisx.OrderCache rule: a terminal status is never replaced
// by a non-terminal one.
func (c *memCache) Put(_ context.Context, o orders.Order) error {
	if c.putErr != nil {
		return c.putErr
	}
	if cur, ok := c.orders[o.ID]; ok && cur.Status.Terminal() && !o.Status.Terminal() {
		return nil
	}
	c.orders[o.ID] = o
	return nil
}

func (c *memCache) Invalidate(_ context.Context, id int64) error {
	delete(c.orders, id)
	c.dropped = append(c.dropped, id)
	return nil
}

func newService() (*Service, *memDedup, *memCache) {
	d := &memDedup{seen: map[string]bool{}}
	c := &memCache{orders: map[int64]orders.Order{}}
	return &Service{Dedup: d, Cache: c}, d, c
}

func message(t *testing.T, eventType string, payload any) kafkago.Message {
	t.Helper()
	env, err := kafkax.NewEnvelope(eventType, "test", "1", "", payload)
	if err != nil {
		t.Fatal(err)
	}
	b, err := json.Marshal(env)
	if err != nil {
		t.Fatal(err)
	}
	return kafkago.Message{Topic: "t", Value: b}
}

func TestOrderCreatedWarmsCache(t *testing.T) {
	svc, _, cache := newService()
	o := orders.Order{ID: 1, UserID: 3, TotalAmount: decimal.NewFromInt(20), Status: orders.StatusPendingPayment}

	if err := svc.Handle(context.Background(), message(t, orders.EventOrderCreated, orders.OrderCreatedPayload{Order: o})); err != nil {
		t.Fatal(err)
	}
	got, ok := cache.orders[1]
	if !ok || got.UserID != 3 {
		t.Fatalf("cache = %+v", cache.orders)
	}
}

func TestPaymentRecordedWritesPaidOrder(t *testing.T) {
	svc, _, cache := newService()
	cache.orders[5] = orders.Order{ID: 5, Status: orders.StatusPendingPayment}

	m := message(t, orders.EventPaymentRecorded, orders.PaymentRecordedPayload{
		Payment:     orders.Payment{OrderID: 5, Status: orders.PaymentSuccess},
		Order:       orders.Order{ID: 5, Status: orders.StatusCompleted},
		OrderStatus: orders.StatusCompleted,
	})
	if err := svc.Handle(context.Background(), m); err != nil {
		t.Fatal(err)
	}
	if got := cache.orders[5]; got.Status != orders.StatusCompleted {
		t.Fatalf("cached status = %s", got.Status)
	}
}

func TestPaymentRecordedWithoutOrderInvalidates(t *testing.T) {
	svc, _, cache := newService()
	cache.orders[5] = orders.Order{ID: 5}

	m := message(t, orders.EventPaymentRecorded, orders.PaymentRecordedPayload{
		Payment: orders.Payment{OrderID: 5, Status: orders.PaymentSuccess}, OrderStatus: orders.StatusCompleted,
	})
	if err := svc.Handle(context.Background(), m); err != nil {
		t.Fatal(err)
	}
	if _, ok := cache.orders[5]; ok {
		t.Fatal("order 5 still cached")
	}
}

func TestPaymentBeforeOrderCreatedKeepsPaidStatus(t *testing.T) {
	svc, _, cache := newService()
	ctx := context.Background()
	pending := orders.Order{ID: 9, UserID: 1, TotalAmount: decimal.NewFromInt(5), Status: orders.StatusPendingPayment}
	paid := pending
	paid.Status = orders.StatusCompleted

	if err := svc.Handle(ctx, message(t, orders.EventPaymentRecorded, orders.PaymentRecordedPayload{
		Payment: orders.Payment{OrderID: 9, Status: orders.PaymentSuccess}, Order: paid, OrderStatus: orders.StatusCompleted,
	})); err != nil {
		t.Fatal(err)
	}
	if err := svc.Handle(ctx, message(t, orders.EventOrderCreated, orders.OrderCreatedPayload{Order: pending})); err != nil {
		t.Fatal(err)
	}
	if got := cache.orders[9]; got.Status != orders.StatusCompleted {
		t.Fatalf("cached status = %s after late OrderCreated, want COMPLETED", got.Status)
	}
}

func TestDuplicateEventAppliedOnce(t *testing.T) {
	svc, _, cache := newService()
	m := message(t, orders.EventPaymentRecorded, orders.PaymentRecordedPayload{Payment: orders.Payment{OrderID: 5}})

	for i := 0; i < 3; i++ {
		if err := svc.Handle(context.Background(), m); err != nil {
			t.Fatal(err)
		}
	}
	if len(cache.dropped) != 1 {
		t.Fatalf("invalidated %d times, want 1", len(cache.dropped))
	}
}

func TestFailedEventCanBeRetried(t *testing.T) {
	svc, dedup, cache := newService()
	cache.putErr = errors.New("redis down")
	m := message(t, orders.EventOrderCreated, orders.OrderCreatedPayload{Order: orders.Order{ID: 2}})

	if err := svc.Handle(context.Background(), m); err == nil {
		t.Fatal("expected error while cache is down")
	}
	if len(dedup.seen) != 0 {
		t.Fatal("failed event must not stay marked as seen")
	}

	cache.putErr = nil
	if err := svc.Handle(context.Background(), m); err != nil {
		t.Fatal(err)
	}
	if _, ok := cache.orders[2]; !ok {
		t.Fatal("retry did not cache the order")
	}
}

func TestUndecodableMessageSkipped(t *testing.T) {
	svc, dedup, _ := newService()
	if err := svc.Handle(context.Background(), kafkago.Message{Value: []byte("garbage")}); err != nil {
		t.Fatalf("garbage must be skipped, got %v", err)
	}
	if len(dedup.seen) != 0 {
		t.Fatal("garbage must not reach dedup")
	}
}
