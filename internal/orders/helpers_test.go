package orders_test

import (
	"context"
	"sync"
	"testing"

	"github.com/ariefcatur/go-shop-core/internal/memory"
	"github.com/ariefcatur/go-shop-core/internal/orders"
	"github.com/shopspring/decimal"
)

type recordingPublisher struct {
	mu       sync.Mutex
	created  []orders.Order
	sources  []string
	payments []orders.Payment
	paid     []orders.Order
}

func (p *recordingPublisher) OrderCreated(_ context.Context, o orders.Order, source string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, o)
	p.sources = append(p.sources, source)
}

func (p *recordingPublisher) PaymentRecorded(_ context.Context, pay orders.Payment, o orders.Order) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payments = append(p.payments, pay)
	p.paid = append(p.paid, o)
}

type fixture struct {
	store     *memory.Store
	pub       *recordingPublisher
	catalog   *orders.Catalog
	cart      *orders.Cart
	assembler *orders.Assembler
	ledger    *orders.Ledger
}

func newFixture() *fixture {
	st := memory.NewStore()
	pub := &recordingPublisher{}
	return &fixture{
		store:     st,
		pub:       pub,
		catalog:   orders.NewCatalog(st),
		cart:      orders.NewCart(st),
		assembler: orders.NewAssembler(st, pub, nil),
		ledger:    orders.NewLedger(st, pub, nil),
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func (f *fixture) product(t *testing.T, name, price string, stock int) orders.Product {
	t.Helper()
	p, err := f.catalog.Create(context.Background(), orders.Product{
		Name: name, Price: dec(price), Stock: stock, Category: "food",
	})
	if err != nil {
		t.Fatalf("create product %s: %v", name, err)
	}
	return p
}

func (f *fixture) stock(t *testing.T, id int64) int {
	t.Helper()
	p, err := f.catalog.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get product %d: %v", id, err)
	}
	return p.Stock
}

func (f *fixture) pendingOrder(t *testing.T, userID int64, price string) orders.Order {
	t.Helper()
	p := f.product(t, "item-"+price+"-"+decimal.NewFromInt(userID).String(), price, 10)
	o, err := f.assembler.Direct(context.Background(), userID, p.ID, 1)
	if err != nil {
		t.Fatalf("direct order: %v", err)
	}
	return o
}
