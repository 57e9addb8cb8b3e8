//go:build integration

package orders_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ariefcatur/go-shop-core/internal/orders"
	"github.com/ariefcatur/go-shop-core/internal/postgres"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPostgres(t *testing.T) *orders.Repo {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pgC, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("shop"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).WithStartupTimeout(time.Minute)),
	)
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	t.Cleanup(func() { _ = pgC.Terminate(context.Background()) })

	dsn, err := pgC.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}
	pool, err := postgres.Connect(ctx, dsn, 16)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Close)
	if err := postgres.Migrate(ctx, pool); err != nil {
		t.Fatal(err)
	}
	return &orders.Repo{DB: pool}
}

func TestPostgresOrderLifecycle(t *testing.T) {
	repo := startPostgres(t)
	ctx := context.Background()
	catalog := orders.NewCatalog(repo)
	cart := orders.NewCart(repo)
	asm := orders.NewAssembler(repo, nil, nil)
	ledger := orders.NewLedger(repo, nil, nil)

	p, err := catalog.Create(ctx, orders.Product{Name: "kibble", Price: dec("10.00"), Stock: 5, Category: "food"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := catalog.Create(ctx, orders.Product{Name: "kibble", Price: dec("1"), Category: "food"}); !errors.Is(err, orders.ErrConflict) {
		t.Fatalf("duplicate name: %v", err)
	}
	if _, err := cart.Add(ctx, 1, p.ID, 2); err != nil {
		t.Fatal(err)
	}
	if _, err := cart.Add(ctx, 1, p.ID, 1); !errors.Is(err, orders.ErrConflict) {
		t.Fatalf("duplicate line: %v", err)
	}

	o, err := asm.FromCart(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !o.TotalAmount.Equal(dec("20")) || len(o.Items) != 1 {
		t.Fatalf("order = %+v", o)
	}
	got, _ := catalog.Get(ctx, p.ID)
	if got.Stock != 3 {
		t.Fatalf("stock = %d", got.Stock)
	}

	pay, replayed, err := ledger.ApplyWebhook(ctx, orders.Webhook{Provider: "razorpay", TransactionID: "tx-1", OrderID: o.ID, Status: "SUCCESS", Amount: dec("20")})
	if err != nil || replayed {
		t.Fatalf("webhook: %v %v", replayed, err)
	}
	again, replayed, err := ledger.ApplyWebhook(ctx, orders.Webhook{Provider: "razorpay", TransactionID: "tx-1", OrderID: o.ID, Status: "SUCCESS", Amount: dec("20")})
	if err != nil || !replayed || again.ID != pay.ID {
		t.Fatalf("replay: %+v %v %v", again, replayed, err)
	}

	stored, err := asm.Get(ctx, o.ID)
	if err != nil || stored.Status != orders.StatusCompleted || !stored.Items[0].UnitPrice.Equal(dec("10")) {
		t.Fatalf("stored = %+v, %v", stored, err)
	}
}

func TestPostgresConcurrentReservations(t *testing.T) {
	repo := startPostgres(t)
	ctx := context.Background()
	p, err := orders.NewCatalog(repo).Create(ctx, orders.Product{Name: "limited", Price: dec("1"), Stock: 10, Category: "toys"})
	if err != nil {
		t.Fatal(err)
	}
	asm := orders.NewAssembler(repo, nil, nil)

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func(user int64) {
			defer wg.Done()
			_, err := asm.Direct(ctx, user, p.ID, 3)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if !errors.Is(err, orders.ErrInsufficientStock) {
				t.Errorf("unexpected: %v", err)
			}
		}(int64(i + 1))
	}
	wg.Wait()

	got, _ := orders.NewCatalog(repo).Get(ctx, p.ID)
	if ok != 3 || got.Stock != 1 {
		t.Fatalf("succeeded %d, stock %d", ok, got.Stock)
	}
}

func TestPostgresOppositeCartOrdersDoNotDeadlock(t *testing.T) {
	repo := startPostgres(t)
	ctx := context.Background()
	catalog := orders.NewCatalog(repo)
	cart := orders.NewCart(repo)
	a, err := catalog.Create(ctx, orders.Product{Name: "a", Price: dec("1"), Stock: 100, Category: "food"})
	if err != nil {
		t.Fatal(err)
	}
	b, err := catalog.Create(ctx, orders.Product{Name: "b", Price: dec("1"), Stock: 100, Category: "food"})
	if err != nil {
		t.Fatal(err)
	}

	const users = 20
	for u := int64(1); u <= users; u++ {
		first, second := a.ID, b.ID
		if u%2 == 0 {
			first, second = second, first
		}
		for _, id := range []int64{first, second} {
			if _, err := cart.Add(ctx, u, id, 1); err != nil {
				t.Fatal(err)
			}
		}
	}

	asm := orders.NewAssembler(repo, nil, nil)
	var wg sync.WaitGroup
	for u := int64(1); u <= users; u++ {
		wg.Add(1)
		go func(user int64) {
			defer wg.Done()
			if _, err := asm.FromCart(ctx, user); err != nil {
				t.Errorf("user %d: %v", user, err)
			}
		}(u)
	}
	wg.Wait()

	for _, id := range []int64{a.ID, b.ID} {
		got, _ := catalog.Get(ctx, id)
		if got.Stock != 100-users {
			t.Fatalf("product %d stock = %d", id, got.Stock)
		}
	}
}
