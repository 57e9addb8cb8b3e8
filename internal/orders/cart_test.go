package orders_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ariefcatur/go-shop-core/internal/orders"
)

func TestCartAddAndList(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.product(t, "a", "2.00", 5)
	b := f.product(t, "b", "3.00", 5)

	if _, err := f.cart.Add(ctx, 1, b.ID, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := f.cart.Add(ctx, 1, a.ID, 2); err != nil {
		t.Fatal(err)
	}
	lines, err := f.cart.Lines(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 2 || lines[0].ProductID != b.ID || lines[1].ProductName != "a" || !lines[1].Price.Equal(dec("2")) {
		t.Fatalf("lines = %+v", lines)
	}
}

func TestCartAddDuplicateConflicts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := f.product(t, "a", "2.00", 5)
	if _, err := f.cart.Add(ctx, 1, p.ID, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := f.cart.Add(ctx, 1, p.ID, 4); !errors.Is(err, orders.ErrConflict) {
		t.Fatalf("err = %v", err)
	}
	// another user may hold the same product
	if _, err := f.cart.Add(ctx, 2, p.ID, 1); err != nil {
		t.Fatal(err)
	}
}

func TestCartAddValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	if _, err := f.cart.Add(ctx, 1, 42, 1); !errors.Is(err, orders.ErrNotFound) {
		t.Fatalf("missing product: %v", err)
	}
	p := f.product(t, "a", "2.00", 5)
	if _, err := f.cart.Add(ctx, 1, p.ID, 0); !errors.Is(err, orders.ErrInvalid) {
		t.Fatalf("zero quantity: %v", err)
	}
}

func TestCartUpdateAndRemove(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := f.product(t, "a", "2.00", 5)
	line, err := f.cart.Add(ctx, 1, p.ID, 1)
	if err != nil {
		t.Fatal(err)
	}

	updated, err := f.cart.UpdateQuantity(ctx, line.ID, 3)
	if err != nil || updated.Quantity != 3 {
		t.Fatalf("update: %+v, %v", updated, err)
	}
	if _, err := f.cart.UpdateQuantity(ctx, line.ID, 0); !errors.Is(err, orders.ErrInvalid) {
		t.Fatalf("zero quantity: %v", err)
	}
	if _, err := f.cart.UpdateQuantity(ctx, 999, 1); !errors.Is(err, orders.ErrNotFound) {
		t.Fatalf("missing line: %v", err)
	}

	if err := f.cart.Remove(ctx, line.ID); err != nil {
		t.Fatal(err)
	}
	if err := f.cart.Remove(ctx, line.ID); !errors.Is(err, orders.ErrNotFound) {
		t.Fatalf("second remove: %v", err)
	}
	if _, err := f.cart.Lines(ctx, 1); !errors.Is(err, orders.ErrNotFound) {
		t.Fatalf("empty cart: %v", err)
	}
}

func TestDeletingProductDropsCartLines(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := f.product(t, "a", "2.00", 5)
	if _, err := f.cart.Add(ctx, 1, p.ID, 1); err != nil {
		t.Fatal(err)
	}
	if err := f.catalog.Delete(ctx, p.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.cart.Lines(ctx, 1); !errors.Is(err, orders.ErrNotFound) {
		t.Fatalf("cart after product delete: %v", err)
	}
}
