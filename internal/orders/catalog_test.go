package orders_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ariefcatur/go-shop-core/internal/orders"
	"github.com/tealeg/xlsx"
)

func TestCatalogCreateValidates(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	cases := map[string]orders.Product{
		"empty name":     {Name: " ", Price: dec("1"), Category: "food"},
		"negative price": {Name: "x", Price: dec("-0.01"), Category: "food"},
		"negative stock": {Name: "x", Price: dec("1"), Stock: -1, Category: "food"},
		"no category":    {Name: "x", Price: dec("1")},
		"price too big":  {Name: "x", Price: dec("100000000"), Category: "food"},
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := f.catalog.Create(ctx, p); !errors.Is(err, orders.ErrInvalid) {
				t.Fatalf("err = %v", err)
			}
		})
	}
}

func TestCatalogRoundsPriceAndRejectsDuplicateName(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p, err := f.catalog.Create(ctx, orders.Product{Name: "bone", Price: dec("1.239"), Stock: 1, Category: "toys"})
	if err != nil {
		t.Fatal(err)
	}
	if !p.Price.Equal(dec("1.24")) {
		t.Fatalf("price = %s", p.Price)
	}
	if _, err := f.catalog.Create(ctx, orders.Product{Name: "bone", Price: dec("2"), Category: "toys"}); !errors.Is(err, orders.ErrConflict) {
		t.Fatalf("duplicate name: %v", err)
	}
}

func TestCatalogListPaging(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		f.product(t, fmt.Sprintf("p%d", i), "1.00", 1)
	}
	page, err := f.catalog.List(ctx, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 2 || page[0].Name != "p1" || page[1].Name != "p2" {
		t.Fatalf("page = %+v", page)
	}
	all, _ := f.catalog.List(ctx, 0, 0)
	if len(all) != 5 {
		t.Fatalf("default limit returned %d", len(all))
	}
	if _, err := f.catalog.List(ctx, -1, 10); !errors.Is(err, orders.ErrInvalid) {
		t.Fatalf("negative skip: %v", err)
	}
}

func TestCatalogByCategory(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.product(t, "kibble", "1.00", 1)
	if _, err := f.catalog.Create(ctx, orders.Product{Name: "brush", Price: dec("1"), Category: "grooming"}); err != nil {
		t.Fatal(err)
	}

	ps, err := f.catalog.ByCategory(ctx, "Grooming")
	if err != nil || len(ps) != 1 || ps[0].Name != "brush" {
		t.Fatalf("grooming = %+v, %v", ps, err)
	}
	if _, err := f.catalog.ByCategory(ctx, "weapons"); !errors.Is(err, orders.ErrInvalidCategory) {
		t.Fatalf("unknown category: %v", err)
	}
}

func TestCatalogUpdatePatch(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := f.product(t, "kibble", "1.00", 1)

	stock := 7
	got, err := f.catalog.Update(ctx, p.ID, orders.ProductPatch{Stock: &stock})
	if err != nil {
		t.Fatal(err)
	}
	if got.Stock != 7 || got.Name != "kibble" || !got.Price.Equal(dec("1")) {
		t.Fatalf("updated = %+v", got)
	}

	neg := -1
	if _, err := f.catalog.Update(ctx, p.ID, orders.ProductPatch{Stock: &neg}); !errors.Is(err, orders.ErrInvalid) {
		t.Fatalf("negative stock: %v", err)
	}
	if _, err := f.catalog.Update(ctx, 999, orders.ProductPatch{Stock: &stock}); !errors.Is(err, orders.ErrNotFound) {
		t.Fatalf("missing product: %v", err)
	}
}

func TestCatalogExport(t *testing.T) {
	f := newFixture()
	f.product(t, "kibble", "12.50", 3)
	f.product(t, "treats", "2.00", 9)

	var buf bytes.Buffer
	if err := f.catalog.Export(context.Background(), &buf); err != nil {
		t.Fatal(err)
	}
	wb, err := xlsx.OpenBinary(buf.Bytes())
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	sheet, ok := wb.Sheet["Products"]
	if !ok {
		t.Fatal("Products sheet missing")
	}
	if len(sheet.Rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(sheet.Rows))
	}
	if name := sheet.Rows[1].Cells[1].String(); name != "kibble" {
		t.Fatalf("first product = %q", name)
	}
	if price := sheet.Rows[1].Cells[3].String(); price != "12.50" {
		t.Fatalf("price cell = %q", price)
	}
}
