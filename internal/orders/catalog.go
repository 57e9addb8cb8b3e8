package orders

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/tealeg/xlsx"
)

const (
	DefaultPageSize = 100
	MaxPageSize     = 100
)

// Categories accepted by the by-category listing.
var Categories = map[string]bool{"food": true, "toys": true, "grooming": true}

type Catalog struct {
	store Store
}

func NewCatalog(store Store) *Catalog { return &Catalog{store: store} }

func (c *Catalog) Create(ctx context.Context, p Product) (Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Category = strings.TrimSpace(p.Category)
	p.Price = p.Price.Round(2)
	if err := validateProduct(p); err != nil {
		return Product{}, err
	}
	var out Product
	err := c.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		out, err = tx.InsertProduct(ctx, p)
		if err != nil {
			return fmt.Errorf("insert product %q: %w", p.Name, err)
		}
		return nil
	})
	return out, err
}

// List pages through the catalog by id. limit <= 0 means the default page size.
func (c *Catalog) List(ctx context.Context, offset, limit int) ([]Product, error) {
	if offset < 0 {
		return nil, fmt.Errorf("%w: skip must not be negative", ErrInvalid)
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	var out []Product
	err := c.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		out, err = tx.ListProducts(ctx, offset, limit)
		return err
	})
	return out, err
}

func (c *Catalog) Get(ctx context.Context, id int64) (Product, error) {
	var p Product
	err := c.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		p, err = tx.GetProduct(ctx, id)
		return notFound("product", id, err)
	})
	return p, err
}

func (c *Catalog) ByCategory(ctx context.Context, category string) ([]Product, error) {
	category = strings.ToLower(strings.TrimSpace(category))
	if !Categories[category] {
		return nil, fmt.Errorf("%w: %q (allowed: food, toys, grooming)", ErrInvalidCategory, category)
	}
	var out []Product
	err := c.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		out, err = tx.ListProductsByCategory(ctx, category)
		return err
	})
	return out, err
}

// Update applies the non-nil fields of patch while holding the product row lock,
// so it cannot interleave with a stock reservation.
func (c *Catalog) Update(ctx context.Context, id int64, patch ProductPatch) (Product, error) {
	var out Product
	err := c.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		p, err := tx.LockProduct(ctx, id)
		if err != nil {
			return notFound("product", id, err)
		}
		if patch.Name != nil {
			p.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Price != nil {
			p.Price = patch.Price.Round(2)
		}
		if patch.Stock != nil {
			p.Stock = *patch.Stock
		}
		if patch.Category != nil {
			p.Category = strings.TrimSpace(*patch.Category)
		}
		if err := validateProduct(p); err != nil {
			return err
		}
		out, err = tx.UpdateProduct(ctx, p)
		if err != nil {
			return fmt.Errorf("update product %d: %w", id, err)
		}
		return nil
	})
	return out, err
}

func (c *Catalog) Delete(ctx context.Context, id int64) error {
	return c.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		return notFound("product", id, tx.DeleteProduct(ctx, id))
	})
}

// Export writes the whole catalog as an xlsx workbook with one "Products" sheet.
func (c *Catalog) Export(ctx context.Context, w io.Writer) error {
	var all []Product
	err := c.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		for offset := 0; ; offset += MaxPageSize {
			page, err := tx.ListProducts(ctx, offset, MaxPageSize)
			if err != nil {
				return err
			}
			all = append(all, page...)
			if len(page) < MaxPageSize {
				return nil
			}
		}
	})
	if err != nil {
		return err
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Products")
	if err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}
	header := sheet.AddRow()
	for _, h := range []string{"ID", "Name", "Category", "Price", "Stock", "CreatedAt", "UpdatedAt"} {
		header.AddCell().SetValue(h)
	}
	for _, p := range all {
		row := sheet.AddRow()
		row.AddCell().SetInt64(p.ID)
		row.AddCell().SetString(p.Name)
		row.AddCell().SetString(p.Category)
		row.AddCell().SetString(p.Price.StringFixed(2))
		row.AddCell().SetInt(p.Stock)
		row.AddCell().SetString(p.CreatedAt.Format("2006-01-02 15:04:05"))
		row.AddCell().SetString(p.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	if err := file.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func validateProduct(p Product) error {
	if n := utf8.RuneCountInString(p.Name); n == 0 || n > 100 {
		return fmt.Errorf("%w: name must be 1-100 characters", ErrInvalid)
	}
	if c := utf8.RuneCountInString(p.Category); c == 0 || c > 50 {
		return fmt.Errorf("%w: category must be 1-50 characters", ErrInvalid)
	}
	if err := checkAmount("price", p.Price); err != nil {
		return err
	}
	if p.Stock < 0 {
		return fmt.Errorf("%w: stock must not be negative", ErrInvalid)
	}
	return nil
}
