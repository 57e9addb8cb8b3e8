package orders

import (
	"context"
	"fmt"
)

// Reserve takes quantity units of a product out of stock inside tx. The product
// row stays locked until tx ends, so a concurrent reservation of the same product
// waits and then sees the decremented count. Nothing is undone here on failure;
// the caller's rollback restores stock.
func Reserve(ctx context.Context, tx Tx, productID int64, quantity int) (Product, error) {
	if quantity < 1 {
		return Product{}, fmt.Errorf("%w: quantity must be at least 1, got %d", ErrInvalid, quantity)
	}
	p, err := tx.LockProduct(ctx, productID)
	if err != nil {
		return Product{}, notFound("product", productID, err)
	}
	if p.Stock < quantity {
		return Product{}, &InsufficientStockError{
			ProductID: p.ID, Name: p.Name, Available: p.Stock, Requested: quantity,
		}
	}
	if err := tx.SetStock(ctx, p.ID, p.Stock-quantity); err != nil {
		return Product{}, fmt.Errorf("decrement stock of product %d: %w", p.ID, err)
	}
	p.Stock -= quantity
	return p, nil
}
