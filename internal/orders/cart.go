package orders

import (
	"context"
	"fmt"
)

// Cart manages per-user cart lines. One line per (user, product) pair.
type Cart struct {
	store Store
}

func NewCart(store Store) *Cart { return &Cart{store: store} }

// Lines returns the user's lines in insertion order with current product name
// and price.
func (c *Cart) Lines(ctx context.Context, userID int64) ([]CartLineView, error) {
	var out []CartLineView
	err := c.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		lines, err := tx.CartLines(ctx, userID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return &NotFoundError{Entity: "cart", ID: userID}
		}
		out = make([]CartLineView, 0, len(lines))
		for _, l := range lines {
			p, err := tx.GetProduct(ctx, l.ProductID)
			if err != nil {
				return notFound("product", l.ProductID, err)
			}
			out = append(out, CartLineView{CartLine: l, ProductName: p.Name, Price: p.Price})
		}
		return nil
	})
	return out, err
}

// Add creates a line. An existing line for the same product is a conflict; the
// caller updates its quantity instead.
func (c *Cart) Add(ctx context.Context, userID, productID int64, quantity int) (CartLine, error) {
	if err := checkQuantity(quantity); err != nil {
		return CartLine{}, err
	}
	var line CartLine
	err := c.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.GetProduct(ctx, productID); err != nil {
			return notFound("product", productID, err)
		}
		existing, err := tx.FindCartLine(ctx, userID, productID)
		switch {
		case err == nil:
			return fmt.Errorf("%w: product %d already in cart as line %d", ErrConflict, productID, existing.ID)
		case !isNotFound(err):
			return err
		}
		line, err = tx.InsertCartLine(ctx, CartLine{UserID: userID, ProductID: productID, Quantity: quantity})
		return err
	})
	return line, err
}

func (c *Cart) UpdateQuantity(ctx context.Context, lineID int64, quantity int) (CartLine, error) {
	if err := checkQuantity(quantity); err != nil {
		return CartLine{}, err
	}
	var line CartLine
	err := c.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		line, err = tx.UpdateCartLine(ctx, lineID, quantity)
		return notFound("cart line", lineID, err)
	})
	return line, err
}

func (c *Cart) Remove(ctx context.Context, lineID int64) error {
	return c.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		return notFound("cart line", lineID, tx.DeleteCartLine(ctx, lineID))
	})
}

func checkQuantity(q int) error {
	if q < 1 {
		return fmt.Errorf("%w: quantity must be at least 1, got %d", ErrInvalid, q)
	}
	return nil
}
