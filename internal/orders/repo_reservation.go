package orders

import "context"

// Row-locking queries. FOR UPDATE holds the lock until the transaction ends, so
// a concurrent reservation of the same product waits and then sees the new stock.

func (t *pgTx) LockProduct(ctx context.Context, id int64) (Product, error) {
	return scanProduct(t.tx.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id=$1 FOR UPDATE`, id))
}

// SetStock relies on CHECK (stock >= 0) as the last line; callers compare first.
func (t *pgTx) SetStock(ctx context.Context, id int64, stock int) error {
	ct, err := t.tx.Exec(ctx, `UPDATE products SET stock=$2, updated_at=now() WHERE id=$1`, id, stock)
	if err != nil {
		return mapErr(err)
	}
	if ct.RowsAffected() != 1 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) LockOrder(ctx context.Context, id int64) (Order, error) {
	return scanOrder(t.tx.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1 FOR UPDATE`, id))
}

func (t *pgTx) SetOrderStatus(ctx context.Context, id int64, s Status) error {
	ct, err := t.tx.Exec(ctx, `UPDATE orders SET status=$2 WHERE id=$1`, id, string(s))
	if err != nil {
		return mapErr(err)
	}
	if ct.RowsAffected() != 1 {
		return ErrNotFound
	}
	return nil
}
