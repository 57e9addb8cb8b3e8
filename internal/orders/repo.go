package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo is the Postgres Store.
type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", mapErr(err))
	}
	return nil
}

type pgTx struct{ tx pgx.Tx }

var (
	_ Store = (*Repo)(nil)
	_ Tx    = (*pgTx)(nil)
)

// mapErr turns driver errors into the package sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505", "23503": // unique_violation, foreign_key_violation
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
		case "23514": // check_violation
			return fmt.Errorf("%w: %s", ErrInvalid, pgErr.ConstraintName)
		case "22003": // numeric_value_out_of_range
			return fmt.Errorf("%w: value out of range: %s", ErrInvalid, pgErr.Message)
		case "40P01", "40001": // deadlock_detected, serialization_failure
			return fmt.Errorf("%w: %s", ErrContention, pgErr.Message)
		}
	}
	return err
}

const productCols = `id, name, price, stock, category, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.Category, &p.CreatedAt, &p.UpdatedAt)
	return p, mapErr(err)
}

func collectProducts(rows pgx.Rows, err error) ([]Product, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (t *pgTx) InsertProduct(ctx context.Context, p Product) (Product, error) {
	return scanProduct(t.tx.QueryRow(ctx, `
		INSERT INTO products(name, price, stock, category)
		VALUES ($1, $2, $3, $4)
		RETURNING `+productCols, p.Name, p.Price, p.Stock, p.Category))
}

func (t *pgTx) GetProduct(ctx context.Context, id int64) (Product, error) {
	return scanProduct(t.tx.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id=$1`, id))
}

func (t *pgTx) ListProducts(ctx context.Context, offset, limit int) ([]Product, error) {
	return collectProducts(t.tx.Query(ctx, `SELECT `+productCols+` FROM products ORDER BY id OFFSET $1 LIMIT $2`, offset, limit))
}

func (t *pgTx) ListProductsByCategory(ctx context.Context, category string) ([]Product, error) {
	return collectProducts(t.tx.Query(ctx, `SELECT `+productCols+` FROM products WHERE category=$1 ORDER BY id`, category))
}

func (t *pgTx) UpdateProduct(ctx context.Context, p Product) (Product, error) {
	return scanProduct(t.tx.QueryRow(ctx, `
		UPDATE products SET name=$2, price=$3, stock=$4, category=$5, updated_at=now()
		WHERE id=$1
		RETURNING `+productCols, p.ID, p.Name, p.Price, p.Stock, p.Category))
}

func (t *pgTx) DeleteProduct(ctx context.Context, id int64) error {
	ct, err := t.tx.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return mapErr(err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const cartCols = `id, user_id, product_id, quantity, created_at`

func scanCartLine(row pgx.Row) (CartLine, error) {
	var l CartLine
	err := row.Scan(&l.ID, &l.UserID, &l.ProductID, &l.Quantity, &l.CreatedAt)
	return l, mapErr(err)
}

func (t *pgTx) InsertCartLine(ctx context.Context, l CartLine) (CartLine, error) {
	return scanCartLine(t.tx.QueryRow(ctx, `
		INSERT INTO cart_lines(user_id, product_id, quantity)
		VALUES ($1, $2, $3)
		RETURNING `+cartCols, l.UserID, l.ProductID, l.Quantity))
}

func (t *pgTx) GetCartLine(ctx context.Context, id int64) (CartLine, error) {
	return scanCartLine(t.tx.QueryRow(ctx, `SELECT `+cartCols+` FROM cart_lines WHERE id=$1`, id))
}

func (t *pgTx) FindCartLine(ctx context.Context, userID, productID int64) (CartLine, error) {
	return scanCartLine(t.tx.QueryRow(ctx,
		`SELECT `+cartCols+` FROM cart_lines WHERE user_id=$1 AND product_id=$2`, userID, productID))
}

func (t *pgTx) CartLines(ctx context.Context, userID int64) ([]CartLine, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+cartCols+` FROM cart_lines WHERE user_id=$1 ORDER BY id`, userID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []CartLine
	for rows.Next() {
		l, err := scanCartLine(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (t *pgTx) UpdateCartLine(ctx context.Context, id int64, quantity int) (CartLine, error) {
	return scanCartLine(t.tx.QueryRow(ctx,
		`UPDATE cart_lines SET quantity=$2 WHERE id=$1 RETURNING `+cartCols, id, quantity))
}

func (t *pgTx) DeleteCartLine(ctx context.Context, id int64) error {
	ct, err := t.tx.Exec(ctx, `DELETE FROM cart_lines WHERE id=$1`, id)
	if err != nil {
		return mapErr(err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) ClearCart(ctx context.Context, userID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM cart_lines WHERE user_id=$1`, userID)
	return mapErr(err)
}

const orderCols = `id, user_id, total_amount, status, created_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	var s string
	err := row.Scan(&o.ID, &o.UserID, &o.TotalAmount, &s, &o.CreatedAt)
	o.Status = Status(s)
	return o, mapErr(err)
}

func (t *pgTx) InsertOrder(ctx context.Context, o Order) (Order, error) {
	out, err := scanOrder(t.tx.QueryRow(ctx, `
		INSERT INTO orders(user_id, total_amount, status)
		VALUES ($1, $2, $3)
		RETURNING `+orderCols, o.UserID, o.TotalAmount, string(o.Status)))
	if err != nil {
		return Order{}, err
	}
	for _, it := range o.Items {
		if _, err := t.tx.Exec(ctx, `
			INSERT INTO order_items(order_id, product_id, quantity, unit_price)
			VALUES ($1, $2, $3, $4)`,
			out.ID, it.ProductID, it.Quantity, it.UnitPrice,
		); err != nil {
			return Order{}, fmt.Errorf("insert item for product %d: %w", it.ProductID, mapErr(err))
		}
	}
	out.Items = o.Items
	return out, nil
}

func (t *pgTx) GetOrder(ctx context.Context, id int64) (Order, error) {
	o, err := scanOrder(t.tx.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1`, id))
	if err != nil {
		return Order{}, err
	}
	items, err := t.orderItems(ctx, []int64{o.ID})
	if err != nil {
		return Order{}, err
	}
	o.Items = items[o.ID]
	return o, nil
}

func (t *pgTx) OrdersByUser(ctx context.Context, userID int64) ([]Order, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT `+orderCols+` FROM orders WHERE user_id=$1 ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, mapErr(err)
	}
	var out []Order
	var ids []int64
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, o)
		ids = append(ids, o.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return out, nil
	}

	items, err := t.orderItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Items = items[out[i].ID]
	}
	return out, nil
}

func (t *pgTx) orderItems(ctx context.Context, orderIDs []int64) (map[int64][]OrderItem, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT order_id, product_id, quantity, unit_price
		FROM order_items WHERE order_id = ANY($1)
		ORDER BY order_id, product_id`, orderIDs)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	out := make(map[int64][]OrderItem, len(orderIDs))
	for rows.Next() {
		var orderID int64
		var it OrderItem
		if err := rows.Scan(&orderID, &it.ProductID, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, err
		}
		out[orderID] = append(out[orderID], it)
	}
	return out, rows.Err()
}

const paymentCols = `id, order_id, amount, provider, status, transaction_id, created_at`

func scanPayment(row pgx.Row) (Payment, error) {
	var p Payment
	var s string
	err := row.Scan(&p.ID, &p.OrderID, &p.Amount, &p.Provider, &s, &p.TransactionID, &p.CreatedAt)
	p.Status = PaymentStatus(s)
	return p, mapErr(err)
}

func (t *pgTx) InsertPayment(ctx context.Context, p Payment) (Payment, error) {
	return scanPayment(t.tx.QueryRow(ctx, `
		INSERT INTO payments(order_id, amount, provider, status, transaction_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+paymentCols, p.OrderID, p.Amount, p.Provider, string(p.Status), p.TransactionID))
}

func (t *pgTx) PaymentByTransaction(ctx context.Context, transactionID string) (Payment, error) {
	return scanPayment(t.tx.QueryRow(ctx, `SELECT `+paymentCols+` FROM payments WHERE transaction_id=$1`, transactionID))
}

func (t *pgTx) PaymentsByOrder(ctx context.Context, orderID int64) ([]Payment, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT `+paymentCols+` FROM payments WHERE order_id=$1 ORDER BY created_at, id`, orderID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
