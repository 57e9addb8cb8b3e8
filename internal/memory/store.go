// Package memory is an in-process orders.Store for tests and local runs without
// Postgres. Transactions are serialized under one mutex and work on a copy of
// the data that replaces the committed state only when fn succeeds.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ariefcatur/go-shop-core/internal/orders"
)

type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		st: &state{
			products: make(map[int64]orders.Product),
			cart:     make(map[int64]orders.CartLine),
			orders:   make(map[int64]orders.Order),
			payments: make(map[int64]orders.Payment),
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

var (
	_ orders.Store = (*Store)(nil)
	_ orders.Tx    = (*tx)(nil)
)

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx orders.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.st.clone()
	if err := fn(ctx, &tx{st: work, now: s.now}); err != nil {
		return err
	}
	s.st = work
	return nil
}

type state struct {
	products map[int64]orders.Product
	cart     map[int64]orders.CartLine
	orders   map[int64]orders.Order
	payments map[int64]orders.Payment

	productSeq, cartSeq, orderSeq, paymentSeq int64
}

func (s *state) clone() *state {
	c := *s
	c.products = make(map[int64]orders.Product, len(s.products))
	for k, v := range s.products {
		c.products[k] = v
	}
	c.cart = make(map[int64]orders.CartLine, len(s.cart))
	for k, v := range s.cart {
		c.cart[k] = v
	}
	c.orders = make(map[int64]orders.Order, len(s.orders))
	for k, v := range s.orders {
		v.Items = append([]orders.OrderItem(nil), v.Items...)
		c.orders[k] = v
	}
	c.payments = make(map[int64]orders.Payment, len(s.payments))
	for k, v := range s.payments {
		c.payments[k] = v
	}
	return &c
}

type tx struct {
	st  *state
	now func() time.Time
}

func conflict(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{orders.ErrConflict}, args...)...)
}

func (t *tx) InsertProduct(_ context.Context, p orders.Product) (orders.Product, error) {
	if err := t.checkProduct(p, 0); err != nil {
		return orders.Product{}, err
	}
	t.st.productSeq++
	p.ID = t.st.productSeq
	p.CreatedAt = t.now()
	p.UpdatedAt = p.CreatedAt
	t.st.products[p.ID] = p
	return p, nil
}

func (t *tx) checkProduct(p orders.Product, self int64) error {
	if p.Stock < 0 || p.Price.IsNegative() {
		return fmt.Errorf("%w: products check", orders.ErrInvalid)
	}
	for id, other := range t.st.products {
		if id != self && other.Name == p.Name {
			return conflict("products_name_key")
		}
	}
	return nil
}

func (t *tx) GetProduct(_ context.Context, id int64) (orders.Product, error) {
	p, ok := t.st.products[id]
	if !ok {
		return orders.Product{}, orders.ErrNotFound
	}
	return p, nil
}

// LockProduct is GetProduct: the whole transaction already holds the store lock.
func (t *tx) LockProduct(ctx context.Context, id int64) (orders.Product, error) {
	return t.GetProduct(ctx, id)
}

func (t *tx) sortedProducts(keep func(orders.Product) bool) []orders.Product {
	out := []orders.Product{}
	for _, p := range t.st.products {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (t *tx) ListProducts(_ context.Context, offset, limit int) ([]orders.Product, error) {
	all := t.sortedProducts(func(orders.Product) bool { return true })
	if offset >= len(all) {
		return []orders.Product{}, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (t *tx) ListProductsByCategory(_ context.Context, category string) ([]orders.Product, error) {
	return t.sortedProducts(func(p orders.Product) bool { return p.Category == category }), nil
}

func (t *tx) UpdateProduct(_ context.Context, p orders.Product) (orders.Product, error) {
	cur, ok := t.st.products[p.ID]
	if !ok {
		return orders.Product{}, orders.ErrNotFound
	}
	if err := t.checkProduct(p, p.ID); err != nil {
		return orders.Product{}, err
	}
	p.CreatedAt = cur.CreatedAt
	p.UpdatedAt = t.now()
	t.st.products[p.ID] = p
	return p, nil
}

func (t *tx) DeleteProduct(_ context.Context, id int64) error {
	if _, ok := t.st.products[id]; !ok {
		return orders.ErrNotFound
	}
	delete(t.st.products, id)
	for lid, l := range t.st.cart {
		if l.ProductID == id {
			delete(t.st.cart, lid)
		}
	}
	return nil
}

func (t *tx) SetStock(_ context.Context, id int64, stock int) error {
	p, ok := t.st.products[id]
	if !ok {
		return orders.ErrNotFound
	}
	if stock < 0 {
		return fmt.Errorf("%w: products_stock_check", orders.ErrInvalid)
	}
	p.Stock = stock
	p.UpdatedAt = t.now()
	t.st.products[id] = p
	return nil
}

// InsertCartLine does not check that the product exists; callers do.
func (t *tx) InsertCartLine(_ context.Context, l orders.CartLine) (orders.CartLine, error) {
	if l.Quantity < 1 {
		return orders.CartLine{}, fmt.Errorf("%w: cart_lines_quantity_check", orders.ErrInvalid)
	}
	for _, other := range t.st.cart {
		if other.UserID == l.UserID && other.ProductID == l.ProductID {
			return orders.CartLine{}, conflict("cart_lines_user_product_key")
		}
	}
	t.st.cartSeq++
	l.ID = t.st.cartSeq
	l.CreatedAt = t.now()
	t.st.cart[l.ID] = l
	return l, nil
}

func (t *tx) GetCartLine(_ context.Context, id int64) (orders.CartLine, error) {
	l, ok := t.st.cart[id]
	if !ok {
		return orders.CartLine{}, orders.ErrNotFound
	}
	return l, nil
}

func (t *tx) FindCartLine(_ context.Context, userID, productID int64) (orders.CartLine, error) {
	for _, l := range t.st.cart {
		if l.UserID == userID && l.ProductID == productID {
			return l, nil
		}
	}
	return orders.CartLine{}, orders.ErrNotFound
}

func (t *tx) CartLines(_ context.Context, userID int64) ([]orders.CartLine, error) {
	var out []orders.CartLine
	for _, l := range t.st.cart {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tx) UpdateCartLine(_ context.Context, id int64, quantity int) (orders.CartLine, error) {
	l, ok := t.st.cart[id]
	if !ok {
		return orders.CartLine{}, orders.ErrNotFound
	}
	if quantity < 1 {
		return orders.CartLine{}, fmt.Errorf("%w: cart_lines_quantity_check", orders.ErrInvalid)
	}
	l.Quantity = quantity
	t.st.cart[id] = l
	return l, nil
}

func (t *tx) DeleteCartLine(_ context.Context, id int64) error {
	if _, ok := t.st.cart[id]; !ok {
		return orders.ErrNotFound
	}
	delete(t.st.cart, id)
	return nil
}

func (t *tx) ClearCart(_ context.Context, userID int64) error {
	for id, l := range t.st.cart {
		if l.UserID == userID {
			delete(t.st.cart, id)
		}
	}
	return nil
}

func (t *tx) InsertOrder(_ context.Context, o orders.Order) (orders.Order, error) {
	if o.TotalAmount.IsNegative() {
		return orders.Order{}, fmt.Errorf("%w: orders_total_check", orders.ErrInvalid)
	}
	t.st.orderSeq++
	o.ID = t.st.orderSeq
	o.CreatedAt = t.now()
	o.Items = append([]orders.OrderItem(nil), o.Items...)
	t.st.orders[o.ID] = o
	return o, nil
}

func (t *tx) GetOrder(_ context.Context, id int64) (orders.Order, error) {
	o, ok := t.st.orders[id]
	if !ok {
		return orders.Order{}, orders.ErrNotFound
	}
	o.Items = append([]orders.OrderItem(nil), o.Items...)
	return o, nil
}

func (t *tx) LockOrder(ctx context.Context, id int64) (orders.Order, error) {
	return t.GetOrder(ctx, id)
}

func (t *tx) OrdersByUser(_ context.Context, userID int64) ([]orders.Order, error) {
	var out []orders.Order
	for _, o := range t.st.orders {
		if o.UserID == userID {
			o.Items = append([]orders.OrderItem(nil), o.Items...)
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (t *tx) SetOrderStatus(_ context.Context, id int64, s orders.Status) error {
	o, ok := t.st.orders[id]
	if !ok {
		return orders.ErrNotFound
	}
	o.Status = s
	t.st.orders[id] = o
	return nil
}

func (t *tx) InsertPayment(_ context.Context, p orders.Payment) (orders.Payment, error) {
	if _, ok := t.st.orders[p.OrderID]; !ok {
		return orders.Payment{}, conflict("payments_order_id_fkey")
	}
	if p.TransactionID != nil {
		for _, other := range t.st.payments {
			if other.TransactionID != nil && *other.TransactionID == *p.TransactionID {
				return orders.Payment{}, conflict("payments_transaction_id_key")
			}
		}
		id := *p.TransactionID
		p.TransactionID = &id
	}
	t.st.paymentSeq++
	p.ID = t.st.paymentSeq
	p.CreatedAt = t.now()
	t.st.payments[p.ID] = p
	return p, nil
}

func (t *tx) PaymentByTransaction(_ context.Context, transactionID string) (orders.Payment, error) {
	for _, p := range t.st.payments {
		if p.TransactionID != nil && *p.TransactionID == transactionID {
			return p, nil
		}
	}
	return orders.Payment{}, orders.ErrNotFound
}

func (t *tx) PaymentsByOrder(_ context.Context, orderID int64) ([]orders.Payment, error) {
	var out []orders.Payment
	for _, p := range t.st.payments {
		if p.OrderID == orderID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
