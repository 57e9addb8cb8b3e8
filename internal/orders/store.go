package orders

import "context"

// Store runs fn inside one database transaction. The transaction commits only
// when fn returns nil; any error rolls back every write fn made.
//
// Implementations must give Lock* methods exclusive row-lock semantics that hold
// until the transaction ends.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the set of queries the services issue inside a transaction. Lookups that
// find nothing return an error matching ErrNotFound; unique or foreign key
// violations return an error matching ErrConflict.
type Tx interface {
	InsertProduct(ctx context.Context, p Product) (Product, error)
	GetProduct(ctx context.Context, id int64) (Product, error)
	LockProduct(ctx context.Context, id int64) (Product, error)
	ListProducts(ctx context.Context, offset, limit int) ([]Product, error)
	ListProductsByCategory(ctx context.Context, category string) ([]Product, error)
	UpdateProduct(ctx context.Context, p Product) (Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	SetStock(ctx context.Context, id int64, stock int) error

	InsertCartLine(ctx context.Context, l CartLine) (CartLine, error)
	GetCartLine(ctx context.Context, id int64) (CartLine, error)
	FindCartLine(ctx context.Context, userID, productID int64) (CartLine, error)
	CartLines(ctx context.Context, userID int64) ([]CartLine, error)
	UpdateCartLine(ctx context.Context, id int64, quantity int) (CartLine, error)
	DeleteCartLine(ctx context.Context, id int64) error
	ClearCart(ctx context.Context, userID int64) error

	InsertOrder(ctx context.Context, o Order) (Order, error)
	GetOrder(ctx context.Context, id int64) (Order, error)
	LockOrder(ctx context.Context, id int64) (Order, error)
	OrdersByUser(ctx context.Context, userID int64) ([]Order, error)
	SetOrderStatus(ctx context.Context, id int64, s Status) error

	InsertPayment(ctx context.Context, p Payment) (Payment, error)
	PaymentByTransaction(ctx context.Context, transactionID string) (Payment, error)
	PaymentsByOrder(ctx context.Context, orderID int64) ([]Payment, error)
}
