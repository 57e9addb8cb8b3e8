package orders

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MaxAmount is the largest money value the store columns hold (NUMERIC(10,2)).
var MaxAmount = decimal.RequireFromString("99999999.99")

func checkAmount(field string, d decimal.Decimal) error {
	if d.IsNegative() {
		return fmt.Errorf("%w: %s must not be negative", ErrInvalid, field)
	}
	if d.GreaterThan(MaxAmount) {
		return fmt.Errorf("%w: %s must not exceed %s", ErrInvalid, field, MaxAmount.StringFixed(2))
	}
	return nil
}

type Product struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	Category  string          `json:"category"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ProductPatch carries the fields of a partial catalog update; nil means unchanged.
type ProductPatch struct {
	Name     *string
	Price    *decimal.Decimal
	Stock    *int
	Category *string
}

type CartLine struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	ProductID int64     `json:"product_id"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
}

// CartLineView is a cart line joined with the product's current name and price.
type CartLineView struct {
	CartLine
	ProductName string          `json:"product_name"`
	Price       decimal.Decimal `json:"price"`
}

type Order struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      Status          `json:"status"` // lihat status.go
	Items       []OrderItem     `json:"items,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// OrderItem freezes the unit price a product had when the order was assembled.
type OrderItem struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type Payment struct {
	ID            int64           `json:"id"`
	OrderID       int64           `json:"order_id"`
	Amount        decimal.Decimal `json:"amount"`
	Provider      string          `json:"provider"`
	Status        PaymentStatus   `json:"status"`
	TransactionID *string         `json:"transaction_id"`
	CreatedAt     time.Time       `json:"created_at"`
}
