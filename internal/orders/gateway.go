package orders

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	DefaultProvider = "razorpay"
	DefaultCurrency = "INR"
)

// PaymentIntent is what a client needs to start paying for an order with a
// provider. No provider is contacted to build it.
type PaymentIntent struct {
	Provider         string          `json:"provider"`
	OrderID          int64           `json:"order_id"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	PaymentReference string          `json:"payment_reference"`
}

type Gateway struct {
	currency        string
	defaultProvider string
}

func NewGateway(currency, defaultProvider string) *Gateway {
	if currency == "" {
		currency = DefaultCurrency
	}
	if defaultProvider == "" {
		defaultProvider = DefaultProvider
	}
	return &Gateway{currency: currency, defaultProvider: defaultProvider}
}

// Prepare is deterministic: the same order and provider always give the same intent.
func (g *Gateway) Prepare(o Order, provider string) PaymentIntent {
	provider = strings.TrimSpace(provider)
	if provider == "" {
		provider = g.defaultProvider
	}
	return PaymentIntent{
		Provider:         provider,
		OrderID:          o.ID,
		Amount:           o.TotalAmount,
		Currency:         g.currency,
		PaymentReference: fmt.Sprintf("%s_order_%d", provider, o.ID),
	}
}
