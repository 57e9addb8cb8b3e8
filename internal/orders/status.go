package orders

import (
	"fmt"
	"strings"
)

type Status string

const (
	StatusPendingPayment Status = "PENDING_PAYMENT"
	StatusCompleted      Status = "COMPLETED"
	StatusFailed         Status = "FAILED"
)

// COMPLETED and FAILED are terminal.
var validNext = map[Status]map[Status]bool{
	StatusPendingPayment: {StatusCompleted: true, StatusFailed: true},
	StatusCompleted:      {},
	StatusFailed:         {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// Terminal reports whether no further status change is possible.
func (s Status) Terminal() bool {
	next, known := validNext[s]
	return known && len(next) == 0
}

type PaymentStatus string

const (
	PaymentSuccess PaymentStatus = "SUCCESS"
	PaymentFailed  PaymentStatus = "FAILED"
)

// ParsePaymentStatus accepts provider spellings in any case.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch PaymentStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case PaymentSuccess:
		return PaymentSuccess, nil
	case PaymentFailed:
		return PaymentFailed, nil
	}
	return "", fmt.Errorf("%w: payment status %q", ErrInvalid, s)
}

// OrderStatusFor is the order status a payment outcome moves a pending order to.
func OrderStatusFor(p PaymentStatus) Status {
	if p == PaymentSuccess {
		return StatusCompleted
	}
	return StatusFailed
}
