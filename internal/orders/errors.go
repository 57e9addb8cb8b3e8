package orders

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrConflict          = errors.New("conflict")
	ErrInvalid           = errors.New("invalid input")
	ErrInvalidCategory   = errors.New("invalid category")
	// ErrContention means the store aborted the transaction to break a lock
	// cycle or a serialization conflict; the same request may succeed again.
	ErrContention = errors.New("concurrent update")
)

// NotFoundError names the entity that a lookup could not find.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	if e.Entity == "cart" {
		return fmt.Sprintf("cart for user %d is empty", e.ID)
	}
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

type InsufficientStockError struct {
	ProductID int64
	Name      string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s (product %d): requested %d, available %d",
		e.Name, e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// isDomainError reports whether err is an expected business outcome rather than
// an infrastructure failure.
func isDomainError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrConflict) || errors.Is(err, ErrInvalid) || errors.Is(err, ErrInvalidCategory) ||
		errors.Is(err, ErrContention)
}

func notFound(entity string, id int64, err error) error {
	if errors.Is(err, ErrNotFound) {
		return &NotFoundError{Entity: entity, ID: id}
	}
	return err
}

func isNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
