package product

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist or is
// no longer active.
var ErrNotFound = errors.New("product not found")

// NotFoundError indicates a specific product is missing or inactive. It
// unwraps to ErrNotFound so callers can match either form.
type NotFoundError struct {
	ID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("product %d not found", e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// Product represents a catalog item available for purchase. The catalog is
// read-only from the cart and checkout perspective: price changes over time,
// but this core only ever reads it.
type Product struct {
	ID          int64
	Title       string
	Genre       string
	Developer   string
	Description string
	Price       decimal.Decimal
	IsActive    bool
	CreatedAt   time.Time
}

// Repository defines read operations against the product catalog.
type Repository interface {
	// GetActiveByID returns the product when it exists and is active,
	// otherwise ErrNotFound.
	GetActiveByID(ctx context.Context, id int64) (*Product, error)
}
