package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a cart entry does not exist or does not
// belong to the calling owner. The two cases are deliberately
// indistinguishable so that one user cannot probe another user's cart.
var ErrNotFound = errors.New("cart entry not found")

// InvalidQuantityError indicates an add request with a non-positive quantity.
type InvalidQuantityError struct {
	ProductID int64
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %d", e.ProductID)
}

// Entry is a single per-owner, per-product cart row. At most one Entry
// exists per (OwnerID, ProductID) pair; repeat adds merge into it.
type Entry struct {
	ID        int64
	OwnerID   int64
	ProductID int64
	Quantity  int
	AddedAt   time.Time
}

// Line is a cart entry joined with the live product it references. LineTotal
// is quantity times the current catalog price: cart contents are not yet
// purchased, so they track price changes until checkout snapshots them.
type Line struct {
	Entry
	ProductTitle string
	UnitPrice    decimal.Decimal
	LineTotal    decimal.Decimal
}

// Repository defines persistence operations for cart entries.
type Repository interface {
	// Upsert merges quantity into the (ownerID, productID) entry, creating
	// it when absent. The merge must be atomic under concurrent adds:
	// two concurrent calls yield a single row with the summed quantity.
	Upsert(ctx context.Context, ownerID, productID int64, quantity int) (*Entry, error)
	// Delete removes the entry when it belongs to ownerID, returning
	// ErrNotFound otherwise.
	Delete(ctx context.Context, ownerID, entryID int64) error
	// ListByOwner returns the owner's cart joined with product data,
	// oldest added first.
	ListByOwner(ctx context.Context, ownerID int64) ([]Line, error)
}
