package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when an order does not exist or does not belong
// to the calling owner. Both cases report the same error so the order
// history of other users is not observable.
var ErrNotFound = errors.New("order not found")

// Status is the payment state of an order. It starts at StatusPending and
// is moved by external payment confirmation, which this core stores but
// never initiates.
type Status string

const (
	StatusPending  Status = "pending"
	StatusPaid     Status = "paid"
	StatusCanceled Status = "canceled"
)

// Order is an immutable record of a completed checkout. Only Status may
// change after creation; TotalAmount always equals the sum of its line
// items' subtotals.
type Order struct {
	ID          string
	OwnerID     int64
	Status      Status
	TotalAmount decimal.Decimal
	CreatedAt   time.Time
	Items       []LineItem
}

// LineItem is one drained cart entry frozen at purchase time.
// PriceAtPurchase is copied from the catalog during checkout and never
// re-read, which is what isolates historical orders from later price
// changes.
type LineItem struct {
	ID              int64
	OrderID         string
	ProductID       int64
	ProductTitle    string
	PriceAtPurchase decimal.Decimal
	Quantity        int
}

// Subtotal returns price at purchase times quantity.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.PriceAtPurchase.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// SumItems computes the order total the single sanctioned way: the sum of
// every line item's subtotal. Both the checkout engine and total repair go
// through this.
func SumItems(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// Repository defines persistence operations for placed orders.
type Repository interface {
	// HistoryByOwner returns the owner's orders newest first, with line
	// items eagerly loaded.
	HistoryByOwner(ctx context.Context, ownerID int64) ([]Order, error)
	// Delete removes an order and, transactionally with it, all of its
	// line items. Returns ErrNotFound when the order does not exist or
	// belongs to someone else.
	Delete(ctx context.Context, ownerID int64, orderID string) error
	// RecomputeTotal re-derives total_amount from the order's persisted
	// line items and stores it, returning the new total.
	RecomputeTotal(ctx context.Context, orderID string) (decimal.Decimal, error)
}
