// Package checkout implements the cart-to-order commit: the atomic
// transition that drains a user's cart into an immutable order with
// prices frozen at purchase time.
package checkout

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/lapkinv/gamesshop/internal/domain/cart"
	"github.com/lapkinv/gamesshop/internal/domain/order"
	"github.com/lapkinv/gamesshop/internal/domain/product"
)

// ErrEmptyCart is returned when checkout is attempted with no cart entries.
// No order is created in that case.
var ErrEmptyCart = errors.New("cart is empty")

// ErrConflict is returned after the bounded internal retries when the
// checkout transaction keeps losing to concurrent activity. The cart is
// left exactly as it was; the caller may retry the whole call.
var ErrConflict = errors.New("checkout conflict")

// Tx is the set of storage operations available inside one checkout
// transaction. Every method sees and produces state of that single
// transaction; nothing is visible outside it until the enclosing InTx
// call returns nil.
type Tx interface {
	// CartEntriesForUpdate reads and locks the owner's cart rows,
	// serializing concurrent checkouts for the same owner.
	CartEntriesForUpdate(ctx context.Context, ownerID int64) ([]cart.Entry, error)
	// ActiveProducts resolves the given product IDs to active catalog
	// rows. Missing or deactivated products are absent from the result.
	ActiveProducts(ctx context.Context, ids []int64) ([]product.Product, error)
	// InsertOrder persists the order header.
	InsertOrder(ctx context.Context, o *order.Order) error
	// InsertLineItems persists the order's line items.
	InsertLineItems(ctx context.Context, items []order.LineItem) error
	// DrainEntries deletes exactly the given cart entries. Draining by
	// entry ID keeps the delete scoped to the rows locked by
	// CartEntriesForUpdate; an entry a concurrent add commits in between
	// stays in the cart.
	DrainEntries(ctx context.Context, entryIDs []int64) error
}

// Store runs a function inside a single storage transaction. When fn
// returns an error the transaction is rolled back and no effects persist.
// Transient serialization failures surface as (wrapped) ErrConflict.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
