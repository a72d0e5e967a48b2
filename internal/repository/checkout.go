package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lapkinv/gamesshop/internal/domain/cart"
	"github.com/lapkinv/gamesshop/internal/domain/checkout"
	"github.com/lapkinv/gamesshop/internal/domain/order"
	"github.com/lapkinv/gamesshop/internal/domain/product"
)

const (
	// FOR UPDATE is the per-owner serialization point: a concurrent
	// checkout for the same owner blocks here until the first transaction
	// commits its drain, then re-evaluates and finds the rows gone.
	cartForUpdateSQL = `SELECT id, owner_id, product_id, quantity, added_at
		FROM cart_entries WHERE owner_id = $1 FOR UPDATE`

	insertOrderSQL = `INSERT INTO orders (id, owner_id, status, total_amount)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	insertLineItemSQL = `INSERT INTO order_items (order_id, product_id, price_at_purchase, quantity)
		VALUES ($1, $2, $3, $4)`

	// The drain targets the locked rows by ID rather than the owner: a
	// row inserted by a concurrent add after the FOR UPDATE read is
	// visible to an owner-scoped DELETE under READ COMMITTED and would
	// be silently lost.
	drainEntriesSQL = `DELETE FROM cart_entries WHERE id = ANY($1)`
)

var _ checkout.Store = (*CheckoutStore)(nil)

// CheckoutStore implements checkout.Store on a pgx transaction.
type CheckoutStore struct {
	pool *pgxpool.Pool
}

// NewCheckoutStore returns a CheckoutStore that uses the given pool.
func NewCheckoutStore(pool *pgxpool.Pool) *CheckoutStore {
	return &CheckoutStore{pool: pool}
}

// InTx runs fn inside a single read-committed transaction, committing when
// fn returns nil and rolling back otherwise. Transient serialization
// failures are reported as checkout.ErrConflict so the engine can retry.
func (s *CheckoutStore) InTx(ctx context.Context, fn func(ctx context.Context, tx checkout.Tx) error) error {
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(ctx, &checkoutTx{tx: tx})
	})
	if err != nil && isRetryable(err) {
		return errors.Wrapf(checkout.ErrConflict, "checkout transaction: %v", err)
	}
	return err
}

// checkoutTx adapts one pgx.Tx to the checkout.Tx port.
type checkoutTx struct {
	tx pgx.Tx
}

func (t *checkoutTx) CartEntriesForUpdate(ctx context.Context, ownerID int64) ([]cart.Entry, error) {
	rows, err := t.tx.Query(ctx, cartForUpdateSQL, ownerID)
	if err != nil {
		return nil, fmt.Errorf("locking cart entries: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (cart.Entry, error) {
		var e cart.Entry
		err := row.Scan(&e.ID, &e.OwnerID, &e.ProductID, &e.Quantity, &e.AddedAt)
		return e, err
	})
}

func (t *checkoutTx) ActiveProducts(ctx context.Context, ids []int64) ([]product.Product, error) {
	rows, err := t.tx.Query(ctx, activeProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

func (t *checkoutTx) InsertOrder(ctx context.Context, o *order.Order) error {
	err := t.tx.QueryRow(ctx, insertOrderSQL, o.ID, o.OwnerID, o.Status, o.TotalAmount).
		Scan(&o.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

func (t *checkoutTx) InsertLineItems(ctx context.Context, items []order.LineItem) error {
	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(insertLineItemSQL, item.OrderID, item.ProductID, item.PriceAtPurchase, item.Quantity)
	}

	results := t.tx.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()

	for range items {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("creating order line item: %w", err)
		}
	}
	return nil
}

func (t *checkoutTx) DrainEntries(ctx context.Context, entryIDs []int64) error {
	tag, err := t.tx.Exec(ctx, drainEntriesSQL, entryIDs)
	if err != nil {
		return fmt.Errorf("draining cart: %w", err)
	}
	if got := tag.RowsAffected(); got != int64(len(entryIDs)) {
		return errors.Wrapf(checkout.ErrConflict, "drained %d of %d cart entries", got, len(entryIDs))
	}
	return nil
}
