package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lapkinv/gamesshop/internal/domain/cart"
)

const (
	// The ON CONFLICT arm rides on the (owner_id, product_id) unique
	// constraint: concurrent adds for the same pair serialize on the row
	// and sum their quantities instead of losing an update or creating a
	// duplicate.
	upsertCartEntrySQL = `INSERT INTO cart_entries (owner_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (owner_id, product_id)
		DO UPDATE SET quantity = cart_entries.quantity + EXCLUDED.quantity
		RETURNING id, owner_id, product_id, quantity, added_at`

	deleteCartEntrySQL = `DELETE FROM cart_entries WHERE id = $1 AND owner_id = $2`

	listCartSQL = `SELECT c.id, c.owner_id, c.product_id, c.quantity, c.added_at, p.title, p.price
		FROM cart_entries c
		JOIN products p ON p.id = c.product_id
		WHERE c.owner_id = $1
		ORDER BY c.added_at, c.id`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// Upsert merges quantity into the owner's entry for the product, creating
// the row when absent. A lost race inside the upsert's conflict window is
// retried a bounded number of times.
func (r *CartRepository) Upsert(ctx context.Context, ownerID, productID int64, quantity int) (*cart.Entry, error) {
	var e cart.Entry
	err := withRetry(ctx, 3, func(ctx context.Context) error {
		return r.pool.QueryRow(ctx, upsertCartEntrySQL, ownerID, productID, quantity).Scan(
			&e.ID, &e.OwnerID, &e.ProductID, &e.Quantity, &e.AddedAt,
		)
	})
	if err != nil {
		return nil, fmt.Errorf("upserting cart entry for product %d: %w", productID, err)
	}
	return &e, nil
}

// Delete removes the entry when it belongs to ownerID. The owner predicate
// is part of the statement, so a foreign entry id reports cart.ErrNotFound
// exactly like a nonexistent one.
func (r *CartRepository) Delete(ctx context.Context, ownerID, entryID int64) error {
	tag, err := r.pool.Exec(ctx, deleteCartEntrySQL, entryID, ownerID)
	if err != nil {
		return fmt.Errorf("deleting cart entry %d: %w", entryID, err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrNotFound
	}
	return nil
}

// ListByOwner returns the owner's cart joined with live product data,
// oldest added first.
func (r *CartRepository) ListByOwner(ctx context.Context, ownerID int64) ([]cart.Line, error) {
	rows, err := r.pool.Query(ctx, listCartSQL, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing cart: %w", err)
	}
	return pgx.CollectRows(rows, scanCartLine)
}

func scanCartLine(row pgx.CollectableRow) (cart.Line, error) {
	var l cart.Line
	err := row.Scan(
		&l.ID, &l.OwnerID, &l.ProductID, &l.Quantity, &l.AddedAt,
		&l.ProductTitle, &l.UnitPrice,
	)
	return l, err
}
