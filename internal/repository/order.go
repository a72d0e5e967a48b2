package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/lapkinv/gamesshop/internal/domain/order"
)

const (
	historyOrdersSQL = `SELECT id, owner_id, status, total_amount, created_at
		FROM orders WHERE owner_id = $1
		ORDER BY created_at DESC, id`

	historyItemsSQL = `SELECT i.id, i.order_id, i.product_id, p.title, i.price_at_purchase, i.quantity
		FROM order_items i
		JOIN products p ON p.id = i.product_id
		WHERE i.order_id = ANY($1)
		ORDER BY i.id`

	deleteOrderSQL = `DELETE FROM orders WHERE id = $1 AND owner_id = $2`

	recomputeTotalSQL = `UPDATE orders SET total_amount = (
			SELECT COALESCE(SUM(price_at_purchase * quantity), 0)
			FROM order_items WHERE order_id = $1
		)
		WHERE id = $1
		RETURNING total_amount`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// HistoryByOwner returns the owner's orders newest first. Line items are
// loaded in one batched query and stitched onto their orders, avoiding a
// per-order lookup.
func (r *OrderRepository) HistoryByOwner(ctx context.Context, ownerID int64) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, historyOrdersSQL, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}

	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]string, len(orders))
	idx := make(map[string]int, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		idx[orders[i].ID] = i
	}

	itemRows, err := r.pool.Query(ctx, historyItemsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("listing order items: %w", err)
	}
	items, err := pgx.CollectRows(itemRows, scanLineItem)
	if err != nil {
		return nil, fmt.Errorf("listing order items: %w", err)
	}

	for _, item := range items {
		i := idx[item.OrderID]
		orders[i].Items = append(orders[i].Items, item)
	}
	return orders, nil
}

// Delete removes the order when it belongs to ownerID; the FK cascade takes
// its line items with it in the same statement's transaction.
func (r *OrderRepository) Delete(ctx context.Context, ownerID int64, orderID string) error {
	tag, err := r.pool.Exec(ctx, deleteOrderSQL, orderID, ownerID)
	if err != nil {
		return fmt.Errorf("deleting order %s: %w", orderID, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// RecomputeTotal re-derives total_amount from the persisted line items in a
// single statement and returns the stored value.
func (r *OrderRepository) RecomputeTotal(ctx context.Context, orderID string) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.pool.QueryRow(ctx, recomputeTotalSQL, orderID).Scan(&total)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, order.ErrNotFound
		}
		return decimal.Zero, fmt.Errorf("recomputing total for order %s: %w", orderID, err)
	}
	return total, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var o order.Order
	err := row.Scan(&o.ID, &o.OwnerID, &o.Status, &o.TotalAmount, &o.CreatedAt)
	return o, err
}

func scanLineItem(row pgx.CollectableRow) (order.LineItem, error) {
	var li order.LineItem
	err := row.Scan(
		&li.ID, &li.OrderID, &li.ProductID, &li.ProductTitle,
		&li.PriceAtPurchase, &li.Quantity,
	)
	return li, err
}
