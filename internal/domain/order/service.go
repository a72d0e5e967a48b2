package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Service exposes read and maintenance operations over placed orders.
// Order creation lives in the checkout engine; this service never creates
// orders.
type Service struct {
	orders Repository
}

// NewService creates an order Service backed by the given repository.
func NewService(orders Repository) *Service {
	return &Service{orders: orders}
}

// History returns the owner's orders, newest first, with line items
// resolved.
func (s *Service) History(ctx context.Context, ownerID int64) ([]Order, error) {
	orders, err := s.orders.HistoryByOwner(ctx, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, "load order history")
	}
	return orders, nil
}

// Delete removes one of the owner's orders together with its line items.
func (s *Service) Delete(ctx context.Context, ownerID int64, orderID string) error {
	if err := s.orders.Delete(ctx, ownerID, orderID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return errors.Wrapf(err, "delete order %s", orderID)
	}
	return nil
}

// RecomputeTotal re-derives and persists an order's total from its stored
// line items. Checkout computes the same sum inline before committing;
// this is the repair path for anything that adds items to an existing
// order out of band.
func (s *Service) RecomputeTotal(ctx context.Context, orderID string) (decimal.Decimal, error) {
	total, err := s.orders.RecomputeTotal(ctx, orderID)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "recompute total for order %s", orderID)
	}
	return total, nil
}
