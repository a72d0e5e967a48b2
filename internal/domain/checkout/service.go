package checkout

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/lapkinv/gamesshop/internal/domain/order"
	"github.com/lapkinv/gamesshop/internal/domain/product"
)

// maxAttempts bounds internal retries of the whole checkout transaction on
// serialization conflicts. Nothing is committed between attempts, so each
// retry starts from a clean slate.
const maxAttempts = 3

// Service is the checkout engine.
type Service struct {
	store Store

	tracer       trace.Tracer
	ordersPlaced metric.Int64Counter
}

// NewService creates a checkout Service. The meter and tracer providers
// come from application telemetry; pass noop providers in tests.
func NewService(store Store, mp metric.MeterProvider, tp trace.TracerProvider) (*Service, error) {
	meter := mp.Meter("gamesshop.checkout")
	ordersPlaced, err := meter.Int64Counter("checkout.orders_placed",
		metric.WithDescription("Orders committed by checkout"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create orders_placed counter")
	}

	return &Service{
		store:        store,
		tracer:       tp.Tracer("gamesshop.checkout"),
		ordersPlaced: ordersPlaced,
	}, nil
}

// Checkout converts the owner's cart into a new pending order as one atomic
// unit: it locks and reads the cart, snapshots current catalog prices into
// line items, computes the total, persists order plus items, and drains the
// cart. On any failure nothing persists and the cart is untouched.
//
// Checkout is not idempotent: every invocation with a non-empty cart creates
// a new order. It is however safe under accidental concurrent invocation for
// the same owner: the row locks serialize the two transactions, so the
// second sees the post-drain cart and fails with ErrEmptyCart instead of
// double-committing the same entries.
func (s *Service) Checkout(ctx context.Context, ownerID int64) (*order.Order, error) {
	ctx, span := s.tracer.Start(ctx, "Checkout")
	defer span.End()

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		o, err := s.attempt(ctx, ownerID)
		if err == nil {
			s.ordersPlaced.Add(ctx, 1)
			return o, nil
		}
		if !errors.Is(err, ErrConflict) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// attempt runs the checkout algorithm once inside a single transaction.
func (s *Service) attempt(ctx context.Context, ownerID int64) (*order.Order, error) {
	var result *order.Order

	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		entries, err := tx.CartEntriesForUpdate(ctx, ownerID)
		if err != nil {
			return errors.Wrap(err, "load cart")
		}
		if len(entries) == 0 {
			return ErrEmptyCart
		}

		productIDs := make([]int64, len(entries))
		entryIDs := make([]int64, len(entries))
		for i, e := range entries {
			productIDs[i] = e.ProductID
			entryIDs[i] = e.ID
		}

		products, err := tx.ActiveProducts(ctx, productIDs)
		if err != nil {
			return errors.Wrap(err, "load products")
		}
		byID := make(map[int64]product.Product, len(products))
		for _, p := range products {
			byID[p.ID] = p
		}

		o := &order.Order{
			ID:      uuid.New().String(),
			OwnerID: ownerID,
			Status:  order.StatusPending,
		}

		// One line item per cart entry, price copied from the catalog
		// row read in this same transaction. A product that vanished
		// between add-to-cart and checkout aborts the whole transaction.
		items := make([]order.LineItem, len(entries))
		for i, e := range entries {
			p, ok := byID[e.ProductID]
			if !ok {
				return &product.NotFoundError{ID: e.ProductID}
			}
			items[i] = order.LineItem{
				OrderID:         o.ID,
				ProductID:       p.ID,
				ProductTitle:    p.Title,
				PriceAtPurchase: p.Price,
				Quantity:        e.Quantity,
			}
		}

		o.TotalAmount = order.SumItems(items)
		o.Items = items

		if err := tx.InsertOrder(ctx, o); err != nil {
			return errors.Wrap(err, "insert order")
		}
		if err := tx.InsertLineItems(ctx, items); err != nil {
			return errors.Wrap(err, "insert line items")
		}
		// Drain only the entries read under lock. Deleting by owner
		// would also sweep up an entry a concurrent add committed
		// after the locked read, losing it without it ever reaching
		// an order.
		if err := tx.DrainEntries(ctx, entryIDs); err != nil {
			return errors.Wrap(err, "drain cart")
		}

		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
