package checkout_test

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/lapkinv/gamesshop/internal/domain/cart"
	"github.com/lapkinv/gamesshop/internal/domain/checkout"
	"github.com/lapkinv/gamesshop/internal/domain/order"
	"github.com/lapkinv/gamesshop/internal/domain/product"
)

// fakeStore is an in-memory checkout.Store with transactional semantics: all
// writes of one InTx call are buffered and applied only when fn returns nil.
type fakeStore struct {
	entries  []cart.Entry
	products map[int64]product.Product

	// committed state, populated on successful transactions
	orders []order.Order
	items  []order.LineItem

	// failConflicts makes the first N transactions fail with ErrConflict
	// after fn completes, simulating serialization losses at commit time.
	failConflicts int
	txCount       int

	// afterLockedRead, when set, runs once after the first
	// CartEntriesForUpdate, simulating a concurrent writer committing
	// between the locked read and the rest of the transaction.
	afterLockedRead func(s *fakeStore)
}

type fakeTx struct {
	store *fakeStore

	pendingOrders []order.Order
	pendingItems  []order.LineItem
	drainedIDs    []int64
}

func (s *fakeStore) InTx(ctx context.Context, fn func(ctx context.Context, tx checkout.Tx) error) error {
	s.txCount++
	tx := &fakeTx{store: s}

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if s.failConflicts > 0 {
		s.failConflicts--
		return errors.Wrap(checkout.ErrConflict, "commit")
	}

	// commit
	s.orders = append(s.orders, tx.pendingOrders...)
	s.items = append(s.items, tx.pendingItems...)
	if len(tx.drainedIDs) > 0 {
		drained := make(map[int64]bool, len(tx.drainedIDs))
		for _, id := range tx.drainedIDs {
			drained[id] = true
		}
		kept := s.entries[:0]
		for _, e := range s.entries {
			if !drained[e.ID] {
				kept = append(kept, e)
			}
		}
		s.entries = kept
	}
	return nil
}

func (t *fakeTx) CartEntriesForUpdate(_ context.Context, ownerID int64) ([]cart.Entry, error) {
	var out []cart.Entry
	for _, e := range t.store.entries {
		if e.OwnerID == ownerID {
			out = append(out, e)
		}
	}
	if hook := t.store.afterLockedRead; hook != nil {
		t.store.afterLockedRead = nil
		hook(t.store)
	}
	return out, nil
}

func (t *fakeTx) ActiveProducts(_ context.Context, ids []int64) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, ok := t.store.products[id]; ok && p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

func (t *fakeTx) InsertOrder(_ context.Context, o *order.Order) error {
	t.pendingOrders = append(t.pendingOrders, *o)
	return nil
}

func (t *fakeTx) InsertLineItems(_ context.Context, items []order.LineItem) error {
	t.pendingItems = append(t.pendingItems, items...)
	return nil
}

func (t *fakeTx) DrainEntries(_ context.Context, entryIDs []int64) error {
	t.drainedIDs = append(t.drainedIDs, entryIDs...)
	return nil
}

func newCheckoutService(t *testing.T, store checkout.Store) *checkout.Service {
	t.Helper()
	svc, err := checkout.NewService(store, noop.NewMeterProvider(), tracenoop.NewTracerProvider())
	require.NoError(t, err)
	return svc
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCheckoutEmptyCart(t *testing.T) {
	store := &fakeStore{products: map[int64]product.Product{}}
	svc := newCheckoutService(t, store)

	_, err := svc.Checkout(context.Background(), 1)
	require.ErrorIs(t, err, checkout.ErrEmptyCart)
	assert.Empty(t, store.orders, "empty cart must not produce an order")
}

func TestCheckoutCreatesOrderAndDrainsCart(t *testing.T) {
	store := &fakeStore{
		entries: []cart.Entry{
			{ID: 1, OwnerID: 1, ProductID: 10, Quantity: 2},
			{ID: 2, OwnerID: 1, ProductID: 11, Quantity: 1},
		},
		products: map[int64]product.Product{
			10: {ID: 10, Title: "Portal", Price: price("5.00"), IsActive: true},
			11: {ID: 11, Title: "Factorio", Price: price("3.00"), IsActive: true},
		},
	}
	svc := newCheckoutService(t, store)

	o, err := svc.Checkout(context.Background(), 1)
	require.NoError(t, err)

	assert.NotEmpty(t, o.ID)
	assert.Equal(t, order.StatusPending, o.Status)
	assert.True(t, o.TotalAmount.Equal(price("13.00")), "got %s", o.TotalAmount)
	require.Len(t, o.Items, 2)

	assert.Equal(t, "Portal", o.Items[0].ProductTitle)
	assert.True(t, o.Items[0].PriceAtPurchase.Equal(price("5.00")))
	assert.Equal(t, 2, o.Items[0].Quantity)

	assert.Empty(t, store.entries, "cart must be drained after checkout")
	require.Len(t, store.orders, 1)
	assert.Len(t, store.items, 2)
}

func TestCheckoutTotalMatchesItemSum(t *testing.T) {
	store := &fakeStore{
		entries: []cart.Entry{
			{ID: 1, OwnerID: 1, ProductID: 10, Quantity: 3},
			{ID: 2, OwnerID: 1, ProductID: 11, Quantity: 7},
		},
		products: map[int64]product.Product{
			10: {ID: 10, Title: "A", Price: price("19.99"), IsActive: true},
			11: {ID: 11, Title: "B", Price: price("0.49"), IsActive: true},
		},
	}
	svc := newCheckoutService(t, store)

	o, err := svc.Checkout(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, o.TotalAmount.Equal(order.SumItems(o.Items)))
}

func TestCheckoutVanishedProductAborts(t *testing.T) {
	store := &fakeStore{
		entries: []cart.Entry{
			{ID: 1, OwnerID: 1, ProductID: 10, Quantity: 1},
			{ID: 2, OwnerID: 1, ProductID: 99, Quantity: 1},
		},
		products: map[int64]product.Product{
			10: {ID: 10, Title: "Portal", Price: price("5.00"), IsActive: true},
		},
	}
	svc := newCheckoutService(t, store)

	_, err := svc.Checkout(context.Background(), 1)

	var notFound *product.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, int64(99), notFound.ID)

	assert.Empty(t, store.orders, "aborted checkout must persist nothing")
	assert.Empty(t, store.items)
	assert.Len(t, store.entries, 2, "aborted checkout must leave the cart intact")
}

func TestCheckoutIgnoresOtherOwnersEntries(t *testing.T) {
	store := &fakeStore{
		entries: []cart.Entry{
			{ID: 1, OwnerID: 2, ProductID: 10, Quantity: 1},
		},
		products: map[int64]product.Product{
			10: {ID: 10, Title: "Portal", Price: price("5.00"), IsActive: true},
		},
	}
	svc := newCheckoutService(t, store)

	_, err := svc.Checkout(context.Background(), 1)
	require.ErrorIs(t, err, checkout.ErrEmptyCart)
}

func TestCheckoutKeepsEntryAddedAfterLockedRead(t *testing.T) {
	store := &fakeStore{
		entries: []cart.Entry{
			{ID: 1, OwnerID: 1, ProductID: 10, Quantity: 2},
		},
		products: map[int64]product.Product{
			10: {ID: 10, Title: "Portal", Price: price("5.00"), IsActive: true},
			11: {ID: 11, Title: "Factorio", Price: price("3.00"), IsActive: true},
		},
		// A concurrent add lands a brand-new entry between the locked
		// read and the drain. It must survive the drain untouched.
		afterLockedRead: func(s *fakeStore) {
			s.entries = append(s.entries, cart.Entry{ID: 2, OwnerID: 1, ProductID: 11, Quantity: 1})
		},
	}
	svc := newCheckoutService(t, store)

	o, err := svc.Checkout(context.Background(), 1)
	require.NoError(t, err)

	require.Len(t, o.Items, 1, "order must contain only the locked entries")
	assert.Equal(t, int64(10), o.Items[0].ProductID)

	require.Len(t, store.entries, 1, "the concurrently added entry must stay in the cart")
	assert.Equal(t, int64(11), store.entries[0].ProductID)
	assert.Equal(t, 1, store.entries[0].Quantity)
}

func TestCheckoutRetriesOnConflict(t *testing.T) {
	store := &fakeStore{
		entries: []cart.Entry{
			{ID: 1, OwnerID: 1, ProductID: 10, Quantity: 1},
		},
		products: map[int64]product.Product{
			10: {ID: 10, Title: "Portal", Price: price("5.00"), IsActive: true},
		},
		failConflicts: 2,
	}
	svc := newCheckoutService(t, store)

	o, err := svc.Checkout(context.Background(), 1)
	require.NoError(t, err, "third attempt should succeed")
	assert.Equal(t, 3, store.txCount)
	require.Len(t, store.orders, 1)
	assert.Equal(t, o.ID, store.orders[0].ID)
}

func TestCheckoutGivesUpAfterMaxAttempts(t *testing.T) {
	store := &fakeStore{
		entries: []cart.Entry{
			{ID: 1, OwnerID: 1, ProductID: 10, Quantity: 1},
		},
		products: map[int64]product.Product{
			10: {ID: 10, Title: "Portal", Price: price("5.00"), IsActive: true},
		},
		failConflicts: 100,
	}
	svc := newCheckoutService(t, store)

	_, err := svc.Checkout(context.Background(), 1)
	require.ErrorIs(t, err, checkout.ErrConflict)
	assert.Equal(t, 3, store.txCount, "conflict retries must be bounded")
	assert.Empty(t, store.orders)
	assert.Len(t, store.entries, 1, "failed checkout must leave the cart intact")
}
