package cart_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lapkinv/gamesshop/internal/domain/cart"
	"github.com/lapkinv/gamesshop/internal/domain/product"
)

type stubCartRepo struct {
	entries map[int64]*cart.Entry // keyed by product ID
	lines   []cart.Line
	nextID  int64
}

func newStubCartRepo() *stubCartRepo {
	return &stubCartRepo{entries: make(map[int64]*cart.Entry)}
}

func (r *stubCartRepo) Upsert(_ context.Context, ownerID, productID int64, quantity int) (*cart.Entry, error) {
	if e, ok := r.entries[productID]; ok {
		e.Quantity += quantity
		cp := *e
		return &cp, nil
	}
	r.nextID++
	e := &cart.Entry{ID: r.nextID, OwnerID: ownerID, ProductID: productID, Quantity: quantity}
	r.entries[productID] = e
	cp := *e
	return &cp, nil
}

func (r *stubCartRepo) Delete(_ context.Context, _, entryID int64) error {
	for pid, e := range r.entries {
		if e.ID == entryID {
			delete(r.entries, pid)
			return nil
		}
	}
	return cart.ErrNotFound
}

func (r *stubCartRepo) ListByOwner(_ context.Context, _ int64) ([]cart.Line, error) {
	out := make([]cart.Line, len(r.lines))
	copy(out, r.lines)
	return out, nil
}

type stubProductRepo struct {
	products map[int64]product.Product
}

func (r *stubProductRepo) GetActiveByID(_ context.Context, id int64) (*product.Product, error) {
	p, ok := r.products[id]
	if !ok || !p.IsActive {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func catalogWith(products ...product.Product) *stubProductRepo {
	r := &stubProductRepo{products: make(map[int64]product.Product)}
	for _, p := range products {
		r.products[p.ID] = p
	}
	return r
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestServiceAddMergesRepeatedProduct(t *testing.T) {
	repo := newStubCartRepo()
	svc := cart.NewService(repo, catalogWith(
		product.Product{ID: 10, Title: "Portal", Price: price("9.99"), IsActive: true},
	))

	first, err := svc.Add(context.Background(), 1, 10, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Quantity)

	second, err := svc.Add(context.Background(), 1, 10, 3)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "repeat add must merge, not create a new entry")
	assert.Equal(t, 5, second.Quantity)
	assert.Len(t, repo.entries, 1)
}

func TestServiceAddRejectsInvalidQuantity(t *testing.T) {
	svc := cart.NewService(newStubCartRepo(), catalogWith(
		product.Product{ID: 10, Title: "Portal", Price: price("9.99"), IsActive: true},
	))

	for _, qty := range []int{0, -1, -100} {
		_, err := svc.Add(context.Background(), 1, 10, qty)

		var invalidErr *cart.InvalidQuantityError
		require.ErrorAs(t, err, &invalidErr)
		assert.Equal(t, int64(10), invalidErr.ProductID)
	}
}

func TestServiceAddUnknownProduct(t *testing.T) {
	svc := cart.NewService(newStubCartRepo(), catalogWith())

	_, err := svc.Add(context.Background(), 1, 404, 1)
	require.ErrorIs(t, err, product.ErrNotFound)

	var notFound *product.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, int64(404), notFound.ID)
}

func TestServiceAddInactiveProduct(t *testing.T) {
	svc := cart.NewService(newStubCartRepo(), catalogWith(
		product.Product{ID: 10, Title: "Delisted", Price: price("9.99"), IsActive: false},
	))

	_, err := svc.Add(context.Background(), 1, 10, 1)
	require.ErrorIs(t, err, product.ErrNotFound)
}

func TestServiceRemoveMissingEntry(t *testing.T) {
	svc := cart.NewService(newStubCartRepo(), catalogWith())

	err := svc.Remove(context.Background(), 1, 999)
	require.ErrorIs(t, err, cart.ErrNotFound)
}

func TestServiceListComputesTotals(t *testing.T) {
	repo := newStubCartRepo()
	repo.lines = []cart.Line{
		{
			Entry:        cart.Entry{ID: 1, OwnerID: 1, ProductID: 10, Quantity: 2},
			ProductTitle: "Portal",
			UnitPrice:    price("9.99"),
		},
		{
			Entry:        cart.Entry{ID: 2, OwnerID: 1, ProductID: 11, Quantity: 3},
			ProductTitle: "Factorio",
			UnitPrice:    price("30.00"),
		},
	}
	svc := cart.NewService(repo, catalogWith())

	got, err := svc.List(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, got.Lines, 2)

	assert.True(t, got.Lines[0].LineTotal.Equal(price("19.98")), "got %s", got.Lines[0].LineTotal)
	assert.True(t, got.Lines[1].LineTotal.Equal(price("90.00")), "got %s", got.Lines[1].LineTotal)
	assert.True(t, got.Total.Equal(price("109.98")), "got %s", got.Total)
}

func TestServiceListEmptyCart(t *testing.T) {
	svc := cart.NewService(newStubCartRepo(), catalogWith())

	got, err := svc.List(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, got.Lines)
	assert.True(t, got.Total.IsZero())
}
