package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/lapkinv/gamesshop/internal/domain/product"
)

// Service encapsulates cart business logic on top of the cart and product
// repositories.
type Service struct {
	entries  Repository
	products product.Repository
}

// NewService creates a cart Service with the required dependencies.
func NewService(entries Repository, products product.Repository) *Service {
	return &Service{
		entries:  entries,
		products: products,
	}
}

// Add puts quantity units of a product into the owner's cart. Adding a
// product that is already in the cart increments the existing entry instead
// of creating a duplicate. The product must exist and be active.
func (s *Service) Add(ctx context.Context, ownerID, productID int64, quantity int) (*Entry, error) {
	if quantity <= 0 {
		return nil, &InvalidQuantityError{ProductID: productID}
	}

	if _, err := s.products.GetActiveByID(ctx, productID); err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return nil, &product.NotFoundError{ID: productID}
		}
		return nil, errors.Wrapf(err, "get product %d", productID)
	}

	entry, err := s.entries.Upsert(ctx, ownerID, productID, quantity)
	if err != nil {
		return nil, errors.Wrapf(err, "upsert cart entry for product %d", productID)
	}
	return entry, nil
}

// Remove deletes a single entry from the owner's cart.
func (s *Service) Remove(ctx context.Context, ownerID, entryID int64) error {
	if err := s.entries.Delete(ctx, ownerID, entryID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return errors.Wrapf(err, "delete cart entry %d", entryID)
	}
	return nil
}

// Contents holds a cart listing together with its running total.
type Contents struct {
	Lines []Line
	Total decimal.Decimal
}

// List returns the owner's cart with per-line and overall totals computed
// from current catalog prices.
func (s *Service) List(ctx context.Context, ownerID int64) (*Contents, error) {
	lines, err := s.entries.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, "list cart")
	}

	total := decimal.Zero
	for i := range lines {
		qty := decimal.NewFromInt(int64(lines[i].Quantity))
		lines[i].LineTotal = lines[i].UnitPrice.Mul(qty)
		total = total.Add(lines[i].LineTotal)
	}

	return &Contents{Lines: lines, Total: total}, nil
}
