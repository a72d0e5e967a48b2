package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lapkinv/gamesshop/internal/domain/product"
)

const (
	getActiveProductSQL = `SELECT id, title, genre, developer, description, price, is_active, created_at
		FROM products WHERE id = $1 AND is_active`

	activeProductsByIDsSQL = `SELECT id, title, genre, developer, description, price, is_active, created_at
		FROM products WHERE id = ANY($1) AND is_active`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// GetActiveByID returns a single active product by its identifier.
func (r *ProductRepository) GetActiveByID(ctx context.Context, id int64) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getActiveProductSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}
	return &p, nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(
		&p.ID, &p.Title, &p.Genre, &p.Developer, &p.Description,
		&p.Price, &p.IsActive, &p.CreatedAt,
	)
	return p, err
}
