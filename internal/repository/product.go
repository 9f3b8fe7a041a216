package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-api/internal/domain/product"
)

const (
	listProductsSQL = `SELECT id, title, description, price, stock, image
		FROM products ORDER BY id`

	getProductByIDSQL = `SELECT id, title, description, price, stock, image
		FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT id, title, description, price, stock, image
		FROM products WHERE id = ANY($1)`

	createProductSQL = `INSERT INTO products (title, description, price, stock, image)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`

	updateProductSQL = `UPDATE products
		SET title = $2, description = $3, price = $4, stock = $5, image = $6
		WHERE id = $1`

	deleteProductSQL = `DELETE FROM products WHERE id = $1`

	// The stock guard lives in the statement itself so concurrent adjustments
	// can never observe or produce a negative value.
	adjustStockSQL = `UPDATE products SET stock = stock + $2
		WHERE id = $1 AND stock + $2 >= 0
		RETURNING id, title, description, price, stock, image`

	getStockSQL = `SELECT stock FROM products WHERE id = $1`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	db DB
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(db DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// List returns the whole catalog ordered by ID.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.db.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	rows, err := r.db.Query(ctx, getProductByIDSQL, id)
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

// GetByIDs returns products matching any of the given IDs. Missing IDs are
// simply absent from the result.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []int64) ([]product.Product, error) {
	rows, err := r.db.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Create inserts a new product and fills in the assigned ID.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	err := r.db.QueryRow(ctx, createProductSQL,
		p.Title, p.Description, p.Price, p.Stock, p.Image,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("creating product %q: %w", p.Title, err)
	}
	return nil
}

// Update replaces every mutable field of an existing product.
func (r *ProductRepository) Update(ctx context.Context, p *product.Product) error {
	ct, err := r.db.Exec(ctx, updateProductSQL,
		p.ID, p.Title, p.Description, p.Price, p.Stock, p.Image,
	)
	if err != nil {
		return fmt.Errorf("updating product %d: %w", p.ID, err)
	}
	if ct.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// Delete removes a product from the catalog.
func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	ct, err := r.db.Exec(ctx, deleteProductSQL, id)
	if err != nil {
		return fmt.Errorf("deleting product %d: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// AdjustStock applies a relative stock change atomically. A delta that would
// drive the stock negative is rejected with *product.InsufficientStockError;
// an unknown product yields product.ErrNotFound.
func (r *ProductRepository) AdjustStock(ctx context.Context, id int64, delta int) (*product.Product, error) {
	rows, err := r.db.Query(ctx, adjustStockSQL, id, delta)
	if err != nil {
		return nil, fmt.Errorf("adjusting stock of product %d: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("adjusting stock of product %d: %w", id, err)
	}

	// Guard rejected the update: tell a missing row apart from insufficient stock.
	var available int
	if err := r.db.QueryRow(ctx, getStockSQL, id).Scan(&available); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("adjusting stock of product %d: %w", id, err)
	}
	return nil, &product.InsufficientStockError{
		ProductID: id,
		Requested: -delta,
		Available: available,
	}
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p     product.Product
		price decimal.Decimal
	)
	err := row.Scan(&p.ID, &p.Title, &p.Description, &price, &p.Stock, &p.Image)
	p.Price = price
	return p, err
}
