package product

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// InsufficientStockError indicates a stock decrement that would drive the
// stored quantity negative. The decrement is rejected before it is applied.
type InsufficientStockError struct {
	ProductID int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("only %d of product %d available, %d requested", e.Available, e.ProductID, e.Requested)
}

// Product represents a catalog item available for purchase.
type Product struct {
	ID          int64
	Title       string
	Description string
	Price       decimal.Decimal
	Stock       int
	Image       string
}

// Repository defines catalog operations. AdjustStock applies a relative stock
// change as a single atomic statement: a delta that would make the stock
// negative fails with *InsufficientStockError and leaves the row untouched.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id int64) (*Product, error)
	GetByIDs(ctx context.Context, ids []int64) ([]Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id int64) error
	AdjustStock(ctx context.Context, id int64, delta int) (*Product, error)
}
