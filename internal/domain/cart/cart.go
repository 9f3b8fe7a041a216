package cart

import (
	"context"

	"github.com/shopspring/decimal"
)

// Line is one product entry in a shopping cart. Price and Title are snapshots
// taken when the product was added, so cart rendering does not depend on the
// live catalog. A cart holds at most one line per product.
type Line struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Title     string          `json:"title"`
}

// Subtotal returns the sum of price * quantity across all lines.
func Subtotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return sum
}

// FindLine returns the index of the line with the given product, or -1.
func FindLine(lines []Line, productID int64) int {
	for i, l := range lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

// Store persists session carts. Get returns an empty slice for an unknown
// session; Put replaces the whole cart.
type Store interface {
	Get(ctx context.Context, sessionID string) ([]Line, error)
	Put(ctx context.Context, sessionID string, lines []Line) error
	Delete(ctx context.Context, sessionID string) error
}
