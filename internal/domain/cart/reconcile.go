package cart

import (
	"fmt"

	"github.com/xenking/storefront-api/internal/domain/product"
)

// ErrorKind classifies a stock reconciliation problem.
type ErrorKind string

const (
	// KindUnavailable means the referenced product no longer exists.
	KindUnavailable ErrorKind = "unavailable"
	// KindExceeded means the requested quantity exceeds the available stock.
	KindExceeded ErrorKind = "exceeded"
)

// StockError describes why a single cart line is not currently satisfiable.
// Reconciliation reports problems as values, never as failures: an empty
// result from Validate means the cart is purchasable as-is.
type StockError struct {
	Kind           ErrorKind
	ProductID      int64
	Title          string
	RequestedQty   int
	AvailableStock int
}

func (e *StockError) Error() string {
	if e.Kind == KindUnavailable {
		return fmt.Sprintf("%q is no longer available", e.Title)
	}
	return fmt.Sprintf("only %d of %q available, you have %d in cart", e.AvailableStock, e.Title, e.RequestedQty)
}

// stockByID indexes catalog stock for lookup during reconciliation.
func stockByID(catalog []product.Product) map[int64]int {
	m := make(map[int64]int, len(catalog))
	for _, p := range catalog {
		m[p.ID] = p.Stock
	}
	return m
}

// Validate checks every cart line against the live catalog and returns one
// StockError per unsatisfiable line, in cart order. It is a pure function and
// may be called repeatedly as stock or the cart changes.
func Validate(lines []Line, catalog []product.Product) []*StockError {
	stock := stockByID(catalog)

	var errs []*StockError
	for _, l := range lines {
		available, ok := stock[l.ProductID]
		switch {
		case !ok:
			errs = append(errs, &StockError{
				Kind:      KindUnavailable,
				ProductID: l.ProductID,
				Title:     l.Title,
			})
		case l.Quantity > available:
			errs = append(errs, &StockError{
				Kind:           KindExceeded,
				ProductID:      l.ProductID,
				Title:          l.Title,
				RequestedQty:   l.Quantity,
				AvailableStock: available,
			})
		}
	}
	return errs
}

// Repair produces the closest purchasable cart: quantities above stock are
// clamped down to the available amount, and lines whose product is missing or
// out of stock are removed. Line order is preserved. When Validate reports no
// problems, Repair returns the input unchanged.
func Repair(lines []Line, catalog []product.Product) (repaired []Line, removed int) {
	stock := stockByID(catalog)

	repaired = make([]Line, 0, len(lines))
	for _, l := range lines {
		available, ok := stock[l.ProductID]
		if !ok || available == 0 {
			removed++
			continue
		}
		if l.Quantity > available {
			l.Quantity = available
		}
		repaired = append(repaired, l)
	}
	return repaired, removed
}

// AdjustQuantity applies delta to the named line's quantity, clamped to
// [1, available stock]. Policy is clamp-and-report: when the raw result would
// exceed stock, the returned cart carries the clamped quantity and an
// Exceeded error is returned alongside it so the caller can warn the user.
// An unknown product, or one with zero stock, leaves the cart unchanged and
// reports Unavailable or Exceeded respectively.
func AdjustQuantity(lines []Line, productID int64, delta int, catalog []product.Product) ([]Line, *StockError) {
	i := FindLine(lines, productID)
	if i < 0 {
		return lines, &StockError{Kind: KindUnavailable, ProductID: productID}
	}

	line := lines[i]
	available, ok := stockByID(catalog)[productID]
	if !ok {
		return lines, &StockError{
			Kind:      KindUnavailable,
			ProductID: productID,
			Title:     line.Title,
		}
	}
	if available == 0 {
		return lines, &StockError{
			Kind:           KindExceeded,
			ProductID:      productID,
			Title:          line.Title,
			RequestedQty:   line.Quantity + delta,
			AvailableStock: 0,
		}
	}

	requested := line.Quantity + delta
	adjusted := requested
	if adjusted < 1 {
		adjusted = 1
	}

	var stockErr *StockError
	if adjusted > available {
		adjusted = available
		stockErr = &StockError{
			Kind:           KindExceeded,
			ProductID:      productID,
			Title:          line.Title,
			RequestedQty:   requested,
			AvailableStock: available,
		}
	}

	out := make([]Line, len(lines))
	copy(out, lines)
	out[i].Quantity = adjusted
	return out, stockErr
}
