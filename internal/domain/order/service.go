package order

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/storefront-api/internal/domain/cart"
	"github.com/xenking/storefront-api/internal/domain/product"
)

// Service owns the order lifecycle: placement, status transitions with their
// side effects, and deletion.
type Service struct {
	products product.Repository
	orders   Repository
	shipping decimal.Decimal
	now      func() time.Time
}

// NewService creates an order Service. The shipping fee is a flat amount
// added to every order's subtotal.
func NewService(products product.Repository, orders Repository, shipping decimal.Decimal) *Service {
	return &Service{
		products: products,
		orders:   orders,
		shipping: shipping,
		now:      time.Now,
	}
}

// newOrderID builds a shareable, URL-safe order identifier from the placement
// time and a random suffix.
func (s *Service) newOrderID() string {
	suffix := strings.ToUpper(uuid.NewString()[:8])
	return fmt.Sprintf("ORD-%s-%s", s.now().UTC().Format("20060102150405"), suffix)
}

// PlaceOrder creates an order from a validated cart. Stock may have changed
// since the cart was last checked, so the cart is re-validated against the
// live catalog immediately before placement; a mismatch aborts with
// *StockChangedError naming the affected products. On success the order
// starts in pending with a single system history event, and every purchased
// product's stock is decremented atomically with the order insert — a
// decrement that would go negative aborts the whole placement with no
// partial effect.
func (s *Service) PlaceOrder(ctx context.Context, customer Customer, lines []cart.Line) (*Order, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	ids := make([]int64, len(lines))
	for i, l := range lines {
		ids[i] = l.ProductID
	}

	catalog, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "fetch catalog")
	}

	// Mandatory final re-validation (caller-side checks may be stale).
	if stockErrs := cart.Validate(lines, catalog); len(stockErrs) > 0 {
		titles := make([]string, len(stockErrs))
		for i, se := range stockErrs {
			titles[i] = se.Title
		}
		return nil, &StockChangedError{Titles: titles}
	}

	now := s.now()
	items := make([]Item, len(lines))
	subtotal := decimal.Zero
	for i, l := range lines {
		items[i] = Item{
			ProductID: l.ProductID,
			Title:     l.Title,
			Price:     l.Price,
			Quantity:  l.Quantity,
		}
		subtotal = subtotal.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}

	o := &Order{
		ID:       s.newOrderID(),
		Customer: customer,
		Items:    items,
		Subtotal: subtotal,
		Shipping: s.shipping,
		Total:    subtotal.Add(s.shipping),
		Status:   StatusPending,
		History: []StatusEvent{{
			Status:    StatusPending,
			At:        now,
			UpdatedBy: "system",
			Note:      "Order placed by customer",
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.orders.Create(ctx, o); err != nil {
		// The store is the authority on stock: a concurrent order may have
		// consumed inventory after our re-validation passed.
		var insufficient *product.InsufficientStockError
		if errors.As(err, &insufficient) {
			return nil, &StockChangedError{Titles: []string{titleOf(items, insufficient.ProductID)}}
		}
		return nil, errors.Wrap(err, "create order")
	}

	return o, nil
}

func titleOf(items []Item, productID int64) string {
	for _, it := range items {
		if it.ProductID == productID {
			return it.Title
		}
	}
	return fmt.Sprintf("product %d", productID)
}

// UpdateStatus moves an order to newStatus and appends a history event.
// Cancelled is terminal and pending is never re-enterable; violations are
// reported as *InvalidTransitionError without touching the order. Moving into
// cancelled restores the purchased stock best-effort: a restoration failure
// is logged but does not roll back the committed status change, since a stuck
// status is worse than a stock count an admin can fix by hand.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, newStatus Status, note, updatedBy string) (*Order, error) {
	o, err := s.orders.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !CanTransition(o.Status, newStatus) {
		return nil, &InvalidTransitionError{OrderID: orderID, From: o.Status, To: newStatus}
	}

	if note == "" {
		note = fmt.Sprintf("Status updated to %s", newStatus)
	}
	ev := StatusEvent{
		Status:    newStatus,
		At:        s.now(),
		UpdatedBy: updatedBy,
		Note:      note,
	}

	if err := s.orders.UpdateStatus(ctx, orderID, newStatus, ev); err != nil {
		return nil, err
	}

	if newStatus == StatusCancelled {
		s.restoreStock(ctx, o)
	}

	o.Status = newStatus
	o.History = append(o.History, ev)
	o.UpdatedAt = ev.At
	return o, nil
}

// GetByOrderID returns a single order with its full history.
func (s *Service) GetByOrderID(ctx context.Context, orderID string) (*Order, error) {
	return s.orders.GetByOrderID(ctx, orderID)
}

// List returns every order with history attached.
func (s *Service) List(ctx context.Context) ([]Order, error) {
	return s.orders.List(ctx)
}

// DeleteOrder permanently removes an order. Unless the order completed (and
// so legitimately consumed its stock), the purchased quantities are returned
// to the catalog first; a restoration failure is tolerated and the deletion
// proceeds regardless.
func (s *Service) DeleteOrder(ctx context.Context, orderID string) error {
	o, err := s.orders.GetByOrderID(ctx, orderID)
	if err != nil {
		return err
	}

	if o.Status != StatusCompleted {
		s.restoreStock(ctx, o)
	}

	return s.orders.Delete(ctx, orderID)
}

// restoreStock returns each line's quantity to the catalog. Callers invoke it
// exactly once per cancellation and once per deletion of a non-completed
// order; the function itself is not idempotent.
func (s *Service) restoreStock(ctx context.Context, o *Order) {
	for _, it := range o.Items {
		if _, err := s.products.AdjustStock(ctx, it.ProductID, it.Quantity); err != nil {
			zctx.From(ctx).Warn("Stock restoration failed",
				zap.String("order_id", o.ID),
				zap.Int64("product_id", it.ProductID),
				zap.Int("quantity", it.Quantity),
				zap.Error(err),
			)
		}
	}
}

// SortForDisplay orders orders for admin lists: active statuses first by
// their fixed priority, newest first within a status. The sort is stable and
// purely presentational.
func SortForDisplay(orders []Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		pi, pj := orders[i].Status.Priority(), orders[j].Status.Priority()
		if pi != pj {
			return pi < pj
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}
