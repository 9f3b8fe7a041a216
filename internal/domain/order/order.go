package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for order operations.
var (
	ErrNotFound  = errors.New("order not found")
	ErrEmptyCart = errors.New("cart is empty")
)

// InvalidTransitionError indicates an illegal status change attempt.
type InvalidTransitionError struct {
	OrderID string
	From    Status
	To      Status
}

func (e *InvalidTransitionError) Error() string {
	if !e.To.Valid() {
		return fmt.Sprintf("order %s: unknown status %q", e.OrderID, e.To)
	}
	return fmt.Sprintf("order %s: cannot change status from %s to %s", e.OrderID, e.From, e.To)
}

// StockChangedError indicates that the final pre-commit validation at
// checkout failed: stock moved between the last cart check and placement.
type StockChangedError struct {
	Titles []string
}

func (e *StockChangedError) Error() string {
	return fmt.Sprintf("stock changed for: %s", strings.Join(e.Titles, ", "))
}

// Customer holds the checkout contact details captured with an order.
type Customer struct {
	FullName string
	Email    string
	Address  string
	Phone    string
}

// Item is an immutable snapshot of one purchased cart line. Title and price
// are copied at order time and never follow later catalog changes.
type Item struct {
	ProductID int64           `json:"product_id"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// StatusEvent is one entry of an order's append-only status history.
type StatusEvent struct {
	Status    Status
	At        time.Time
	UpdatedBy string
	Note      string
}

// Order is the aggregate created at checkout. History is ordered oldest
// first, is never empty after creation, and its last entry always matches
// Status.
type Order struct {
	ID        string
	Customer  Customer
	Items     []Item
	Subtotal  decimal.Decimal
	Shipping  decimal.Decimal
	Total     decimal.Decimal
	Status    Status
	History   []StatusEvent
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LastEvent returns the most recent history entry.
func (o *Order) LastEvent() StatusEvent {
	return o.History[len(o.History)-1]
}

// Repository defines persistence operations for orders.
//
// Create must decrement the stock of every purchased product and insert the
// order atomically: if any decrement would drive stock negative, nothing is
// persisted and a *product.InsufficientStockError is returned.
//
// UpdateStatus must reject the write at the store when the row is already
// cancelled, so the terminal-state guard holds even when two operators race.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByOrderID(ctx context.Context, orderID string) (*Order, error)
	List(ctx context.Context) ([]Order, error)
	UpdateStatus(ctx context.Context, orderID string, status Status, ev StatusEvent) error
	Delete(ctx context.Context, orderID string) error
}
