package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/storefront-api/internal/domain/order"
	"github.com/xenking/storefront-api/internal/domain/product"
)

const (
	decrementStockSQL = `UPDATE products SET stock = stock - $2
		WHERE id = $1 AND stock >= $2`

	insertOrderSQL = `INSERT INTO orders (id, customer_name, customer_email, customer_address,
		customer_phone, items, subtotal, shipping, total, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	insertOrderEventSQL = `INSERT INTO order_events (order_id, status, note, updated_by, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	getOrderSQL = `SELECT id, customer_name, customer_email, customer_address, customer_phone,
		items, subtotal, shipping, total, status, created_at, updated_at
		FROM orders WHERE id = $1`

	listOrdersSQL = `SELECT id, customer_name, customer_email, customer_address, customer_phone,
		items, subtotal, shipping, total, status, created_at, updated_at
		FROM orders ORDER BY created_at DESC`

	getOrderEventsSQL = `SELECT order_id, status, note, updated_by, created_at
		FROM order_events WHERE order_id = ANY($1) ORDER BY id`

	// The WHERE guard enforces the terminal state at the store so two racing
	// operators cannot revive a cancelled order.
	updateOrderStatusSQL = `UPDATE orders SET status = $2, updated_at = $3
		WHERE id = $1 AND status <> 'cancelled'`

	getOrderStatusSQL = `SELECT status FROM orders WHERE id = $1`

	deleteOrderSQL = `DELETE FROM orders WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Order
// items are stored as a JSONB snapshot; the status history lives in the
// order_events table, cascade-deleted with its order.
type OrderRepository struct {
	db DB
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(db DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create persists a new order, its initial history, and the stock decrements
// of every purchased product in one transaction. A decrement that would go
// negative aborts the whole placement with *product.InsufficientStockError.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning order transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, it := range o.Items {
		ct, err := tx.Exec(ctx, decrementStockSQL, it.ProductID, it.Quantity)
		if err != nil {
			return fmt.Errorf("decrementing stock of product %d: %w", it.ProductID, err)
		}
		if ct.RowsAffected() == 0 {
			return r.decrementConflict(ctx, tx, it.ProductID, it.Quantity)
		}
	}

	_, err = tx.Exec(ctx, insertOrderSQL,
		o.ID, o.Customer.FullName, o.Customer.Email, o.Customer.Address, o.Customer.Phone,
		itemsJSON, o.Subtotal, o.Shipping, o.Total, string(o.Status), o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	for _, ev := range o.History {
		if _, err := tx.Exec(ctx, insertOrderEventSQL,
			o.ID, string(ev.Status), ev.Note, ev.UpdatedBy, ev.At,
		); err != nil {
			return fmt.Errorf("recording status history for order %q: %w", o.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing order %q: %w", o.ID, err)
	}
	return nil
}

// decrementConflict reports why a guarded stock decrement matched no row.
func (r *OrderRepository) decrementConflict(ctx context.Context, tx pgx.Tx, productID int64, requested int) error {
	var available int
	if err := tx.QueryRow(ctx, getStockSQL, productID).Scan(&available); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return product.ErrNotFound
		}
		return fmt.Errorf("checking stock of product %d: %w", productID, err)
	}
	return &product.InsufficientStockError{
		ProductID: productID,
		Requested: requested,
		Available: available,
	}
}

// GetByOrderID returns a single order with its full status history.
func (r *OrderRepository) GetByOrderID(ctx context.Context, orderID string) (*order.Order, error) {
	rows, err := r.db.Query(ctx, getOrderSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", orderID, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", orderID, err)
	}

	history, err := r.loadHistory(ctx, []string{orderID})
	if err != nil {
		return nil, err
	}
	o.History = history[orderID]
	return &o, nil
}

// List returns every order with history attached, newest first.
func (r *OrderRepository) List(ctx context.Context) ([]order.Order, error) {
	rows, err := r.db.Query(ctx, listOrdersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}

	out, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	if len(out) == 0 {
		return out, nil
	}

	ids := make([]string, len(out))
	for i := range out {
		ids[i] = out[i].ID
	}
	history, err := r.loadHistory(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].History = history[out[i].ID]
	}
	return out, nil
}

// loadHistory fetches events for all given orders in one query, grouped by
// order and preserving insertion order.
func (r *OrderRepository) loadHistory(ctx context.Context, orderIDs []string) (map[string][]order.StatusEvent, error) {
	rows, err := r.db.Query(ctx, getOrderEventsSQL, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("loading status history: %w", err)
	}
	defer rows.Close()

	history := make(map[string][]order.StatusEvent, len(orderIDs))
	for rows.Next() {
		var (
			orderID string
			status  string
			ev      order.StatusEvent
		)
		if err := rows.Scan(&orderID, &status, &ev.Note, &ev.UpdatedBy, &ev.At); err != nil {
			return nil, fmt.Errorf("scanning status event: %w", err)
		}
		ev.Status = order.Status(status)
		history[orderID] = append(history[orderID], ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loading status history: %w", err)
	}
	return history, nil
}

// UpdateStatus commits a status change and its history event atomically. The
// write is rejected with *order.InvalidTransitionError when the stored row is
// already cancelled, regardless of what the caller last read.
func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID string, status order.Status, ev order.StatusEvent) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning status transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ct, err := tx.Exec(ctx, updateOrderStatusSQL, orderID, string(status), ev.At)
	if err != nil {
		return fmt.Errorf("updating status of order %q: %w", orderID, err)
	}
	if ct.RowsAffected() == 0 {
		var current string
		if err := tx.QueryRow(ctx, getOrderStatusSQL, orderID).Scan(&current); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return order.ErrNotFound
			}
			return fmt.Errorf("checking status of order %q: %w", orderID, err)
		}
		return &order.InvalidTransitionError{
			OrderID: orderID,
			From:    order.Status(current),
			To:      status,
		}
	}

	if _, err := tx.Exec(ctx, insertOrderEventSQL,
		orderID, string(ev.Status), ev.Note, ev.UpdatedBy, ev.At,
	); err != nil {
		return fmt.Errorf("recording status event for order %q: %w", orderID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing status of order %q: %w", orderID, err)
	}
	return nil
}

// Delete permanently removes an order; its history rows cascade.
func (r *OrderRepository) Delete(ctx context.Context, orderID string) error {
	ct, err := r.db.Exec(ctx, deleteOrderSQL, orderID)
	if err != nil {
		return fmt.Errorf("deleting order %q: %w", orderID, err)
	}
	if ct.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o         order.Order
		itemsJSON []byte
		status    string
		createdAt time.Time
		updatedAt time.Time
	)
	err := row.Scan(
		&o.ID, &o.Customer.FullName, &o.Customer.Email, &o.Customer.Address, &o.Customer.Phone,
		&itemsJSON, &o.Subtotal, &o.Shipping, &o.Total, &status, &createdAt, &updatedAt,
	)
	if err != nil {
		return o, err
	}
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return o, fmt.Errorf("unmarshaling items of order %q: %w", o.ID, err)
	}
	o.Status = order.Status(status)
	o.CreatedAt = createdAt
	o.UpdatedAt = updatedAt
	return o, nil
}
