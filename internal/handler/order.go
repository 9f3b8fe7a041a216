package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/storefront-api/internal/domain/order"
)

type orderItemResponse struct {
	ProductID int64           `json:"product_id"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

type statusEventResponse struct {
	Status    order.Status `json:"status"`
	Label     string       `json:"label"`
	At        time.Time    `json:"at"`
	UpdatedBy string       `json:"updated_by"`
	Note      string       `json:"note"`
}

type orderResponse struct {
	ID         string                `json:"id"`
	Customer   order.Customer        `json:"customer"`
	Items      []orderItemResponse   `json:"items"`
	Subtotal   decimal.Decimal       `json:"subtotal"`
	Shipping   decimal.Decimal       `json:"shipping"`
	Total      decimal.Decimal       `json:"total"`
	Status     order.Status          `json:"status"`
	StatusMeta statusMeta            `json:"status_meta"`
	History    []statusEventResponse `json:"history"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]orderItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemResponse{
			ProductID: it.ProductID,
			Title:     it.Title,
			Price:     it.Price,
			Quantity:  it.Quantity,
		}
	}
	history := make([]statusEventResponse, len(o.History))
	for i, ev := range o.History {
		history[i] = statusEventResponse{
			Status:    ev.Status,
			Label:     metaFor(ev.Status).Label,
			At:        ev.At,
			UpdatedBy: ev.UpdatedBy,
			Note:      ev.Note,
		}
	}
	return orderResponse{
		ID:         o.ID,
		Customer:   o.Customer,
		Items:      items,
		Subtotal:   o.Subtotal,
		Shipping:   o.Shipping,
		Total:      o.Total,
		Status:     o.Status,
		StatusMeta: metaFor(o.Status),
		History:    history,
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
	}
}

type checkoutRequest struct {
	Customer struct {
		FullName string `json:"full_name"`
		Email    string `json:"email"`
		Address  string `json:"address"`
		Phone    string `json:"phone"`
	} `json:"customer"`
}

// Checkout places an order from the session's cart. The cart is re-validated
// against live stock as part of placement; on success the cart is cleared.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	var req checkoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Customer.FullName == "" || req.Customer.Email == "" || req.Customer.Address == "" {
		writeError(w, r, http.StatusUnprocessableEntity, "full_name, email and address are required")
		return
	}

	lines, err := h.carts.Get(r.Context(), sid)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to load cart")
		return
	}

	o, err := h.orderService.PlaceOrder(r.Context(), order.Customer{
		FullName: req.Customer.FullName,
		Email:    req.Customer.Email,
		Address:  req.Customer.Address,
		Phone:    req.Customer.Phone,
	}, lines)
	if err != nil {
		writeOrderError(w, r, err)
		return
	}

	// The cart served its purpose; losing it here only means a stale cart
	// next visit, so the placement is not failed over it.
	if err := h.carts.Delete(r.Context(), sid); err != nil {
		zctx.From(r.Context()).Warn("Clearing cart after checkout failed",
			zap.String("order_id", o.ID), zap.Error(err))
	}

	writeJSON(w, r, http.StatusCreated, toOrderResponse(o))
}

// TrackOrder returns an order with its history for customer-facing tracking.
func (h *Handler) TrackOrder(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("orderID")

	o, err := h.orderService.GetByOrderID(r.Context(), orderID)
	if err != nil {
		writeOrderError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toOrderResponse(o))
}

// ListOrders returns every order sorted for the admin dashboard: active
// statuses first, newest first within a status. Admin only.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orderService.List(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to list orders")
		return
	}
	order.SortForDisplay(orders)

	out := make([]orderResponse, len(orders))
	for i := range orders {
		out[i] = toOrderResponse(&orders[i])
	}
	writeJSON(w, r, http.StatusOK, out)
}

type updateStatusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

// UpdateOrderStatus transitions an order and appends a history event
// attributed to the authenticated admin key. Admin only.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("orderID")
	var req updateStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	updatedBy := "admin"
	if info := APIKeyFrom(r.Context()); info != nil {
		updatedBy = info.Name
	}

	o, err := h.orderService.UpdateStatus(r.Context(), orderID, order.Status(req.Status), req.Note, updatedBy)
	if err != nil {
		writeOrderError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toOrderResponse(o))
}

// DeleteOrder permanently removes an order, restoring stock unless the order
// completed. Admin only.
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("orderID")

	if err := h.orderService.DeleteOrder(r.Context(), orderID); err != nil {
		writeOrderError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeOrderError maps order domain errors to HTTP responses.
func writeOrderError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, order.ErrEmptyCart):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "order not found")
	default:
		var stockChanged *order.StockChangedError
		if errors.As(err, &stockChanged) {
			writeError(w, r, http.StatusConflict, stockChanged.Error())
			return
		}
		var invalid *order.InvalidTransitionError
		if errors.As(err, &invalid) {
			writeError(w, r, http.StatusConflict, invalid.Error())
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
