package handler

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-api/internal/domain/cart"
	"github.com/xenking/storefront-api/internal/domain/product"
)

// sessionHeader keys the server-side cart of an anonymous shopper.
const sessionHeader = "X-Session-ID"

type cartResponse struct {
	Items       []cart.Line          `json:"items"`
	Subtotal    decimal.Decimal      `json:"subtotal"`
	StockErrors []stockErrorResponse `json:"stock_errors,omitempty"`
	Removed     int                  `json:"removed,omitempty"`
}

type stockErrorResponse struct {
	Kind           cart.ErrorKind `json:"kind"`
	ProductID      int64          `json:"product_id"`
	Title          string         `json:"title"`
	RequestedQty   int            `json:"requested_qty,omitempty"`
	AvailableStock int            `json:"available_stock"`
	Message        string         `json:"message"`
}

func toStockErrorResponses(errs []*cart.StockError) []stockErrorResponse {
	if len(errs) == 0 {
		return nil
	}
	out := make([]stockErrorResponse, len(errs))
	for i, e := range errs {
		out[i] = stockErrorResponse{
			Kind:           e.Kind,
			ProductID:      e.ProductID,
			Title:          e.Title,
			RequestedQty:   e.RequestedQty,
			AvailableStock: e.AvailableStock,
			Message:        e.Error(),
		}
	}
	return out
}

func newCartResponse(lines []cart.Line, stockErrs []*cart.StockError) cartResponse {
	if lines == nil {
		lines = []cart.Line{}
	}
	return cartResponse{
		Items:       lines,
		Subtotal:    cart.Subtotal(lines),
		StockErrors: toStockErrorResponses(stockErrs),
	}
}

// sessionID extracts the cart session key, writing a 400 when absent. The
// boolean is false when a response has already been written.
func sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.Header.Get(sessionHeader)
	if id == "" {
		writeError(w, r, http.StatusBadRequest, "missing "+sessionHeader+" header")
		return "", false
	}
	return id, true
}

// catalogFor fetches the live products referenced by the given lines.
func (h *Handler) catalogFor(ctx context.Context, lines []cart.Line) ([]product.Product, error) {
	if len(lines) == 0 {
		return nil, nil
	}
	ids := make([]int64, len(lines))
	for i, l := range lines {
		ids[i] = l.ProductID
	}
	return h.products.GetByIDs(ctx, ids)
}

// GetCart returns the session's cart together with any stock problems found
// against the live catalog.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}

	lines, err := h.carts.Get(r.Context(), sid)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to load cart")
		return
	}
	catalog, err := h.catalogFor(r.Context(), lines)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to load catalog")
		return
	}
	writeJSON(w, r, http.StatusOK, newCartResponse(lines, cart.Validate(lines, catalog)))
}

type replaceCartRequest struct {
	Items []struct {
		ProductID int64 `json:"product_id"`
		Quantity  int   `json:"quantity"`
	} `json:"items"`
}

// ReplaceCart overwrites the session's cart with the given items, snapshotting
// price and title from the live catalog. Items referencing unknown products
// are kept out of the stored cart and reported as unavailable.
func (h *Handler) ReplaceCart(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	var req replaceCartRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ids := make([]int64, 0, len(req.Items))
	for _, it := range req.Items {
		ids = append(ids, it.ProductID)
	}
	var catalog []product.Product
	if len(ids) > 0 {
		var err error
		catalog, err = h.products.GetByIDs(r.Context(), ids)
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, "failed to load catalog")
			return
		}
	}
	byID := make(map[int64]product.Product, len(catalog))
	for _, p := range catalog {
		byID[p.ID] = p
	}

	lines := make([]cart.Line, 0, len(req.Items))
	var stockErrs []*cart.StockError
	for _, it := range req.Items {
		p, found := byID[it.ProductID]
		if !found {
			stockErrs = append(stockErrs, &cart.StockError{
				Kind:      cart.KindUnavailable,
				ProductID: it.ProductID,
			})
			continue
		}
		if it.Quantity < 1 {
			it.Quantity = 1
		}
		lines = append(lines, cart.Line{
			ProductID: p.ID,
			Quantity:  it.Quantity,
			Price:     p.Price,
			Title:     p.Title,
		})
	}
	stockErrs = append(stockErrs, cart.Validate(lines, catalog)...)

	if err := h.carts.Put(r.Context(), sid, lines); err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to store cart")
		return
	}
	writeJSON(w, r, http.StatusOK, newCartResponse(lines, stockErrs))
}

type addCartItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// AddCartItem puts a product into the cart, merging with an existing line.
// The resulting quantity is clamped to the available stock; a clamp is
// reported alongside the updated cart.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	var req addCartItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ProductID <= 0 {
		writeError(w, r, http.StatusBadRequest, "invalid product id")
		return
	}
	if req.Quantity < 1 {
		req.Quantity = 1
	}

	lines, err := h.carts.Get(r.Context(), sid)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to load cart")
		return
	}
	catalog, err := h.catalogFor(r.Context(), append(lines, cart.Line{ProductID: req.ProductID}))
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to load catalog")
		return
	}

	var stockErr *cart.StockError
	if i := cart.FindLine(lines, req.ProductID); i >= 0 {
		lines, stockErr = cart.AdjustQuantity(lines, req.ProductID, req.Quantity, catalog)
	} else {
		var p *product.Product
		for j := range catalog {
			if catalog[j].ID == req.ProductID {
				p = &catalog[j]
				break
			}
		}
		if p == nil || p.Stock == 0 {
			se := &cart.StockError{Kind: cart.KindUnavailable, ProductID: req.ProductID}
			if p != nil {
				se.Title = p.Title
			}
			writeJSON(w, r, http.StatusConflict, newCartResponse(lines, []*cart.StockError{se}))
			return
		}
		qty := req.Quantity
		if qty > p.Stock {
			stockErr = &cart.StockError{
				Kind:           cart.KindExceeded,
				ProductID:      p.ID,
				Title:          p.Title,
				RequestedQty:   qty,
				AvailableStock: p.Stock,
			}
			qty = p.Stock
		}
		lines = append(lines, cart.Line{
			ProductID: p.ID,
			Quantity:  qty,
			Price:     p.Price,
			Title:     p.Title,
		})
	}

	if err := h.carts.Put(r.Context(), sid, lines); err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to store cart")
		return
	}
	var stockErrs []*cart.StockError
	if stockErr != nil {
		stockErrs = append(stockErrs, stockErr)
	}
	writeJSON(w, r, http.StatusOK, newCartResponse(lines, stockErrs))
}

type adjustCartItemRequest struct {
	Delta int `json:"delta"`
}

// AdjustCartItem applies a relative quantity change to one line, clamped to
// [1, stock]. A clamp is reported alongside the updated cart rather than
// failing the request.
func (h *Handler) AdjustCartItem(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	productID, ok := productIDFromPath(r, "productID")
	if !ok {
		writeError(w, r, http.StatusBadRequest, "invalid product id")
		return
	}
	var req adjustCartItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	lines, err := h.carts.Get(r.Context(), sid)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to load cart")
		return
	}
	if cart.FindLine(lines, productID) < 0 {
		writeError(w, r, http.StatusNotFound, "product not in cart")
		return
	}
	catalog, err := h.catalogFor(r.Context(), lines)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to load catalog")
		return
	}

	adjusted, stockErr := cart.AdjustQuantity(lines, productID, req.Delta, catalog)
	if stockErr != nil && stockErr.Kind == cart.KindUnavailable {
		writeJSON(w, r, http.StatusConflict, newCartResponse(lines, []*cart.StockError{stockErr}))
		return
	}

	if err := h.carts.Put(r.Context(), sid, adjusted); err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to store cart")
		return
	}
	var stockErrs []*cart.StockError
	if stockErr != nil {
		stockErrs = append(stockErrs, stockErr)
	}
	writeJSON(w, r, http.StatusOK, newCartResponse(adjusted, stockErrs))
}

// RepairCart reconciles the cart with the live catalog: quantities above
// stock are clamped, vanished products are dropped. The response reports how
// many lines were removed.
func (h *Handler) RepairCart(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}

	lines, err := h.carts.Get(r.Context(), sid)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to load cart")
		return
	}
	catalog, err := h.catalogFor(r.Context(), lines)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to load catalog")
		return
	}

	repaired, removed := cart.Repair(lines, catalog)
	if err := h.carts.Put(r.Context(), sid, repaired); err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to store cart")
		return
	}

	resp := newCartResponse(repaired, nil)
	resp.Removed = removed
	writeJSON(w, r, http.StatusOK, resp)
}

// ClearCart drops the session's cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	if err := h.carts.Delete(r.Context(), sid); err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to clear cart")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
