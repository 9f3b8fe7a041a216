// Package handler exposes the storefront over JSON HTTP: a public surface for
// browsing, carts, checkout and order tracking, and an API-key-guarded admin
// surface for catalog and order management.
package handler

import (
	"net/http"

	"github.com/xenking/storefront-api/internal/domain/auth"
	"github.com/xenking/storefront-api/internal/domain/cart"
	"github.com/xenking/storefront-api/internal/domain/order"
	"github.com/xenking/storefront-api/internal/domain/product"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths in product responses.
	// When empty, image paths are returned as stored in the database.
	ImageBaseURL string
}

// Handler serves the storefront API, delegating business logic to the order
// service and the domain stores.
type Handler struct {
	products     product.Repository
	carts        cart.Store
	orderService *order.Service
	imageBaseURL string
}

// New constructs a Handler with the required domain dependencies.
func New(
	cfg Config,
	products product.Repository,
	carts cart.Store,
	orderService *order.Service,
) *Handler {
	return &Handler{
		products:     products,
		carts:        carts,
		orderService: orderService,
		imageBaseURL: cfg.ImageBaseURL,
	}
}

// Register mounts every route on mux. Admin routes are wrapped with the
// security middleware; public routes are open.
func (h *Handler) Register(mux *http.ServeMux, sec *Security) {
	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("GET /api/products/{id}", h.GetProduct)

	mux.HandleFunc("GET /api/cart", h.GetCart)
	mux.HandleFunc("POST /api/cart", h.ReplaceCart)
	mux.HandleFunc("DELETE /api/cart", h.ClearCart)
	mux.HandleFunc("POST /api/cart/items", h.AddCartItem)
	mux.HandleFunc("PATCH /api/cart/items/{productID}", h.AdjustCartItem)
	mux.HandleFunc("POST /api/cart/repair", h.RepairCart)

	mux.HandleFunc("POST /api/checkout", h.Checkout)
	mux.HandleFunc("GET /api/orders/{orderID}", h.TrackOrder)

	admin := func(fn http.HandlerFunc) http.Handler {
		return sec.RequireAPIKey(auth.ScopeManageStore, fn)
	}
	mux.Handle("POST /api/admin/products", admin(h.CreateProduct))
	mux.Handle("PUT /api/admin/products/{id}", admin(h.UpdateProduct))
	mux.Handle("DELETE /api/admin/products/{id}", admin(h.DeleteProduct))
	mux.Handle("GET /api/admin/orders", admin(h.ListOrders))
	mux.Handle("PATCH /api/admin/orders/{orderID}/status", admin(h.UpdateOrderStatus))
	mux.Handle("DELETE /api/admin/orders/{orderID}", admin(h.DeleteOrder))
}
