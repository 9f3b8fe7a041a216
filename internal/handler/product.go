package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-api/internal/domain/product"
)

type productResponse struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Image       string          `json:"image"`
}

type productRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Image       string          `json:"image"`
}

func (h *Handler) toProductResponse(p product.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		Image:       h.imageURL(p.Image),
	}
}

// imageURL prepends the configured base URL to relative image paths.
func (h *Handler) imageURL(image string) string {
	if h.imageBaseURL == "" || image == "" || strings.Contains(image, "://") {
		return image
	}
	return strings.TrimSuffix(h.imageBaseURL, "/") + "/" + strings.TrimPrefix(image, "/")
}

func productIDFromPath(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	return id, err == nil && id > 0
}

// ListProducts returns the whole catalog.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to list products")
		return
	}

	out := make([]productResponse, len(products))
	for i, p := range products {
		out[i] = h.toProductResponse(p)
	}
	writeJSON(w, r, http.StatusOK, out)
}

// GetProduct returns a single product by ID.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDFromPath(r, "id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, "invalid product id")
		return
	}

	p, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "product not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "failed to get product")
		return
	}
	writeJSON(w, r, http.StatusOK, h.toProductResponse(*p))
}

// CreateProduct adds a catalog entry. Admin only.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Title == "" || req.Price.IsNegative() || req.Stock < 0 {
		writeError(w, r, http.StatusUnprocessableEntity, "title is required; price and stock must not be negative")
		return
	}

	p := product.Product{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Image:       req.Image,
	}
	if err := h.products.Create(r.Context(), &p); err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to create product")
		return
	}
	writeJSON(w, r, http.StatusCreated, h.toProductResponse(p))
}

// UpdateProduct replaces every mutable field of a product. Admin only.
// Concurrent updates are last-write-wins.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDFromPath(r, "id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, "invalid product id")
		return
	}

	var req productRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Title == "" || req.Price.IsNegative() || req.Stock < 0 {
		writeError(w, r, http.StatusUnprocessableEntity, "title is required; price and stock must not be negative")
		return
	}

	p := product.Product{
		ID:          id,
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Image:       req.Image,
	}
	if err := h.products.Update(r.Context(), &p); err != nil {
		if errors.Is(err, product.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "product not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "failed to update product")
		return
	}
	writeJSON(w, r, http.StatusOK, h.toProductResponse(p))
}

// DeleteProduct removes a product from the catalog. Admin only.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDFromPath(r, "id")
	if !ok {
		writeError(w, r, http.StatusBadRequest, "invalid product id")
		return
	}

	if err := h.products.Delete(r.Context(), id); err != nil {
		if errors.Is(err, product.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "product not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "failed to delete product")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
