package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/repository"
	"github.com/fjod/storefront/internal/view"
	"github.com/go-chi/chi/v5"
)

type ProductLister interface {
	GetAllProducts(ctx context.Context) ([]*domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
}

type ProductHandler struct {
	products ProductLister
	view     view.Renderer
	logger   *slog.Logger
	timeout  time.Duration
}

func NewProductHandler(products ProductLister, renderer view.Renderer, logger *slog.Logger, timeout time.Duration) *ProductHandler {
	return &ProductHandler{
		products: products,
		view:     renderer,
		logger:   logger,
		timeout:  timeout,
	}
}

func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	h.renderAll(w, r, view.ProductList, "All Products", "/products")
}

func (h *ProductHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.renderAll(w, r, view.Index, "Shop", "/")
}

func (h *ProductHandler) renderAll(w http.ResponseWriter, r *http.Request, name, title, path string) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.products.GetAllProducts(ctx)
	if err != nil {
		respondError(w, r, h.view, h.logger, err)
		return
	}

	render(w, r, h.view, h.logger, name, view.Page{Title: title, Path: path, Data: products})
}

// GetProduct renders one product. An id that is not a number cannot name a
// product, so it gets the same 404 as an unknown one.
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, err := strconv.ParseInt(chi.URLParam(r, "productId"), 10, 64)
	if err != nil || productID <= 0 {
		respondError(w, r, h.view, h.logger, repository.ErrProductNotFound)
		return
	}

	product, err := h.products.GetProduct(ctx, productID)
	if err != nil {
		respondError(w, r, h.view, h.logger, err)
		return
	}

	render(w, r, h.view, h.logger, view.ProductDetail, view.Page{Title: product.Title, Path: "/products", Data: product})
}
