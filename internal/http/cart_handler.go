package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/view"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CartManager interface {
	GetCartLines(ctx context.Context, userID primitive.ObjectID) ([]domain.CartLine, error)
	AddToCart(ctx context.Context, userID primitive.ObjectID, productID int64) (*domain.Cart, error)
	RemoveFromCart(ctx context.Context, userID primitive.ObjectID, productID int64) (*domain.Cart, error)
}

type CartHandler struct {
	carts   CartManager
	view    view.Renderer
	logger  *slog.Logger
	timeout time.Duration
}

func NewCartHandler(carts CartManager, renderer view.Renderer, logger *slog.Logger, timeout time.Duration) *CartHandler {
	return &CartHandler{
		carts:   carts,
		view:    renderer,
		logger:  logger,
		timeout: timeout,
	}
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user := getUserFromContext(r.Context())
	if user == nil {
		respondError(w, r, h.view, h.logger, domain.ErrUnauthenticated)
		return
	}

	lines, err := h.carts.GetCartLines(ctx, user.ID)
	if err != nil {
		respondError(w, r, h.view, h.logger, err)
		return
	}

	render(w, r, h.view, h.logger, view.Cart, view.Page{Title: "Your Cart", Path: "/cart", Data: lines})
}

func (h *CartHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user := getUserFromContext(r.Context())
	if user == nil {
		respondError(w, r, h.view, h.logger, domain.ErrUnauthenticated)
		return
	}

	productID, err := formProductID(r)
	if err != nil {
		respondError(w, r, h.view, h.logger, err)
		return
	}

	if _, err := h.carts.AddToCart(ctx, user.ID, productID); err != nil {
		respondError(w, r, h.view, h.logger, err)
		return
	}

	http.Redirect(w, r, "/cart", http.StatusFound)
}

func (h *CartHandler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user := getUserFromContext(r.Context())
	if user == nil {
		respondError(w, r, h.view, h.logger, domain.ErrUnauthenticated)
		return
	}

	productID, err := formProductID(r)
	if err != nil {
		respondError(w, r, h.view, h.logger, err)
		return
	}

	if _, err := h.carts.RemoveFromCart(ctx, user.ID, productID); err != nil {
		respondError(w, r, h.view, h.logger, err)
		return
	}

	http.Redirect(w, r, "/cart", http.StatusFound)
}

func formProductID(r *http.Request) (int64, error) {
	if err := r.ParseForm(); err != nil {
		return 0, fmt.Errorf("failed to parse form: %w: %w", domain.ErrInvalid, err)
	}
	productID, err := strconv.ParseInt(r.PostForm.Get("productId"), 10, 64)
	if err != nil || productID <= 0 {
		return 0, fmt.Errorf("productId must be a positive integer: %w", domain.ErrInvalid)
	}
	return productID, nil
}
