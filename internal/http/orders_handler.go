package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/invoice"
	"github.com/fjod/storefront/internal/repository"
	"github.com/fjod/storefront/internal/view"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

type OrderManager interface {
	PlaceOrder(ctx context.Context, user *domain.User) (*domain.Order, error)
	ListOrders(ctx context.Context, userID primitive.ObjectID) ([]*domain.Order, error)
	GetOrderForUser(ctx context.Context, orderID, userID primitive.ObjectID) (*domain.Order, error)
}

type InvoiceOpener interface {
	Open(orderID string) (*invoice.File, error)
}

type OrdersHandler struct {
	orders       OrderManager
	invoices     InvoiceOpener
	view         view.Renderer
	logger       *slog.Logger
	timeout      time.Duration
	invoiceBytes metric.Int64Counter
}

func NewOrdersHandler(orders OrderManager, invoices InvoiceOpener, renderer view.Renderer, logger *slog.Logger, timeout time.Duration) *OrdersHandler {
	invoiceBytes, err := otel.Meter("storefront/http").Int64Counter("storefront.invoice.bytes",
		metric.WithDescription("Invoice bytes streamed to clients"),
		metric.WithUnit("By"),
	)
	if err != nil {
		logger.Warn("failed to create invoice bytes counter", "error", err)
	}

	return &OrdersHandler{
		orders:       orders,
		invoices:     invoices,
		view:         renderer,
		logger:       logger,
		timeout:      timeout,
		invoiceBytes: invoiceBytes,
	}
}

func (h *OrdersHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user := getUserFromContext(r.Context())
	if user == nil {
		respondError(w, r, h.view, h.logger, domain.ErrUnauthenticated)
		return
	}

	if _, err := h.orders.PlaceOrder(ctx, user); err != nil {
		respondError(w, r, h.view, h.logger, err)
		return
	}

	http.Redirect(w, r, "/orders", http.StatusFound)
}

func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user := getUserFromContext(r.Context())
	if user == nil {
		respondError(w, r, h.view, h.logger, domain.ErrUnauthenticated)
		return
	}

	orders, err := h.orders.ListOrders(ctx, user.ID)
	if err != nil {
		respondError(w, r, h.view, h.logger, err)
		return
	}

	render(w, r, h.view, h.logger, view.Orders, view.Page{Title: "Your Orders", Path: "/orders", Data: orders})
}

// GetInvoice streams the invoice PDF of one of the user's orders. Nothing is
// written before ownership is checked and the file is open.
func (h *OrdersHandler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user := getUserFromContext(r.Context())
	if user == nil {
		respondError(w, r, h.view, h.logger, domain.ErrUnauthenticated)
		return
	}

	orderID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "orderId"))
	if err != nil {
		respondError(w, r, h.view, h.logger, repository.ErrOrderNotFound)
		return
	}

	order, err := h.orders.GetOrderForUser(ctx, orderID, user.ID)
	if err != nil {
		respondError(w, r, h.view, h.logger, err)
		return
	}

	f, err := h.invoices.Open(order.ID.Hex())
	if err != nil {
		respondError(w, r, h.view, h.logger, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="`+f.Name+`"`)
	w.Header().Set("Content-Length", strconv.FormatInt(f.Size, 10))
	w.WriteHeader(http.StatusOK)

	n, err := io.Copy(w, f)
	if h.invoiceBytes != nil {
		h.invoiceBytes.Add(ctx, n)
	}
	if err != nil {
		// headers are gone, the client sees a truncated body
		h.logger.WarnContext(ctx, "invoice stream interrupted",
			"order_id", order.ID.Hex(), "written", n, "error", err)
	}
}
