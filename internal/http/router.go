package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/storefront/internal/view"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterConfig struct {
	Products *ProductHandler
	Carts    *CartHandler
	Orders   *OrdersHandler
	Users    UserFinder
	View     view.Renderer
	Logger   *slog.Logger

	// Metrics serves /metrics when set.
	Metrics            http.Handler
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(MaxBodySize(cfg.MaxRequestBodySize))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Get("/", cfg.Products.Index)
	r.Get("/products", cfg.Products.ListProducts)
	r.Get("/products/{productId}", cfg.Products.GetProduct)

	r.Group(func(r chi.Router) {
		r.Use(RequireUser(cfg.Users, cfg.View, cfg.Logger))

		r.Get("/cart", cfg.Carts.GetCart)
		r.Post("/cart", cfg.Carts.AddToCart)
		r.Post("/cart-delete-item", cfg.Carts.RemoveFromCart)
		r.Post("/create-order", cfg.Orders.PlaceOrder)
		r.Get("/orders", cfg.Orders.ListOrders)
		r.Get("/orders/{orderId}", cfg.Orders.GetInvoice)
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		respondError(w, req, cfg.View, cfg.Logger, errPageNotFound)
	})

	return otelhttp.NewHandler(r, "storefront")
}
