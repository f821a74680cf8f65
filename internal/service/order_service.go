package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

type OrderRepository interface {
	PlaceOrder(ctx context.Context, order *domain.Order, event *domain.OutboxEvent, cartVersion int64) error
	GetOrder(ctx context.Context, id primitive.ObjectID) (*domain.Order, error)
	ListOrdersByUser(ctx context.Context, userID primitive.ObjectID) ([]*domain.Order, error)
}

type OrderService struct {
	repo   OrderRepository
	carts  *CartService
	logger *slog.Logger
	placed metric.Int64Counter
	now    func() time.Time
}

func NewOrderService(repo OrderRepository, carts *CartService, logger *slog.Logger) *OrderService {
	placed, err := otel.Meter("storefront/orders").Int64Counter("storefront.orders.placed",
		metric.WithDescription("Orders placed successfully"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		logger.Warn("failed to create orders counter", "error", err)
	}

	return &OrderService{
		repo:   repo,
		carts:  carts,
		logger: logger,
		placed: placed,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// PlaceOrder turns the user's current cart into an order. The order, its
// outbox event and the emptied cart are written together; if the cart changes
// between the read here and the write, nothing is written.
func (s *OrderService) PlaceOrder(ctx context.Context, user *domain.User) (*domain.Order, error) {
	cart, err := s.carts.GetFreshCart(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	lines, err := s.carts.Populate(ctx, cart)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		if !cart.IsEmpty() {
			// only lines of deleted products are left; they are invisible
			// on the cart page, so drop them instead of keeping the cart
			// stuck
			if _, err := s.carts.ClearCart(ctx, user.ID); err != nil {
				s.logger.WarnContext(ctx, "failed to clear cart of deleted products",
					"user_id", user.ID.Hex(), "error", err)
			}
		}
		return nil, ErrEmptyCart
	}

	order := &domain.Order{
		ID: primitive.NewObjectID(),
		User: domain.OrderUser{
			Email:  user.Email,
			UserID: user.ID,
		},
		Products:  make([]domain.OrderLine, len(lines)),
		CreatedAt: s.now(),
	}
	for i, line := range lines {
		order.Products[i] = domain.OrderLine{
			Quantity: line.Quantity,
			Product:  domain.SnapshotOf(line.Product),
		}
	}

	event, err := newOrderPlacedEvent(order)
	if err != nil {
		return nil, err
	}

	if err := s.repo.PlaceOrder(ctx, order, event, cart.Version); err != nil {
		return nil, fmt.Errorf("failed to place order: %w", err)
	}

	// the transaction bumped the version once when it cleared the cart
	s.carts.Invalidate(ctx, user.ID, cart.Version+1)
	if s.placed != nil {
		s.placed.Add(ctx, 1)
	}
	s.logger.InfoContext(ctx, "order placed",
		"order_id", order.ID.Hex(), "user_id", user.ID.Hex(), "lines", len(order.Products))

	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, userID primitive.ObjectID) ([]*domain.Order, error) {
	orders, err := s.repo.ListOrdersByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []*domain.Order{}
	}
	return orders, nil
}

// GetOrderForUser loads an order and checks it was placed by userID.
func (s *OrderService) GetOrderForUser(ctx context.Context, orderID, userID primitive.ObjectID) (*domain.Order, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.OwnedBy(userID) {
		return nil, ErrNotOwner
	}
	return order, nil
}

func newOrderPlacedEvent(order *domain.Order) (*domain.OutboxEvent, error) {
	payload := domain.OrderPlacedEvent{
		EventID:  uuid.NewString(),
		OrderID:  order.ID.Hex(),
		UserID:   order.User.UserID.Hex(),
		Email:    order.User.Email,
		Total:    order.Total(),
		Items:    make([]domain.OrderPlacedItem, len(order.Products)),
		PlacedAt: order.CreatedAt,
	}
	for i, line := range order.Products {
		payload.Items[i] = domain.OrderPlacedItem{
			ProductID: line.Product.ID,
			Title:     line.Product.Title,
			Quantity:  line.Quantity,
			UnitPrice: line.Product.Price,
		}
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order event: %w", err)
	}

	return &domain.OutboxEvent{
		ID:          payload.EventID,
		AggregateID: payload.OrderID,
		EventType:   domain.EventTypeOrderPlaced,
		Payload:     payloadJSON,
		CreatedAt:   order.CreatedAt,
	}, nil
}
