package repository

import (
	"context"
	"fmt"

	"github.com/fjod/storefront/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrProductNotFound = fmt.Errorf("product %w", domain.ErrNotFound)
	ErrUserNotFound    = fmt.Errorf("user %w", domain.ErrNotFound)
	ErrOrderNotFound   = fmt.Errorf("order %w", domain.ErrNotFound)
	ErrCartChanged     = fmt.Errorf("cart changed during checkout: %w", domain.ErrConflict)
)

// ProductRepository is the read side of the catalog. CreateProduct exists for
// seeding; the storefront never writes products.
type ProductRepository interface {
	GetAllProducts(ctx context.Context) ([]*domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	GetProductsByIDs(ctx context.Context, ids []int64) (map[int64]*domain.Product, error)
	CreateProduct(ctx context.Context, p *domain.Product) error
}

// UserRepository owns the user documents and the carts embedded in them.
// Every cart mutation returns the cart as stored after the write.
type UserRepository interface {
	GetUser(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	CreateUser(ctx context.Context, email string) (*domain.User, error)
	GetCart(ctx context.Context, userID primitive.ObjectID) (*domain.Cart, error)
	AddItem(ctx context.Context, userID primitive.ObjectID, productID int64) (*domain.Cart, error)
	RemoveItem(ctx context.Context, userID primitive.ObjectID, productID int64) (*domain.Cart, error)
	ClearCart(ctx context.Context, userID primitive.ObjectID) (*domain.Cart, error)
}

type OrderRepository interface {
	// PlaceOrder stores the order and its outbox event and empties the
	// buyer's cart in one transaction. It fails with ErrCartChanged when the
	// cart no longer has cartVersion.
	PlaceOrder(ctx context.Context, order *domain.Order, event *domain.OutboxEvent, cartVersion int64) error
	GetOrder(ctx context.Context, id primitive.ObjectID) (*domain.Order, error)
	ListOrdersByUser(ctx context.Context, userID primitive.ObjectID) ([]*domain.Order, error)
}

type OutboxRepository interface {
	GetUnpublishedEvents(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkEventPublished(ctx context.Context, id string) error
}
