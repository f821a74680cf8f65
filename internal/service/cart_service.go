package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/storefront/internal/cache"
	"github.com/fjod/storefront/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/singleflight"
)

// ProductReader is the part of the catalog the cart needs.
type ProductReader interface {
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	GetProductsByIDs(ctx context.Context, ids []int64) (map[int64]*domain.Product, error)
}

type CartRepository interface {
	GetCart(ctx context.Context, userID primitive.ObjectID) (*domain.Cart, error)
	AddItem(ctx context.Context, userID primitive.ObjectID, productID int64) (*domain.Cart, error)
	RemoveItem(ctx context.Context, userID primitive.ObjectID, productID int64) (*domain.Cart, error)
	ClearCart(ctx context.Context, userID primitive.ObjectID) (*domain.Cart, error)
}

// CartService is the explicit cart capability: every operation takes the
// user id and returns the cart as stored after the operation.
type CartService struct {
	repo     CartRepository
	products ProductReader
	cache    cache.CartCache
	logger   *slog.Logger
	sfg      singleflight.Group // Prevents cache stampede
}

func NewCartService(repo CartRepository, products ProductReader, cache cache.CartCache, logger *slog.Logger) *CartService {
	return &CartService{
		repo:     repo,
		products: products,
		cache:    cache,
		logger:   logger,
	}
}

func (s *CartService) GetCart(ctx context.Context, userID primitive.ObjectID) (*domain.Cart, error) {
	key := userID.Hex()
	v, err, _ := s.sfg.Do(key, func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, key)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.WarnContext(ctx, "cache get error", "user_id", key, "error", err)
		}

		cart, err = s.repo.GetCart(ctx, userID)
		if err != nil {
			return nil, err
		}

		if err := s.cache.Set(ctx, key, cart); err != nil {
			s.logger.WarnContext(ctx, "cache set error", "user_id", key, "error", err)
		}
		return cart, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*domain.Cart), nil
}

// GetFreshCart reads the cart from the store, bypassing the cache.
func (s *CartService) GetFreshCart(ctx context.Context, userID primitive.ObjectID) (*domain.Cart, error) {
	return s.repo.GetCart(ctx, userID)
}

// AddToCart adds one unit of productID. The product must exist.
func (s *CartService) AddToCart(ctx context.Context, userID primitive.ObjectID, productID int64) (*domain.Cart, error) {
	if _, err := s.products.GetProduct(ctx, productID); err != nil {
		return nil, err
	}

	cart, err := s.repo.AddItem(ctx, userID, productID)
	if err != nil {
		return nil, err
	}

	s.Invalidate(ctx, userID, cart.Version)
	return cart, nil
}

func (s *CartService) RemoveFromCart(ctx context.Context, userID primitive.ObjectID, productID int64) (*domain.Cart, error) {
	cart, err := s.repo.RemoveItem(ctx, userID, productID)
	if err != nil {
		return nil, err
	}

	s.Invalidate(ctx, userID, cart.Version)
	return cart, nil
}

func (s *CartService) ClearCart(ctx context.Context, userID primitive.ObjectID) (*domain.Cart, error) {
	cart, err := s.repo.ClearCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.Invalidate(ctx, userID, cart.Version)
	return cart, nil
}

// Populate resolves the product references of the cart. Lines pointing at a
// product that no longer exists are dropped.
func (s *CartService) Populate(ctx context.Context, cart *domain.Cart) ([]domain.CartLine, error) {
	if cart.IsEmpty() {
		return []domain.CartLine{}, nil
	}

	ids := make([]int64, len(cart.Items))
	for i, item := range cart.Items {
		ids[i] = item.ProductID
	}

	products, err := s.products.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cart products: %w", err)
	}

	lines := make([]domain.CartLine, 0, len(cart.Items))
	for _, item := range cart.Items {
		p, ok := products[item.ProductID]
		if !ok {
			s.logger.WarnContext(ctx, "cart references missing product",
				"user_id", cart.UserID, "product_id", item.ProductID)
			continue
		}
		lines = append(lines, domain.CartLine{Product: p, Quantity: item.Quantity})
	}
	return lines, nil
}

// GetCartLines is GetCart followed by Populate.
func (s *CartService) GetCartLines(ctx context.Context, userID primitive.ObjectID) ([]domain.CartLine, error) {
	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.Populate(ctx, cart)
}

// Invalidate drops the cached cart after a mutation that produced version.
// Reads that loaded an older version can no longer cache it. It runs on its
// own short deadline so a cancelled request still invalidates.
func (s *CartService) Invalidate(ctx context.Context, userID primitive.ObjectID, version int64) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := s.cache.Invalidate(ctx, userID.Hex(), version); err != nil {
		s.logger.WarnContext(ctx, "cache invalidate error", "user_id", userID.Hex(), "error", err)
	}
}
