package cache

import (
	"context"
	"errors"

	"github.com/fjod/storefront/internal/domain"
)

type CartCache interface {
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	// Set stores cart unless a newer version was invalidated meanwhile.
	Set(ctx context.Context, userID string, cart *domain.Cart) error
	// Invalidate drops the cached cart and records version as the lowest
	// version later Sets may store.
	Invalidate(ctx context.Context, userID string, version int64) error
}

var ErrCacheMiss = errors.New("cache miss")
