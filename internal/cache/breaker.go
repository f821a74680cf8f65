package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/sony/gobreaker/v2"
)

// BreakerCache trips after repeated cache failures and then fails fast with
// gobreaker.ErrOpenState, so a dead Redis costs nothing per request. Misses
// count as successes.
type BreakerCache struct {
	next CartCache
	cb   *gobreaker.CircuitBreaker[*domain.Cart]
}

func NewBreakerCache(next CartCache, logger *slog.Logger) *BreakerCache {
	settings := gobreaker.Settings{
		Name:        "cart-cache",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrCacheMiss)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	}
	return &BreakerCache{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[*domain.Cart](settings),
	}
}

func (b *BreakerCache) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	return b.cb.Execute(func() (*domain.Cart, error) {
		return b.next.Get(ctx, userID)
	})
}

func (b *BreakerCache) Set(ctx context.Context, userID string, cart *domain.Cart) error {
	_, err := b.cb.Execute(func() (*domain.Cart, error) {
		return nil, b.next.Set(ctx, userID, cart)
	})
	return err
}

// Invalidate bypasses the breaker: a skipped invalidation would serve a stale
// cart once the breaker closes again.
func (b *BreakerCache) Invalidate(ctx context.Context, userID string, version int64) error {
	return b.next.Invalidate(ctx, userID, version)
}

func (b *BreakerCache) State() gobreaker.State {
	return b.cb.State()
}
