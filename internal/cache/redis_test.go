package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/storefront/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis server and returns a RedisCache instance
func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })

	return NewRedisCache(client), mr
}

func TestGet_Success(t *testing.T) {
	cache, mr := setupTestRedis(t)
	userID := "user123"

	cart := &domain.Cart{
		UserID: userID,
		Items: []domain.CartItem{
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 3},
		},
		Version: 4,
	}
	cartJSON, _ := json.Marshal(cart)
	require.NoError(t, mr.Set(cacheKey(userID), string(cartJSON)))

	result, err := cache.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, userID, result.UserID)
	assert.Len(t, result.Items, 2)
	assert.Equal(t, int64(1), result.Items[0].ProductID)
	assert.Equal(t, int64(4), result.Version)
}

func TestGet_CacheMiss(t *testing.T) {
	cache, _ := setupTestRedis(t)

	result, err := cache.Get(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Nil(t, result)
}

func TestGet_InvalidJSON(t *testing.T) {
	cache, mr := setupTestRedis(t)
	userID := "user123"

	require.NoError(t, mr.Set(cacheKey(userID), `{"user_id":`))

	_, err := cache.Get(context.Background(), userID)
	require.ErrorContains(t, err, "unmarshal cart failed")
}

func TestGet_ServerDown(t *testing.T) {
	cache, mr := setupTestRedis(t)
	mr.Close()

	_, err := cache.Get(context.Background(), "user123")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestSet_WithTTL(t *testing.T) {
	cache, mr := setupTestRedis(t)
	userID := "user789"

	cart := &domain.Cart{
		UserID: userID,
		Items:  []domain.CartItem{{ProductID: 10, Quantity: 5}},
	}
	require.NoError(t, cache.Set(context.Background(), userID, cart))

	stored, err := mr.Get(cacheKey(userID))
	require.NoError(t, err)

	var storedCart domain.Cart
	require.NoError(t, json.Unmarshal([]byte(stored), &storedCart))
	assert.Equal(t, userID, storedCart.UserID)
	assert.Len(t, storedCart.Items, 1)

	ttl := mr.TTL(cacheKey(userID))
	assert.True(t, ttl >= 15*time.Minute, "TTL should be at least base TTL")
	assert.True(t, ttl < 20*time.Minute, "TTL should be base + max jitter")
}

func TestInvalidate_DropsEntry(t *testing.T) {
	cache, mr := setupTestRedis(t)
	userID := "user999"

	require.NoError(t, mr.Set(cacheKey(userID), `{}`))
	require.NoError(t, cache.Invalidate(context.Background(), userID, 3))
	assert.False(t, mr.Exists(cacheKey(userID)))

	floor, err := mr.Get(floorKey(userID))
	require.NoError(t, err)
	assert.Equal(t, "3", floor)
	assert.True(t, mr.TTL(floorKey(userID)) > 20*time.Minute, "floor must outlive any cart entry")

	// invalidating a missing key is not an error
	assert.NoError(t, cache.Invalidate(context.Background(), "nonexistent", 0))
}

func TestSet_SkipsVersionOlderThanInvalidation(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()
	userID := "user42"

	require.NoError(t, cache.Invalidate(ctx, userID, 5))

	stale := &domain.Cart{UserID: userID, Version: 4}
	require.NoError(t, cache.Set(ctx, userID, stale))
	assert.False(t, mr.Exists(cacheKey(userID)), "a cart read before the mutation must not be cached")

	current := &domain.Cart{UserID: userID, Items: []domain.CartItem{{ProductID: 1, Quantity: 1}}, Version: 5}
	require.NoError(t, cache.Set(ctx, userID, current))

	got, err := cache.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.Version)
}

func TestInvalidate_FloorNeverMovesDown(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()
	userID := "user43"

	require.NoError(t, cache.Invalidate(ctx, userID, 7))
	require.NoError(t, cache.Invalidate(ctx, userID, 6))

	floor, err := mr.Get(floorKey(userID))
	require.NoError(t, err)
	assert.Equal(t, "7", floor)

	require.NoError(t, cache.Set(ctx, userID, &domain.Cart{UserID: userID, Version: 6}))
	assert.False(t, mr.Exists(cacheKey(userID)))
}

func TestCacheKey_Format(t *testing.T) {
	assert.Equal(t, "cart:test123", cacheKey("test123"))
	assert.Equal(t, "cart:test123:v", floorKey("test123"))
}
