package service

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/fjod/storefront/internal/cache"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockProducts struct {
	products map[int64]*domain.Product
	err      error
}

func (m *mockProducts) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return p, nil
}

func (m *mockProducts) GetProductsByIDs(_ context.Context, ids []int64) (map[int64]*domain.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[int64]*domain.Product)
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

// mockCarts keeps carts in memory with the same semantics as the Mongo
// repository: add increments by one, every mutation bumps the version.
type mockCarts struct {
	m     sync.Mutex
	carts map[primitive.ObjectID]*domain.Cart
	err   error
	reads int
}

func newMockCarts() *mockCarts {
	return &mockCarts{carts: make(map[primitive.ObjectID]*domain.Cart)}
}

func (m *mockCarts) cartLocked(userID primitive.ObjectID) *domain.Cart {
	c, ok := m.carts[userID]
	if !ok {
		c = &domain.Cart{UserID: userID.Hex(), Items: []domain.CartItem{}}
		m.carts[userID] = c
	}
	return c
}

func (m *mockCarts) snapshot(c *domain.Cart) *domain.Cart {
	cp := *c
	cp.Items = append([]domain.CartItem{}, c.Items...)
	return &cp
}

func (m *mockCarts) GetCart(_ context.Context, userID primitive.ObjectID) (*domain.Cart, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.reads++
	if m.err != nil {
		return nil, m.err
	}
	return m.snapshot(m.cartLocked(userID)), nil
}

func (m *mockCarts) AddItem(_ context.Context, userID primitive.ObjectID, productID int64) (*domain.Cart, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	c := m.cartLocked(userID)
	c.Version++
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity++
			return m.snapshot(c), nil
		}
	}
	c.Items = append(c.Items, domain.CartItem{ProductID: productID, Quantity: 1})
	return m.snapshot(c), nil
}

func (m *mockCarts) RemoveItem(_ context.Context, userID primitive.ObjectID, productID int64) (*domain.Cart, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	c := m.cartLocked(userID)
	c.Version++
	for i, item := range c.Items {
		if item.ProductID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			break
		}
	}
	return m.snapshot(c), nil
}

func (m *mockCarts) ClearCart(_ context.Context, userID primitive.ObjectID) (*domain.Cart, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	c := m.cartLocked(userID)
	c.Version++
	c.Items = []domain.CartItem{}
	return m.snapshot(c), nil
}

// mockCache follows the RedisCache contract: Set is ignored for versions
// below the last invalidated one.
type mockCache struct {
	m      sync.RWMutex
	carts  map[string]*domain.Cart
	floors map[string]int64
	err    error
}

func newMockCache() *mockCache {
	return &mockCache{
		carts:  make(map[string]*domain.Cart),
		floors: make(map[string]int64),
	}
}

func (m *mockCache) Get(_ context.Context, userID string) (*domain.Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.carts[userID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return c, nil
}

func (m *mockCache) Set(_ context.Context, userID string, cart *domain.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	if floor, ok := m.floors[userID]; ok && cart.Version < floor {
		return m.err
	}
	m.carts[userID] = cart
	return m.err
}

func (m *mockCache) Invalidate(_ context.Context, userID string, version int64) error {
	m.m.Lock()
	defer m.m.Unlock()
	if floor, ok := m.floors[userID]; !ok || version > floor {
		m.floors[userID] = version
	}
	delete(m.carts, userID)
	return m.err
}

func (m *mockCache) has(userID string) bool {
	m.m.RLock()
	defer m.m.RUnlock()
	_, ok := m.carts[userID]
	return ok
}

// mockOrders commits orders against mockCarts the way the transactional
// repository does: version check, clear, insert.
type mockOrders struct {
	m      sync.Mutex
	carts  *mockCarts
	orders []*domain.Order
	events []*domain.OutboxEvent
	err    error
}

func (m *mockOrders) PlaceOrder(_ context.Context, order *domain.Order, event *domain.OutboxEvent, cartVersion int64) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}

	m.carts.m.Lock()
	defer m.carts.m.Unlock()
	c := m.carts.cartLocked(order.User.UserID)
	if c.Version != cartVersion {
		return repository.ErrCartChanged
	}
	c.Items = []domain.CartItem{}
	c.Version++

	m.orders = append(m.orders, order)
	if event != nil {
		m.events = append(m.events, event)
	}
	return nil
}

func (m *mockOrders) GetOrder(_ context.Context, id primitive.ObjectID) (*domain.Order, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, o := range m.orders {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (m *mockOrders) ListOrdersByUser(_ context.Context, userID primitive.ObjectID) ([]*domain.Order, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []*domain.Order
	for i := len(m.orders) - 1; i >= 0; i-- {
		if m.orders[i].OwnedBy(userID) {
			out = append(out, m.orders[i])
		}
	}
	return out, nil
}

// parkedCarts blocks the next GetCart after it has loaded the cart, so a test
// can run a mutation while a cache-miss read is in flight.
type parkedCarts struct {
	*mockCarts
	loaded  chan struct{}
	release chan struct{}
	once    sync.Once
}

func newParkedCarts(inner *mockCarts) *parkedCarts {
	return &parkedCarts{
		mockCarts: inner,
		loaded:    make(chan struct{}),
		release:   make(chan struct{}),
	}
}

func (p *parkedCarts) GetCart(ctx context.Context, userID primitive.ObjectID) (*domain.Cart, error) {
	cart, err := p.mockCarts.GetCart(ctx, userID)
	park := false
	p.once.Do(func() { park = true })
	if park {
		close(p.loaded)
		<-p.release
	}
	return cart, err
}
