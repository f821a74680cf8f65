package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/repository"
	"github.com/fjod/storefront/internal/service"
	"github.com/fjod/storefront/internal/view"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRenderer records the last view rendered instead of executing templates.
type fakeRenderer struct {
	calls  int
	name   string
	status int
	page   view.Page
	err    error
}

func (f *fakeRenderer) Render(w http.ResponseWriter, status int, name string, page view.Page) error {
	f.calls++
	f.name, f.status, f.page = name, status, page
	if errors.Is(f.err, view.ErrResponseWritten) {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, "<partial")
		return f.err
	}
	if f.err != nil {
		return f.err
	}
	w.WriteHeader(status)
	_, _ = io.WriteString(w, "<"+name+">")
	return nil
}

type mockProducts struct {
	products []*domain.Product
	err      error
}

func (m *mockProducts) GetAllProducts(context.Context) ([]*domain.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.products, nil
}

func (m *mockProducts) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, p := range m.products {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, repository.ErrProductNotFound
}

type mockCarts struct {
	lines   []domain.CartLine
	added   []int64
	removed []int64
	err     error
}

func (m *mockCarts) GetCartLines(context.Context, primitive.ObjectID) ([]domain.CartLine, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.lines, nil
}

func (m *mockCarts) AddToCart(_ context.Context, _ primitive.ObjectID, productID int64) (*domain.Cart, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.added = append(m.added, productID)
	return &domain.Cart{}, nil
}

func (m *mockCarts) RemoveFromCart(_ context.Context, _ primitive.ObjectID, productID int64) (*domain.Cart, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.removed = append(m.removed, productID)
	return &domain.Cart{}, nil
}

type mockOrders struct {
	orders []*domain.Order
	placed int
	err    error
}

func (m *mockOrders) PlaceOrder(_ context.Context, user *domain.User) (*domain.Order, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.placed++
	return &domain.Order{ID: primitive.NewObjectID(), User: domain.OrderUser{UserID: user.ID}}, nil
}

func (m *mockOrders) ListOrders(_ context.Context, userID primitive.ObjectID) ([]*domain.Order, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := []*domain.Order{}
	for _, o := range m.orders {
		if o.OwnedBy(userID) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *mockOrders) GetOrderForUser(_ context.Context, orderID, userID primitive.ObjectID) (*domain.Order, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, o := range m.orders {
		if o.ID == orderID {
			if !o.OwnedBy(userID) {
				return nil, service.ErrNotOwner
			}
			return o, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

type mockUsers struct {
	users map[primitive.ObjectID]*domain.User
	err   error
}

func (m *mockUsers) GetUser(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrUserNotFound
}

func newUser(email string) *domain.User {
	return &domain.User{ID: primitive.NewObjectID(), Email: email}
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func asUser(r *http.Request, user *domain.User) *http.Request {
	return r.WithContext(withUser(r.Context(), user))
}

func formRequest(target string, values url.Values) *http.Request {
	r, _ := http.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

func newTextLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, nil))
}
