package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fjod/storefront/internal/domain"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestRequireUser(t *testing.T) {
	user := newUser("a@example.com")
	users := &mockUsers{users: map[primitive.ObjectID]*domain.User{user.ID: user}}

	var seen *domain.User
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = getUserFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name       string
		users      *mockUsers
		prepare    func(r *http.Request)
		wantStatus int
		wantUser   bool
	}{
		{"header", users, func(r *http.Request) { r.Header.Set(UserIDHeader, user.ID.Hex()) }, http.StatusNoContent, true},
		{"cookie", users, func(r *http.Request) { r.AddCookie(&http.Cookie{Name: UserIDCookie, Value: user.ID.Hex()}) }, http.StatusNoContent, true},
		{"missing", users, func(*http.Request) {}, http.StatusUnauthorized, false},
		{"malformed", users, func(r *http.Request) { r.Header.Set(UserIDHeader, "nope") }, http.StatusUnauthorized, false},
		{"unknown user", users, func(r *http.Request) { r.Header.Set(UserIDHeader, primitive.NewObjectID().Hex()) }, http.StatusUnauthorized, false},
		{"store failure", &mockUsers{err: errors.New("down")}, func(r *http.Request) { r.Header.Set(UserIDHeader, user.ID.Hex()) }, http.StatusInternalServerError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			renderer := &fakeRenderer{}
			h := RequireUser(tt.users, renderer, discardLogger())(next)

			req := httptest.NewRequest(http.MethodGet, "/cart", nil)
			tt.prepare(req)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantUser {
				assert.Equal(t, user, seen)
			} else {
				assert.Nil(t, seen)
			}
		})
	}
}

func TestMaxBodySize(t *testing.T) {
	var parseErr error
	h := MaxBodySize(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parseErr = r.ParseForm()
	}))

	req := httptest.NewRequest(http.MethodPost, "/cart", strings.NewReader("productId=1234567890"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Error(t, parseErr)
}

func TestRequestLogger_RecordsStatus(t *testing.T) {
	var sb strings.Builder
	logger := newTextLogger(&sb)
	h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/pot", nil))

	out := sb.String()
	assert.Contains(t, out, "status=418")
	assert.Contains(t, out, "bytes=15")
	assert.Contains(t, out, "path=/pot")
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusOf(errPageNotFound))
	assert.Equal(t, http.StatusForbidden, statusOf(domain.ErrForbidden))
	assert.Equal(t, http.StatusBadRequest, statusOf(domain.ErrInvalid))
	assert.Equal(t, http.StatusConflict, statusOf(domain.ErrConflict))
	assert.Equal(t, http.StatusUnauthorized, statusOf(domain.ErrUnauthenticated))
	assert.Equal(t, http.StatusInternalServerError, statusOf(errors.New("boom")))
}
