package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/view"
	"github.com/go-chi/chi/v5/middleware"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	UserIDHeader = "X-User-ID"
	UserIDCookie = "user_id"
)

type ctxKey int

const ctxKeyUser ctxKey = iota

// UserFinder resolves the identity carried by a request.
type UserFinder interface {
	GetUser(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
}

func withUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, ctxKeyUser, user)
}

func getUserFromContext(ctx context.Context) *domain.User {
	if user, ok := ctx.Value(ctxKeyUser).(*domain.User); ok {
		return user
	}
	return nil
}

var errNoIdentity = fmt.Errorf("missing user identity: %w", domain.ErrUnauthenticated)

// RequireUser loads the user named by the X-User-ID header, or failing that
// the user_id cookie, and stores it in the request context. Requests
// without a known user are answered with 401.
func RequireUser(users UserFinder, renderer view.Renderer, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(UserIDHeader)
			if raw == "" {
				if c, err := r.Cookie(UserIDCookie); err == nil {
					raw = c.Value
				}
			}

			id, err := primitive.ObjectIDFromHex(raw)
			if err != nil {
				respondError(w, r, renderer, logger, errNoIdentity)
				return
			}

			user, err := users.GetUser(r.Context(), id)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					err = fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
				}
				respondError(w, r, renderer, logger, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
		})
	}
}

// MaxBodySize caps how much of a request body handlers may read.
func MaxBodySize(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, n)
			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// RequestLogger writes one access log record per request.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sr, r)
			logger.InfoContext(r.Context(), "http_request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sr.status,
				"bytes", sr.bytes,
				"latency_ms", float64(time.Since(start).Microseconds())/1000.0,
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
