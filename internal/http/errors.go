package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/view"
)

// statusOf picks the response status for an error by its kind.
func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

var errorMessages = map[int]string{
	http.StatusNotFound:            "Page Not Found",
	http.StatusForbidden:           "You are not allowed to access this page.",
	http.StatusBadRequest:          "The request could not be processed.",
	http.StatusConflict:            "Your cart changed while placing the order. Please review it and try again.",
	http.StatusUnauthorized:        "Please identify yourself to continue.",
	http.StatusInternalServerError: "Something went wrong. Please try again later.",
}

// respondError is the single error boundary of the shop. The cause is only
// logged; the page tells the user what kind of failure happened.
func respondError(w http.ResponseWriter, r *http.Request, renderer view.Renderer, logger *slog.Logger, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		logger.InfoContext(r.Context(), "request rejected",
			"method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}

	msg := errorMessages[status]
	page := view.Page{
		Title: http.StatusText(status),
		Path:  r.URL.Path,
		Data:  view.ErrorData{Status: status, Message: msg},
	}
	if status == http.StatusNotFound {
		page.Title = msg
	}

	if rerr := renderer.Render(w, status, view.Error, page); rerr != nil {
		logger.ErrorContext(r.Context(), "failed to render error page", "error", rerr)
		if !errors.Is(rerr, view.ErrResponseWritten) {
			http.Error(w, msg, status)
		}
	}
}

// render writes a view and routes a render failure through respondError.
// Once the page started going out only the failure is logged.
func render(w http.ResponseWriter, r *http.Request, renderer view.Renderer, logger *slog.Logger, name string, page view.Page) {
	err := renderer.Render(w, http.StatusOK, name, page)
	switch {
	case err == nil:
	case errors.Is(err, view.ErrResponseWritten):
		logger.WarnContext(r.Context(), "response interrupted",
			"method", r.Method, "path", r.URL.Path, "view", name, "error", err)
	default:
		respondError(w, r, renderer, logger, err)
	}
}

var errPageNotFound = fmt.Errorf("page %w", domain.ErrNotFound)
