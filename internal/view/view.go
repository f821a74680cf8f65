// Package view renders the storefront pages from embedded html templates.
package view

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
)

const (
	ProductList   = "shop/product-list"
	ProductDetail = "shop/product-detail"
	Index         = "shop/index"
	Cart          = "shop/cart"
	Orders        = "shop/orders"
	Error         = "error"
)

// ErrResponseWritten marks a failure after the status line was sent. The
// response can no longer be replaced by an error page.
var ErrResponseWritten = errors.New("response already written")

//go:embed templates
var templateFS embed.FS

// Page is what every view receives. Path marks the active navigation entry.
type Page struct {
	Title string
	Path  string
	Data  any
}

// ErrorData is the Data of the error view.
type ErrorData struct {
	Status  int
	Message string
}

type Renderer interface {
	Render(w http.ResponseWriter, status int, name string, page Page) error
}

type TemplateRenderer struct {
	views map[string]*template.Template
}

func NewTemplateRenderer() (*TemplateRenderer, error) {
	funcs := template.FuncMap{
		"price": func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) },
		"lineTotal": func(price float64, qty int) string {
			return strconv.FormatFloat(price*float64(qty), 'f', 2, 64)
		},
	}

	views := make(map[string]*template.Template)
	for _, name := range []string{ProductList, ProductDetail, Index, Cart, Orders, Error} {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS,
			"templates/layout.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("failed to parse view %s: %w", name, err)
		}
		views[name] = t
	}

	return &TemplateRenderer{views: views}, nil
}

// Render executes the view into a buffer first so a template failure never
// leaves a half written page behind.
func (r *TemplateRenderer) Render(w http.ResponseWriter, status int, name string, page Page) error {
	t, ok := r.views[name]
	if !ok {
		return fmt.Errorf("unknown view %q", name)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", page); err != nil {
		return fmt.Errorf("failed to render view %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		return fmt.Errorf("%w: %w", ErrResponseWritten, err)
	}
	return nil
}
