// Package invoice reads the PDF invoices written by the invoice generator.
// Files live at <data-dir>/invoices/invoice-<orderId>.pdf; the layout is a
// contract with the generator and this package never writes.
package invoice

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fjod/storefront/internal/domain"
)

var ErrInvoiceNotFound = fmt.Errorf("invoice %w", domain.ErrNotFound)

type Store struct {
	dir string
}

func NewStore(dataDir string) *Store {
	return &Store{dir: filepath.Join(dataDir, "invoices")}
}

// File is an open invoice. The caller must Close it.
type File struct {
	*os.File
	Name string
	Size int64
}

// Path returns where the invoice for orderID is expected.
func (s *Store) Path(orderID string) string {
	return filepath.Join(s.dir, domain.InvoiceFileName(orderID))
}

// Open returns a read handle on the invoice of orderID. orderID must already
// be validated; it is used as a file name component.
func (s *Store) Open(orderID string) (*File, error) {
	name := domain.InvoiceFileName(orderID)
	if filepath.Base(name) != name {
		return nil, ErrInvoiceNotFound
	}

	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("failed to open invoice: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat invoice: %w", err)
	}
	if info.IsDir() {
		f.Close()
		return nil, ErrInvoiceNotFound
	}

	return &File{File: f, Name: name, Size: info.Size()}, nil
}
