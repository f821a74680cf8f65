package service

import (
	"fmt"

	"github.com/fjod/storefront/internal/domain"
)

var (
	ErrEmptyCart = fmt.Errorf("cart is empty, nothing to order: %w", domain.ErrInvalid)
	ErrNotOwner  = fmt.Errorf("order belongs to another user: %w", domain.ErrForbidden)
)
