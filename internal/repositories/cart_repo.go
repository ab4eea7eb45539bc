package repositories

import (
	"context"

	"storefront/internal/models"
)

// CartRepository defines the interface for persisted cart access.
type CartRepository interface {
	// GetOrCreateActive returns the user's active cart, creating it if needed.
	GetOrCreateActive(ctx context.Context, userID uint) (*models.Cart, error)
	// FindActive returns the user's active cart or an apperr.ErrNotFound error.
	FindActive(ctx context.Context, userID uint) (*models.Cart, error)
	// AddItem inserts a line or adds qty to the existing (cart, product, size) line.
	AddItem(ctx context.Context, cartID, productID uint, size string, qty int) error
	// SetItemQuantity overwrites the quantity of an existing line.
	SetItemQuantity(ctx context.Context, cartID, productID uint, size string, qty int) error
	RemoveItem(ctx context.Context, cartID, productID uint, size string) error
	ListLines(ctx context.Context, cartID uint) ([]models.CartLine, error)
}
