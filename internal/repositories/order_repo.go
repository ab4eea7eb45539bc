package repositories

import (
	"context"

	"storefront/internal/models"
)

// PlaceOrderOptions controls the side effects committed together with a new order.
type PlaceOrderOptions struct {
	// ClearCartID is the cart whose items are consumed by the order, or 0 for guest checkout.
	ClearCartID uint
	// DecrementStock reserves stock for every line, failing with
	// apperr.ErrInsufficientStock when a product runs short.
	DecrementStock bool
}

// StatusCheck decides whether an order may leave its current status.
// Returning an error aborts the update.
type StatusCheck func(current models.OrderStatus) error

// UpdateStatusOptions controls a status change.
type UpdateStatusOptions struct {
	// Check, when set, runs against the status read inside the transaction.
	Check StatusCheck
	// Restock returns the items to stock when the order moves to cancelled.
	// Set it only when placing the order decremented stock.
	Restock bool
}

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	// PlaceOrder inserts the order and its items in one transaction together
	// with the side effects described by opts. Nothing persists on failure.
	PlaceOrder(ctx context.Context, order *models.Order, opts PlaceOrderOptions) error
	GetByID(ctx context.Context, id uint) (*models.Order, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*models.Order, error)
	ListByUser(ctx context.Context, userID uint, status models.OrderStatus) ([]models.Order, error)
	ListAll(ctx context.Context, status models.OrderStatus) ([]models.Order, error)
	// UpdateStatus moves an order to next. ownerID, when set, restricts the
	// lookup to that user's orders.
	UpdateStatus(ctx context.Context, id uint, ownerID *uint, next models.OrderStatus, opts UpdateStatusOptions) (*models.Order, error)
	CountByStatus(ctx context.Context, userID uint) (map[models.OrderStatus]int64, error)
}
