package repositories

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/apperr"
	"storefront/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{db: db}
}

// PlaceOrder writes the order, its items, the stock reservation, the cart
// clear-out and the payment link in a single transaction.
func (r *GORMOrderRepository) PlaceOrder(ctx context.Context, order *models.Order, opts PlaceOrderOptions) error {
	items := order.Items

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(order).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Wrap(apperr.ErrConflict, "Order already exists", err)
			}
			return fmt.Errorf("failed to insert order: %w", err)
		}

		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := tx.Create(&items).Error; err != nil {
			return fmt.Errorf("failed to insert order items: %w", err)
		}

		if opts.DecrementStock {
			for _, item := range items {
				res := tx.Model(&models.Product{}).
					Where("id = ? AND stock >= ?", item.ProductID, item.Quantity).
					UpdateColumn("stock", gorm.Expr("stock - ?", item.Quantity))
				if res.Error != nil {
					return fmt.Errorf("failed to reserve stock for product %d: %w", item.ProductID, res.Error)
				}
				if res.RowsAffected == 0 {
					return apperr.New(apperr.ErrInsufficientStock, fmt.Sprintf("Not enough stock for %s", item.ProductName))
				}
			}
		}

		if opts.ClearCartID != 0 {
			res := tx.Where("cart_id = ?", opts.ClearCartID).Delete(&models.CartItem{})
			if res.Error != nil {
				return fmt.Errorf("failed to clear cart %d: %w", opts.ClearCartID, res.Error)
			}
			// Another checkout consumed the same cart first.
			if res.RowsAffected == 0 {
				return apperr.New(apperr.ErrEmptyCart, "Cart was already checked out")
			}
		}

		if order.IdempotencyKey != nil {
			err := tx.Model(&models.PaymentIntent{}).
				Where("idempotency_key = ? AND order_id IS NULL", *order.IdempotencyKey).
				Update("order_id", order.ID).Error
			if err != nil {
				return fmt.Errorf("failed to link payment intent: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	order.Items = items
	return nil
}

// GetByID retrieves an order with its items.
func (r *GORMOrderRepository) GetByID(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Preload("Items").First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.ErrNotFound, "Order not found")
		}
		return nil, fmt.Errorf("failed to get order by ID %d: %w", id, err)
	}
	return &order, nil
}

// GetByIdempotencyKey retrieves the order created with key.
func (r *GORMOrderRepository) GetByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Preload("Items").Where("idempotency_key = ?", key).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.ErrNotFound, "Order not found")
		}
		return nil, fmt.Errorf("failed to get order by idempotency key: %w", err)
	}
	return &order, nil
}

func (r *GORMOrderRepository) list(ctx context.Context, status models.OrderStatus, scope func(*gorm.DB) *gorm.DB) ([]models.Order, error) {
	query := r.db.WithContext(ctx).Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("order_items.id")
	})
	if scope != nil {
		query = scope(query)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var orders []models.Order
	if err := query.Order("created_at DESC, id DESC").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// ListByUser retrieves a user's orders, newest first, optionally filtered by status.
func (r *GORMOrderRepository) ListByUser(ctx context.Context, userID uint, status models.OrderStatus) ([]models.Order, error) {
	return r.list(ctx, status, func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id = ?", userID)
	})
}

// ListAll retrieves every order, newest first, optionally filtered by status.
func (r *GORMOrderRepository) ListAll(ctx context.Context, status models.OrderStatus) ([]models.Order, error) {
	return r.list(ctx, status, nil)
}

// UpdateStatus moves an order to next. The update is conditional on the status
// read inside the transaction, so two concurrent transitions cannot both win.
func (r *GORMOrderRepository) UpdateStatus(ctx context.Context, id uint, ownerID *uint, next models.OrderStatus, opts UpdateStatusOptions) (*models.Order, error) {
	var order models.Order

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Preload("Items").Where("id = ?", id)
		if ownerID != nil {
			query = query.Where("user_id = ?", *ownerID)
		}
		if err := query.First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.ErrNotFound, "Order not found")
			}
			return fmt.Errorf("failed to load order %d: %w", id, err)
		}

		if opts.Check != nil {
			if err := opts.Check(order.Status); err != nil {
				return err
			}
		}

		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", order.ID, order.Status).
			Update("status", next)
		if res.Error != nil {
			return fmt.Errorf("failed to update status of order %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.New(apperr.ErrInvalidState, "Order status changed concurrently, please retry")
		}

		if opts.Restock && next == models.OrderStatusCancelled {
			for _, item := range order.Items {
				err := tx.Model(&models.Product{}).
					Where("id = ?", item.ProductID).
					UpdateColumn("stock", gorm.Expr("stock + ?", item.Quantity)).Error
				if err != nil {
					return fmt.Errorf("failed to restock product %d: %w", item.ProductID, err)
				}
			}
		}

		order.Status = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// CountByStatus returns how many orders the user has in every status.
func (r *GORMOrderRepository) CountByStatus(ctx context.Context, userID uint) (map[models.OrderStatus]int64, error) {
	var rows []struct {
		Status models.OrderStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("status, COUNT(*) AS count").
		Where("user_id = ?", userID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count orders of user %d: %w", userID, err)
	}

	counts := make(map[models.OrderStatus]int64, len(models.AllOrderStatuses))
	for _, status := range models.AllOrderStatuses {
		counts[status] = 0
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
