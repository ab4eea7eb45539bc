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

// GORMCartRepository is a GORM implementation of CartRepository.
type GORMCartRepository struct {
	db *gorm.DB
}

// NewGORMCartRepository creates a new instance of GORMCartRepository.
func NewGORMCartRepository(db *gorm.DB) *GORMCartRepository {
	return &GORMCartRepository{db: db}
}

// GetOrCreateActive upserts the active cart. The partial unique index on
// (user_id) WHERE status = 'active' turns a concurrent second insert into a
// no-op, and both callers then read the same row.
func (r *GORMCartRepository) GetOrCreateActive(ctx context.Context, userID uint) (*models.Cart, error) {
	db := r.db.WithContext(ctx)

	cart := models.Cart{UserID: userID, Status: models.CartActive}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&cart).Error; err != nil {
		return nil, fmt.Errorf("failed to upsert cart for user %d: %w", userID, err)
	}

	var active models.Cart
	if err := db.Where("user_id = ? AND status = ?", userID, models.CartActive).First(&active).Error; err != nil {
		return nil, fmt.Errorf("failed to load active cart for user %d: %w", userID, err)
	}
	return &active, nil
}

// FindActive returns the user's active cart without creating one.
func (r *GORMCartRepository) FindActive(ctx context.Context, userID uint) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).Where("user_id = ? AND status = ?", userID, models.CartActive).First(&cart).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.ErrNotFound, "Cart not found")
		}
		return nil, fmt.Errorf("failed to find active cart for user %d: %w", userID, err)
	}
	return &cart, nil
}

// AddItem merges qty into the (cart, product, size) line in a single statement.
func (r *GORMCartRepository) AddItem(ctx context.Context, cartID, productID uint, size string, qty int) error {
	item := models.CartItem{CartID: cartID, ProductID: productID, Size: size, Quantity: qty}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "cart_id"}, {Name: "product_id"}, {Name: "size"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":   gorm.Expr("cart_items.quantity + excluded.quantity"),
			"updated_at": gorm.Expr("excluded.updated_at"),
		}),
	}).Create(&item).Error
	if err != nil {
		return fmt.Errorf("failed to add item to cart %d: %w", cartID, err)
	}
	return nil
}

// SetItemQuantity overwrites the quantity of an existing line.
func (r *GORMCartRepository) SetItemQuantity(ctx context.Context, cartID, productID uint, size string, qty int) error {
	res := r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("cart_id = ? AND product_id = ? AND size = ?", cartID, productID, size).
		Update("quantity", qty)
	if res.Error != nil {
		return fmt.Errorf("failed to update cart item: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.ErrNotFound, "Cart item not found")
	}
	return nil
}

// RemoveItem deletes a line. Removing a missing line is not an error.
func (r *GORMCartRepository) RemoveItem(ctx context.Context, cartID, productID uint, size string) error {
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ? AND size = ?", cartID, productID, size).
		Delete(&models.CartItem{}).Error
	if err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}
	return nil
}

// ListLines returns the cart's lines joined with the live product data.
func (r *GORMCartRepository) ListLines(ctx context.Context, cartID uint) ([]models.CartLine, error) {
	var lines []models.CartLine
	err := r.db.WithContext(ctx).
		Table("cart_items").
		Select("cart_items.product_id, products.name, products.price, products.image_url, " +
			"cart_items.size, cart_items.quantity, products.stock, products.is_active").
		Joins("JOIN products ON products.id = cart_items.product_id").
		Where("cart_items.cart_id = ?", cartID).
		Order("cart_items.id").
		Scan(&lines).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list items of cart %d: %w", cartID, err)
	}
	return lines, nil
}
