package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/apperr"
	"storefront/internal/models"

	"gorm.io/gorm"
)

// soldCountSQL sums the quantities sold per product, ignoring cancelled orders.
const soldCountSQL = `(SELECT COALESCE(SUM(oi.quantity), 0) FROM order_items oi
	JOIN orders o ON o.id = oi.order_id
	WHERE oi.product_id = products.id AND o.status <> ?) AS sold_count`

// GORMProductRepository is a GORM implementation of ProductRepository.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{
		db: db,
	}
}

// withComputed selects products together with their category name and sold count.
func (r *GORMProductRepository) withComputed(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Select("products.*, categories.name AS category_name, "+soldCountSQL, models.OrderStatusCancelled).
		Joins("LEFT JOIN categories ON categories.id = products.category_id")
}

// List retrieves products matching the filter, newest first.
func (r *GORMProductRepository) List(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	query := r.withComputed(ctx)
	if !filter.IncludeInactive {
		query = query.Where("products.is_active = ?", true)
	}
	if filter.CategoryID != 0 {
		query = query.Where("products.category_id = ?", filter.CategoryID)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(products.name) LIKE ? OR LOWER(products.description) LIKE ?", like, like)
	}

	var products []models.Product
	if err := query.Order("products.created_at DESC, products.id DESC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// GetByID retrieves a single product, active or not.
func (r *GORMProductRepository) GetByID(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	if err := r.withComputed(ctx).Where("products.id = ?", id).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.ErrNotFound, "Product not found")
		}
		return nil, fmt.Errorf("failed to get product by ID %d: %w", id, err)
	}
	return &product, nil
}

// Create inserts a new product.
func (r *GORMProductRepository) Create(ctx context.Context, product *models.Product) error {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// Update overwrites the editable fields of an existing product.
func (r *GORMProductRepository) Update(ctx context.Context, product *models.Product) error {
	res := r.db.WithContext(ctx).
		Model(&models.Product{ID: product.ID}).
		Select("name", "description", "price", "stock", "category_id", "sizes", "image_url", "is_active").
		Updates(product)
	if res.Error != nil {
		return fmt.Errorf("failed to update product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.ErrNotFound, "Product not found")
	}
	return nil
}

// UpdateStock sets the stock level of a product.
func (r *GORMProductRepository) UpdateStock(ctx context.Context, id uint, stock int) error {
	res := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Update("stock", stock)
	if res.Error != nil {
		return fmt.Errorf("failed to update stock: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.ErrNotFound, "Product not found")
	}
	return nil
}

// Deactivate soft deletes a product by clearing its active flag.
func (r *GORMProductRepository) Deactivate(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		return fmt.Errorf("failed to deactivate product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.ErrNotFound, "Product not found")
	}
	return nil
}

// ListCategories retrieves every category ordered by name.
func (r *GORMProductRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := r.db.WithContext(ctx).Order("name").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// CreateCategory inserts a category; names are unique.
func (r *GORMProductRepository) CreateCategory(ctx context.Context, category *models.Category) error {
	if err := r.db.WithContext(ctx).Create(category).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.New(apperr.ErrConflict, "Category already exists")
		}
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}
