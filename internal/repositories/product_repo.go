package repositories

import (
	"context"

	"storefront/internal/models"
)

// ProductFilter narrows a product listing.
type ProductFilter struct {
	Query           string // matched against name and description
	CategoryID      uint
	IncludeInactive bool
}

// ProductRepository defines the interface for catalog data access.
type ProductRepository interface {
	List(ctx context.Context, filter ProductFilter) ([]models.Product, error)
	GetByID(ctx context.Context, id uint) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	UpdateStock(ctx context.Context, id uint, stock int) error
	Deactivate(ctx context.Context, id uint) error
	ListCategories(ctx context.Context) ([]models.Category, error)
	CreateCategory(ctx context.Context, category *models.Category) error
}
