package services

import (
	"context"
	"fmt"
	"strings"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

const productCachePrefix = "products:"

// ProductInput is the editable part of a product.
type ProductInput struct {
	Name        string          `json:"name" validate:"required,min=2,max=150"`
	Description string          `json:"description" validate:"omitempty,max=2000"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock" validate:"gte=0"`
	CategoryID  *uint           `json:"category_id"`
	Sizes       []string        `json:"sizes" validate:"omitempty,max=20,dive,required,max=16"`
	ImageURL    string          `json:"image_url" validate:"omitempty,max=500"`
}

// ProductService handles business logic related to the catalog.
type ProductService struct {
	repo  repositories.ProductRepository
	cache Cache // optional
	group singleflight.Group
}

// NewProductService creates a new ProductService. cache may be nil.
func NewProductService(repo repositories.ProductRepository, cache Cache) *ProductService {
	return &ProductService{
		repo:  repo,
		cache: cache,
	}
}

// ListProducts returns active products matching the filter.
func (s *ProductService) ListProducts(ctx context.Context, filter repositories.ProductFilter) ([]models.Product, error) {
	key := fmt.Sprintf("%slist:%d:%t:%s", productCachePrefix, filter.CategoryID, filter.IncludeInactive, strings.ToLower(strings.TrimSpace(filter.Query)))

	var products []models.Product
	err := s.cached(ctx, key, &products, func() (interface{}, error) {
		return s.repo.List(ctx, filter)
	})
	return products, err
}

// GetProduct returns one product, including inactive ones.
func (s *ProductService) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	key := fmt.Sprintf("%s%d", productCachePrefix, id)

	var product models.Product
	if err := s.cached(ctx, key, &product, func() (interface{}, error) {
		return s.repo.GetByID(ctx, id)
	}); err != nil {
		return nil, err
	}
	return &product, nil
}

// ListCategories returns every category.
func (s *ProductService) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := s.cached(ctx, productCachePrefix+"categories", &categories, func() (interface{}, error) {
		return s.repo.ListCategories(ctx)
	})
	return categories, err
}

// cached implements cache-aside. Concurrent misses for one key share a single
// load; cache failures are logged and fall through to the repository.
func (s *ProductService) cached(ctx context.Context, key string, dest interface{}, load func() (interface{}, error)) error {
	if s.cache != nil {
		found, err := s.cache.Get(ctx, key, dest)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("product cache read failed")
		} else if found {
			return nil
		}
	}

	value, err, _ := s.group.Do(key, func() (interface{}, error) {
		v, err := load()
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if err := s.cache.Set(ctx, key, v); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("product cache write failed")
			}
		}
		return v, nil
	})
	if err != nil {
		return err
	}

	switch d := dest.(type) {
	case *[]models.Product:
		*d = value.([]models.Product)
	case *models.Product:
		*d = *value.(*models.Product)
	case *[]models.Category:
		*d = value.([]models.Category)
	default:
		return fmt.Errorf("unsupported cache destination %T", dest)
	}
	return nil
}

func (s *ProductService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePrefix(ctx, productCachePrefix); err != nil {
		log.Warn().Err(err).Msg("product cache invalidation failed")
	}
}

func (s *ProductService) validateInput(in ProductInput) error {
	if in.Price.LessThanOrEqual(decimal.Zero) {
		return apperr.New(apperr.ErrValidation, "Price must be greater than zero")
	}
	if in.Price.Exponent() < -2 {
		return apperr.New(apperr.ErrValidation, "Price cannot have more than two decimals")
	}
	return nil
}

// CreateProduct adds an active product to the catalog.
func (s *ProductService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	product := &models.Product{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		CategoryID:  in.CategoryID,
		Sizes:       in.Sizes,
		ImageURL:    in.ImageURL,
		IsActive:    true,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return product, nil
}

// UpdateProduct overwrites a product's editable fields and reactivates it.
func (s *ProductService) UpdateProduct(ctx context.Context, id uint, in ProductInput) (*models.Product, error) {
	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	product := &models.Product{
		ID:          id,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		CategoryID:  in.CategoryID,
		Sizes:       in.Sizes,
		ImageURL:    in.ImageURL,
		IsActive:    true,
	}
	if err := s.repo.Update(ctx, product); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return s.repo.GetByID(ctx, id)
}

// UpdateStock sets a product's stock level.
func (s *ProductService) UpdateStock(ctx context.Context, id uint, stock int) error {
	if stock < 0 {
		return apperr.New(apperr.ErrValidation, "Stock cannot be negative")
	}
	if err := s.repo.UpdateStock(ctx, id, stock); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// DeleteProduct soft deletes a product.
func (s *ProductService) DeleteProduct(ctx context.Context, id uint) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// CreateCategory adds a category.
func (s *ProductService) CreateCategory(ctx context.Context, category *models.Category) error {
	category.Name = strings.TrimSpace(category.Name)
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}
