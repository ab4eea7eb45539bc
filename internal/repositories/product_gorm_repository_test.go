package repositories_test

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductRepository_ListFilters(t *testing.T) {
	db := newTestDB(t)
	repo := repositories.NewGORMProductRepository(db)
	ctx := context.Background()

	hoodies := &models.Category{Name: "Hoodies"}
	require.NoError(t, repo.CreateCategory(ctx, hoodies))

	hoodie := &models.Product{Name: "Logo Hoodie", Description: "fleece", Price: decimal.RequireFromString("45.00"), Stock: 3, CategoryID: &hoodies.ID, IsActive: true}
	require.NoError(t, repo.Create(ctx, hoodie))
	createProduct(t, db, "Basic Tee", "10.00", 10)
	retired := createProduct(t, db, "Old Tee", "8.00", 0)
	require.NoError(t, repo.Deactivate(ctx, retired.ID))

	active, err := repo.List(ctx, repositories.ProductFilter{})
	require.NoError(t, err)
	assert.Len(t, active, 2)

	withInactive, err := repo.List(ctx, repositories.ProductFilter{IncludeInactive: true})
	require.NoError(t, err)
	assert.Len(t, withInactive, 3)

	byCategory, err := repo.List(ctx, repositories.ProductFilter{CategoryID: hoodies.ID})
	require.NoError(t, err)
	require.Len(t, byCategory, 1)
	assert.Equal(t, "Hoodies", byCategory[0].CategoryName)

	bySearch, err := repo.List(ctx, repositories.ProductFilter{Query: "FLEECE"})
	require.NoError(t, err)
	require.Len(t, bySearch, 1)
	assert.Equal(t, hoodie.ID, bySearch[0].ID)
}

func TestProductRepository_SoldCountIgnoresCancelled(t *testing.T) {
	db := newTestDB(t)
	repo := repositories.NewGORMProductRepository(db)
	orders := repositories.NewGORMOrderRepository(db)
	ctx := context.Background()
	tee := createProduct(t, db, "Tee", "10.00", 100)

	place := func(ref string, qty int) *models.Order {
		order := &models.Order{
			OrderRef: ref,
			Status:   models.OrderStatusNew,
			Total:    decimal.RequireFromString("10.00"),
			Items:    []models.OrderItem{{ProductID: tee.ID, Quantity: qty, Price: decimal.RequireFromString("10.00")}},
		}
		require.NoError(t, orders.PlaceOrder(ctx, order, repositories.PlaceOrderOptions{}))
		return order
	}
	place("A1", 2)
	cancelled := place("A2", 5)
	_, err := orders.UpdateStatus(ctx, cancelled.ID, nil, models.OrderStatusCancelled, repositories.UpdateStatusOptions{})
	require.NoError(t, err)

	product, err := repo.GetByID(ctx, tee.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), product.SoldCount)
}

func TestProductRepository_UpdateAndStock(t *testing.T) {
	db := newTestDB(t)
	repo := repositories.NewGORMProductRepository(db)
	ctx := context.Background()
	tee := createProduct(t, db, "Tee", "10.00", 1, "S")

	tee.Name = "Heavy Tee"
	tee.Price = decimal.RequireFromString("12.50")
	tee.Sizes = []string{"S", "M"}
	require.NoError(t, repo.Update(ctx, tee))
	require.NoError(t, repo.UpdateStock(ctx, tee.ID, 0))

	stored, err := repo.GetByID(ctx, tee.ID)
	require.NoError(t, err)
	assert.Equal(t, "Heavy Tee", stored.Name)
	assert.Equal(t, "12.50", stored.Price.StringFixed(2))
	assert.Equal(t, []string{"S", "M"}, stored.Sizes)
	assert.Equal(t, 0, stored.Stock)

	err = repo.UpdateStock(ctx, 9999, 1)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	_, err = repo.GetByID(ctx, 9999)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestProductRepository_DuplicateCategory(t *testing.T) {
	db := newTestDB(t)
	repo := repositories.NewGORMProductRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.CreateCategory(ctx, &models.Category{Name: "Hats"}))
	err := repo.CreateCategory(ctx, &models.Category{Name: "Hats"})
	assert.True(t, errors.Is(err, apperr.ErrConflict))
}
