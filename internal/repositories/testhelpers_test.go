package repositories_test

import (
	"fmt"
	"strings"
	"testing"

	"storefront/internal/database"
	"storefront/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a private in-memory SQLite database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Open(database.Options{
		Driver:   "sqlite",
		DSN:      fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
		LogLevel: logger.Silent,
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func createProduct(t *testing.T, db *gorm.DB, name, price string, stock int, sizes ...string) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
		Sizes:    sizes,
		IsActive: true,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func createUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{Name: "Test User", Email: email, Password: "hash", Role: models.RoleCustomer}
	require.NoError(t, db.Create(user).Error)
	return user
}
