package database

import (
	"fmt"

	"storefront/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Seed inserts demo categories, products and an admin account. Rows that
// already exist are left untouched, so running it twice is harmless.
func Seed(db *gorm.DB, adminEmail, adminPassword string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		categories := []models.Category{
			{Name: "T-Shirts", Description: "Everyday tees"},
			{Name: "Hoodies", Description: "Warm layers"},
			{Name: "Accessories", Description: "Caps, bags and more"},
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&categories).Error; err != nil {
			return fmt.Errorf("failed to seed categories: %w", err)
		}

		var count int64
		if err := tx.Model(&models.Product{}).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			var tees, hoodies, accessories models.Category
			tx.Where("name = ?", "T-Shirts").First(&tees)
			tx.Where("name = ?", "Hoodies").First(&hoodies)
			tx.Where("name = ?", "Accessories").First(&accessories)

			products := []models.Product{
				{Name: "Basic Tee", Description: "Cotton crew neck", Price: decimal.RequireFromString("10.00"), Stock: 100, CategoryID: &tees.ID, Sizes: []string{"S", "M", "L", "XL"}, IsActive: true},
				{Name: "Logo Hoodie", Description: "Heavyweight fleece", Price: decimal.RequireFromString("45.00"), Stock: 40, CategoryID: &hoodies.ID, Sizes: []string{"M", "L"}, IsActive: true},
				{Name: "Dad Cap", Description: "Adjustable strap", Price: decimal.RequireFromString("15.50"), Stock: 60, CategoryID: &accessories.ID, IsActive: true},
			}
			if err := tx.Create(&products).Error; err != nil {
				return fmt.Errorf("failed to seed products: %w", err)
			}
		}

		if adminEmail == "" || adminPassword == "" {
			return nil
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash admin password: %w", err)
		}
		admin := models.User{Name: "Administrator", Email: adminEmail, Password: string(hash), Role: models.RoleAdmin}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&admin).Error; err != nil {
			return fmt.Errorf("failed to seed admin user: %w", err)
		}
		return nil
	})
}
