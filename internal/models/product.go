package models

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// Category groups products in the catalog.
type Category struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"uniqueIndex;type:varchar(100);not null" validate:"required,min=2,max=100"`
	Description string    `json:"description" gorm:"type:text" validate:"omitempty,max=500"`
	CreatedAt   time.Time `json:"created_at"`
}

// Product represents a product in the store. Products are never hard deleted;
// IsActive is flipped instead so that order history keeps its references.
type Product struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	Name        string          `json:"name" gorm:"type:varchar(150);not null"`
	Description string          `json:"description" gorm:"type:text"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	Stock       int             `json:"stock" gorm:"not null"`
	CategoryID  *uint           `json:"category_id" gorm:"index"`
	Sizes       []string        `json:"sizes" gorm:"type:text;serializer:json"`
	ImageURL    string          `json:"image_url" gorm:"type:varchar(500)"`
	IsActive    bool            `json:"is_active" gorm:"not null;index"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	// Computed on read.
	CategoryName string `json:"category_name,omitempty" gorm:"->;-:migration"`
	SoldCount    int64  `json:"sold_count" gorm:"->;-:migration"`
}

// HasSizes reports whether the product is sold in distinct sizes.
func (p *Product) HasSizes() bool {
	return len(p.Sizes) > 0
}

// AcceptsSize reports whether size is a valid choice for the product. Products
// without sizes only accept the empty size.
func (p *Product) AcceptsSize(size string) bool {
	if !p.HasSizes() {
		return size == ""
	}
	return slices.Contains(p.Sizes, size)
}
