package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartStatus is the lifecycle state of a persisted cart.
type CartStatus string

const (
	CartActive     CartStatus = "active"
	CartCheckedOut CartStatus = "checked_out"
)

// Cart belongs to exactly one user. The partial unique index guarantees that a
// user never has more than one active cart.
type Cart struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	UserID    uint       `json:"user_id" gorm:"not null;uniqueIndex:idx_carts_active_user,where:status = 'active'"`
	Status    CartStatus `json:"status" gorm:"type:varchar(20);not null;index"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CartItem is one line of a cart, identified by (cart, product, size).
type CartItem struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CartID    uint      `json:"cart_id" gorm:"not null;uniqueIndex:idx_cart_items_line"`
	ProductID uint      `json:"product_id" gorm:"not null;uniqueIndex:idx_cart_items_line"`
	Size      string    `json:"size" gorm:"type:varchar(16);not null;uniqueIndex:idx_cart_items_line"`
	Quantity  int       `json:"qty" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CartLine is a cart item joined with the live product it refers to.
type CartLine struct {
	ProductID uint            `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	ImageURL  string          `json:"image_url"`
	Size      string          `json:"size"`
	Quantity  int             `json:"qty"`
	Stock     int             `json:"stock"`
	IsActive  bool            `json:"-"`
}

// LineTotal is price times quantity.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}
