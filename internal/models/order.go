package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusNew       OrderStatus = "new"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipping  OrderStatus = "shipping"
	OrderStatusReceived  OrderStatus = "received"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// AllOrderStatuses lists every status in lifecycle order.
var AllOrderStatuses = []OrderStatus{
	OrderStatusNew,
	OrderStatusConfirmed,
	OrderStatusShipping,
	OrderStatusReceived,
	OrderStatusCancelled,
}

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusNew:       {OrderStatusConfirmed, OrderStatusShipping, OrderStatusCancelled},
	OrderStatusConfirmed: {OrderStatusShipping},
	OrderStatusShipping:  {OrderStatusReceived},
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	for _, known := range AllOrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}

// CanTransitionTo reports whether an order in status s may move to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// DeliveryInfo is the shipping snapshot frozen into an order at checkout.
type DeliveryInfo struct {
	Name     string `json:"name" gorm:"type:varchar(100)" validate:"required,max=100"`
	Email    string `json:"email" gorm:"type:varchar(255)" validate:"omitempty,email,max=255"`
	Phone    string `json:"phone" gorm:"type:varchar(30)" validate:"required,max=30"`
	Address  string `json:"address" gorm:"type:varchar(255)" validate:"required,max=255"`
	City     string `json:"city" gorm:"type:varchar(100)" validate:"omitempty,max=100"`
	District string `json:"district" gorm:"type:varchar(100)" validate:"omitempty,max=100"`
}

// Order is a placed order. Everything except Status is immutable after creation.
type Order struct {
	ID              uint            `json:"id" gorm:"primaryKey"`
	OrderRef        string          `json:"order_ref" gorm:"type:varchar(20);uniqueIndex;not null"`
	UserID          *uint           `json:"user_id" gorm:"index"`
	Status          OrderStatus     `json:"status" gorm:"type:varchar(20);not null;index"`
	Subtotal        decimal.Decimal `json:"subtotal" gorm:"type:decimal(10,2);not null"`
	Discount        decimal.Decimal `json:"discount" gorm:"type:decimal(10,2);not null"`
	Total           decimal.Decimal `json:"total" gorm:"type:decimal(10,2);not null"`
	VoucherCode     string          `json:"voucher_code,omitempty" gorm:"type:varchar(50)"`
	PaymentMethod   string          `json:"payment_method" gorm:"type:varchar(50)"`
	PaymentIntentID string          `json:"payment_intent_id,omitempty" gorm:"type:varchar(255)"`
	Note            string          `json:"note" gorm:"type:text"`
	DeliveryInfo    DeliveryInfo    `json:"deliveryInfo" gorm:"embedded;embeddedPrefix:delivery_"`
	IdempotencyKey  *string         `json:"-" gorm:"type:varchar(64);uniqueIndex"`
	Items           []OrderItem     `json:"items" gorm:"foreignKey:OrderID"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// OrderItem is a line of an order with the price frozen at checkout.
type OrderItem struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	OrderID     uint            `json:"order_id" gorm:"not null;index"`
	ProductID   uint            `json:"product_id" gorm:"not null;index"`
	ProductName string          `json:"name" gorm:"type:varchar(150)"`
	ImageURL    string          `json:"image_url" gorm:"type:varchar(500)"`
	Size        string          `json:"size" gorm:"type:varchar(16)"`
	Quantity    int             `json:"qty" gorm:"not null"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
}

// LineTotal is price times quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
