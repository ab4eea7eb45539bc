package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentIntent records a provider payment intent together with the
// idempotency key that later links it to the order it pays for.
type PaymentIntent struct {
	ID             uint            `json:"id" gorm:"primaryKey"`
	IdempotencyKey string          `json:"idempotency_key" gorm:"type:varchar(64);uniqueIndex;not null"`
	ProviderID     string          `json:"provider_id" gorm:"type:varchar(255);not null"`
	ClientSecret   string          `json:"-" gorm:"type:varchar(255)"`
	Amount         decimal.Decimal `json:"amount" gorm:"type:decimal(10,2);not null"`
	Currency       string          `json:"currency" gorm:"type:varchar(10);not null"`
	UserID         *uint           `json:"user_id" gorm:"index"`
	OrderID        *uint           `json:"order_id" gorm:"index"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
