package repositories

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/apperr"
	"storefront/internal/models"

	"gorm.io/gorm"
)

// PaymentRepository defines the interface for payment intent records.
type PaymentRepository interface {
	Create(ctx context.Context, intent *models.PaymentIntent) error
	GetByIdempotencyKey(ctx context.Context, key string) (*models.PaymentIntent, error)
}

// GORMPaymentRepository is a GORM implementation of PaymentRepository.
type GORMPaymentRepository struct {
	db *gorm.DB
}

// NewGORMPaymentRepository creates a new instance of GORMPaymentRepository.
func NewGORMPaymentRepository(db *gorm.DB) *GORMPaymentRepository {
	return &GORMPaymentRepository{db: db}
}

// Create records a payment intent. A second intent for the same key is a conflict.
func (r *GORMPaymentRepository) Create(ctx context.Context, intent *models.PaymentIntent) error {
	if err := r.db.WithContext(ctx).Create(intent).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.New(apperr.ErrConflict, "Payment already initiated for this key")
		}
		return fmt.Errorf("failed to record payment intent: %w", err)
	}
	return nil
}

// GetByIdempotencyKey retrieves the intent recorded for key.
func (r *GORMPaymentRepository) GetByIdempotencyKey(ctx context.Context, key string) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	if err := r.db.WithContext(ctx).Where("idempotency_key = ?", key).First(&intent).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.ErrNotFound, "Payment intent not found")
		}
		return nil, fmt.Errorf("failed to get payment intent: %w", err)
	}
	return &intent, nil
}
