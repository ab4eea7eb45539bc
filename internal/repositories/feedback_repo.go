package repositories

import (
	"context"
	"fmt"

	"storefront/internal/models"

	"gorm.io/gorm"
)

// FeedbackRepository stores contact form messages.
type FeedbackRepository interface {
	Create(ctx context.Context, feedback *models.Feedback) error
}

// GORMFeedbackRepository is a GORM implementation of FeedbackRepository.
type GORMFeedbackRepository struct {
	db *gorm.DB
}

// NewGORMFeedbackRepository creates a new instance of GORMFeedbackRepository.
func NewGORMFeedbackRepository(db *gorm.DB) *GORMFeedbackRepository {
	return &GORMFeedbackRepository{db: db}
}

func (r *GORMFeedbackRepository) Create(ctx context.Context, feedback *models.Feedback) error {
	if err := r.db.WithContext(ctx).Create(feedback).Error; err != nil {
		return fmt.Errorf("failed to save feedback: %w", err)
	}
	return nil
}
