package services

import (
	"context"
	"strings"

	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/rs/zerolog/log"
)

// FeedbackService stores messages from the contact form.
type FeedbackService struct {
	repo repositories.FeedbackRepository
}

// NewFeedbackService creates a new FeedbackService.
func NewFeedbackService(repo repositories.FeedbackRepository) *FeedbackService {
	return &FeedbackService{repo: repo}
}

// Submit saves a feedback message.
func (s *FeedbackService) Submit(ctx context.Context, feedback *models.Feedback) error {
	feedback.Name = strings.TrimSpace(feedback.Name)
	feedback.Email = strings.ToLower(strings.TrimSpace(feedback.Email))
	if err := s.repo.Create(ctx, feedback); err != nil {
		return err
	}
	log.Info().Uint("feedback_id", feedback.ID).Msg("feedback received")
	return nil
}
