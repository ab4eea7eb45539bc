package handlers

import (
	"storefront/internal/models"
	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// FeedbackHandler accepts contact form submissions.
type FeedbackHandler struct {
	service  *services.FeedbackService
	validate *validator.Validate
}

// NewFeedbackHandler creates a new FeedbackHandler.
func NewFeedbackHandler(service *services.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the feedback route.
func (h *FeedbackHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/feedback", h.HandleSubmit)
}

// HandleSubmit stores a feedback message.
func (h *FeedbackHandler) HandleSubmit(c *fiber.Ctx) error {
	var feedback models.Feedback
	if err := c.BodyParser(&feedback); err != nil {
		return badBody(c, err)
	}
	feedback.ID = 0
	if err := validate(h.validate, feedback); err != nil {
		return writeError(c, err)
	}

	if err := h.service.Submit(c.UserContext(), &feedback); err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Thank you for your feedback"})
}
