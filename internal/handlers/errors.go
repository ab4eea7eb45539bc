package handlers

import (
	"errors"
	"fmt"
	"strconv"

	"storefront/internal/apperr"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation),
		errors.Is(err, apperr.ErrEmptyCart),
		errors.Is(err, apperr.ErrInvalidState):
		return fiber.StatusBadRequest
	case errors.Is(err, apperr.ErrAuth):
		return fiber.StatusUnauthorized
	case errors.Is(err, apperr.ErrRole):
		return fiber.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, apperr.ErrConflict),
		errors.Is(err, apperr.ErrInsufficientStock):
		return fiber.StatusConflict
	case errors.Is(err, apperr.ErrGateway):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// validationErrors flattens validator errors into a field to message map.
func validationErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	errorMessages := make(map[string]string, len(verrs))
	for _, e := range verrs {
		errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	return errorMessages
}

// writeError sends err as a JSON error response. Internal errors are logged
// and replaced by a generic message.
func writeError(c *fiber.Ctx, err error) error {
	status := statusFor(err)

	if errors.Is(err, apperr.ErrPaymentNotRecorded) {
		log.Error().Err(err).Str("path", c.Path()).Msg("payment received without an order")
		return c.Status(status).JSON(fiber.Map{
			"message": apperr.Message(err, "Payment was received but the order was not recorded"),
		})
	}
	if status == fiber.StatusInternalServerError {
		log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("request failed")
		return c.Status(status).JSON(fiber.Map{
			"message": "Internal server error",
		})
	}

	body := fiber.Map{"message": apperr.Message(err, "Request failed")}
	if fields := validationErrors(err); fields != nil {
		body["message"] = "Validation failed"
		body["errors"] = fields
	}
	return c.Status(status).JSON(body)
}

// badBody answers a request whose body could not be parsed.
func badBody(c *fiber.Ctx, err error) error {
	log.Debug().Err(err).Str("path", c.Path()).Msg("invalid request body")
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Invalid request body",
		"error":   err.Error(),
	})
}

// validate runs struct validation and wraps failures as validation errors.
func validate(v *validator.Validate, s interface{}) error {
	if err := v.Struct(s); err != nil {
		return apperr.Wrap(apperr.ErrValidation, "Validation failed", err)
	}
	return nil
}

// paramID parses a positive numeric route parameter.
func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.New(apperr.ErrValidation, fmt.Sprintf("Invalid %s", name))
	}
	return uint(id), nil
}
