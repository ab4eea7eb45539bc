package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"storefront/internal/apperr"

	"github.com/stretchr/testify/assert"
)

func TestError_IsKind(t *testing.T) {
	err := apperr.New(apperr.ErrEmptyCart, "Cart is empty")

	assert.True(t, errors.Is(err, apperr.ErrEmptyCart))
	assert.False(t, errors.Is(err, apperr.ErrValidation))
	assert.Equal(t, "Cart is empty", err.Error())
}

func TestError_WrapKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("placing order: %w", apperr.Wrap(apperr.ErrGateway, "Payment provider unavailable", cause))

	assert.True(t, errors.Is(err, apperr.ErrGateway))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "Payment provider unavailable", apperr.Message(err, "fallback"))
}

func TestMessage_Fallback(t *testing.T) {
	assert.Equal(t, "Internal server error", apperr.Message(errors.New("boom"), "Internal server error"))
}
