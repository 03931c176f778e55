package utils

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestAppErrorStatusMapping(t *testing.T) {
	assert.Equal(t, fiber.StatusNotFound, NotFoundError("x").Status())
	assert.Equal(t, fiber.StatusUnprocessableEntity, ValidationFailure("x", "").Status())
	assert.Equal(t, fiber.StatusBadGateway, GenerationFailure("x", nil).Status())
	assert.Equal(t, fiber.StatusConflict, ConflictError("x", nil).Status())
}

func TestAppErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := GenerationFailure("upstream call failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "generation_error")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestIsKind(t *testing.T) {
	err := ValidationFailure("bad payload", "raw text")

	assert.True(t, IsKind(err, ErrKindValidation))
	assert.False(t, IsKind(err, ErrKindNotFound))
	assert.False(t, IsKind(errors.New("plain"), ErrKindValidation))

	// Kind checks survive wrapping.
	wrapped := fmt.Errorf("handling request: %w", err)
	assert.True(t, IsKind(wrapped, ErrKindValidation))
}
