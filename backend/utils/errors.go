package utils

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// ErrorKind classifies a failure so callers can branch on it instead of
// matching message strings.
type ErrorKind string

const (
	// ErrKindNotFound - a referenced entity does not exist. Not retried.
	ErrKindNotFound ErrorKind = "not_found"
	// ErrKindValidation - malformed input or malformed model output. The
	// operation aborted with nothing persisted.
	ErrKindValidation ErrorKind = "validation_error"
	// ErrKindGeneration - the external generative call failed, timed out or
	// returned no content.
	ErrKindGeneration ErrorKind = "generation_error"
	// ErrKindConflict - a sequence-number race that survived retries.
	ErrKindConflict ErrorKind = "concurrency_conflict"
)

// AppError carries the failure class, a human-readable message and, for
// validation failures on model output, the raw text for diagnosis.
type AppError struct {
	Kind    ErrorKind
	Message string
	Raw     string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Status maps the error kind to an HTTP status code.
func (e *AppError) Status() int {
	switch e.Kind {
	case ErrKindNotFound:
		return fiber.StatusNotFound
	case ErrKindValidation:
		return fiber.StatusUnprocessableEntity
	case ErrKindGeneration:
		return fiber.StatusBadGateway
	case ErrKindConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func NotFoundError(message string) *AppError {
	return &AppError{Kind: ErrKindNotFound, Message: message}
}

func ValidationFailure(message, raw string) *AppError {
	return &AppError{Kind: ErrKindValidation, Message: message, Raw: raw}
}

func GenerationFailure(message string, err error) *AppError {
	return &AppError{Kind: ErrKindGeneration, Message: message, Err: err}
}

func ConflictError(message string, err error) *AppError {
	return &AppError{Kind: ErrKindConflict, Message: message, Err: err}
}

// IsKind reports whether err is an AppError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Kind == kind
}
