package service

import (
	"errors"
	"fmt"

	"github.com/pageza/macrotrack/backend/internal/middleware"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUserExists          = errors.New("user already exists")
	ErrInvalidToken        = errors.New("invalid token")
	ErrProfileIncomplete   = errors.New("profile incomplete")
	ErrAPIKeyNotConfigured = errors.New("openai api key not configured")
	ErrDuplicateMealName   = errors.New("a frequent meal with this name already exists")
	ErrFrequentMealLimit   = errors.New("frequent meal limit reached")
	ErrStorageDisabled     = errors.New("photo storage is not configured")
	ErrValidation          = errors.New("validation failed")
)

// ErrUserNotFound satisfies both ErrNotFound and middleware.ErrUserNotFound.
var ErrUserNotFound = fmt.Errorf("%w: %w", ErrNotFound, middleware.ErrUserNotFound)

// ValidationError names the request field that failed a domain rule.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
