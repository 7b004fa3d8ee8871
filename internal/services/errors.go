package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// Error kinds returned by every service. Callers match them with errors.Is.
var (
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("conflict")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")

	ErrDuplicateUsername = fmt.Errorf("%w: username already taken", ErrConflict)
	ErrDuplicateEmail    = fmt.Errorf("%w: email already registered", ErrConflict)
)

// ValidationError describes a single user-correctable input problem
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateInput runs struct tag validation and reports the first failing field
func validateInput(input interface{}) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			return invalid(field, "is required")
		case "min", "gte":
			return invalid(field, "must be at least "+fe.Param())
		case "max", "lte":
			return invalid(field, "must be at most "+fe.Param())
		case "email":
			return invalid(field, "must be a valid email address")
		default:
			return invalid(field, "is invalid")
		}
	}
	return fmt.Errorf("validate input: %w", err)
}

// translateNotFound maps gorm.ErrRecordNotFound to ErrNotFound
func translateNotFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("load %s: %w", what, err)
}
