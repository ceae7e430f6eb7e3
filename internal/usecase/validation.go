package usecase

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/foodlog/backend/internal/domain"
)

var validate = validator.New()

// ValidateProfile checks a body profile against its field ranges.
func ValidateProfile(p domain.BodyProfile) error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrInvalidProfile, formatValidationError(err))
	}
	return nil
}

// ValidateOverride rejects negative manual targets.
func ValidateOverride(o domain.GoalOverride) error {
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrInvalidRequest, formatValidationError(err))
	}
	return nil
}

// formatValidationError joins field errors into one readable message.
func formatValidationError(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}
	msgs := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		msgs = append(msgs, formatFieldError(e))
	}
	return strings.Join(msgs, "; ")
}

func formatFieldError(e validator.FieldError) string {
	field := strings.ToLower(e.Field())

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, e.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
