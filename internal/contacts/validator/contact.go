package validator

import (
	"errors"
	"fmt"
	"strings"

	"ambulance/pkg/logger"
	"ambulance/pkg/model"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	messages := make([]string, 0, len(v))
	for _, err := range v {
		messages = append(messages, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type ContactValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewContactValidator(log *logger.Logger) *ContactValidator {
	return &ContactValidator{validate: validator.New(), logger: log}
}

func (v *ContactValidator) Validate(contact *model.EmergencyContact) error {
	err := v.validate.Struct(contact)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		v.logger.Warn("unexpected validation error type", "error", err)
		return err
	}

	var out ValidationErrors
	for _, fe := range validationErrs {
		out = append(out, ValidationError{Field: fe.Field(), Message: translate(fe)})
	}
	return out
}

func translate(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "e164":
		return fmt.Sprintf("%s must be a valid phone number (e.g., +6281234567890)", fe.Field())
	case "mongodb":
		return fmt.Sprintf("%s must be a valid ID", fe.Field())
	default:
		return fe.Error()
	}
}
