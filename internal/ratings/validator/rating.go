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

type RatingValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewRatingValidator(log *logger.Logger) *RatingValidator {
	return &RatingValidator{validate: validator.New(), logger: log}
}

func (v *RatingValidator) Validate(rating *model.Rating) error {
	err := v.validate.Struct(rating)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	var out ValidationErrors
	for _, fe := range validationErrs {
		message := fe.Error()
		switch fe.Tag() {
		case "required", "min", "max":
			if fe.Kind().String() == "int" {
				message = fmt.Sprintf("%s must be between 1 and 5", fe.Field())
			} else if fe.Tag() == "max" {
				message = fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
			} else {
				message = fmt.Sprintf("%s is required", fe.Field())
			}
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid MongoDB ObjectID", fe.Field())
		}
		out = append(out, ValidationError{Field: fe.Field(), Message: message})
	}
	return out
}
