package httputil

import (
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/flowlytix/distribution-backend/pkg/errors"
)

var validate = newValidator()

// lotNumberPattern: uppercase alphanumeric with dashes/underscores, per the
// lot number field contract.
var lotNumberPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9_-]*$`)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("lotnumber", func(fl validator.FieldLevel) bool {
		return lotNumberPattern.MatchString(fl.Field().String())
	})
	return v
}

// Validate validates a struct using go-playground/validator
func Validate(v interface{}) error {
	if err := validate.Struct(v); err != nil {
		validationErrors := err.(validator.ValidationErrors)
		details := make(map[string]string)

		for _, e := range validationErrors {
			details[e.Field()] = formatValidationError(e)
		}

		return errors.Validation(details)
	}
	return nil
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "this field is required"
	case "min":
		return "must be at least " + e.Param() + " characters"
	case "max":
		return "must be at most " + e.Param() + " characters"
	case "gt":
		return "must be greater than " + e.Param()
	case "gte":
		return "must be at least " + e.Param()
	case "lte":
		return "must be at most " + e.Param()
	case "uuid":
		return "must be a valid UUID"
	case "oneof":
		return "must be one of: " + e.Param()
	case "lotnumber":
		return "must contain only uppercase letters, digits, dashes, and underscores"
	default:
		return "invalid value"
	}
}
