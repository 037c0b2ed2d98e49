package validator

import (
	"errors"
	"fmt"
	"strings"

	"reliefbridge/pkg/e"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	RegisterCustomValidations(validate)
}

// ValidateStruct checks s and translates the first failure into a domain
// sentinel so the HTTP layer can map it like any other error.
func ValidateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%v: %w", err, e.ErrInvalidInput)
	}

	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "lat", "lng":
		return fmt.Errorf("%s=%v: %w", field, fe.Value(), e.ErrInvalidCoordinate)
	case "required":
		return fmt.Errorf("%s: %w", field, e.ErrMissingField)
	default:
		return fmt.Errorf("%s failed %q: %w", field, fe.Tag(), e.ErrInvalidInput)
	}
}
