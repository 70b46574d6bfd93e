package service

import (
	"reflect"

	"github.com/go-playground/validator/v10"

	domainerrors "github.com/pagekeep/pagekeep-server/internal/errors"
)

var validate = func() *validator.Validate {
	v := validator.New()
	// Use JSON tag names for field names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := fld.Tag.Get("json")
		if name == "" {
			return fld.Name
		}
		// Remove any options (like omitempty, -)
		for i := 0; i < len(name); i++ {
			if name[i] == ',' {
				return name[:i]
			}
		}
		return name
	})
	return v
}()

// formatValidationError converts validator errors into domain errors with
// client-friendly messages.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if domainerrors.As(err, &validationErrs) {
		for _, e := range validationErrs {
			field := e.Field()
			switch e.Tag() {
			case "required":
				return domainerrors.Validationf("%s is required", field)
			case "gt":
				return domainerrors.Validationf("%s must be greater than %s", field, e.Param())
			case "gte":
				return domainerrors.Validationf("%s must be at least %s", field, e.Param())
			case "oneof":
				return domainerrors.Validationf("%s must be one of: %s", field, e.Param())
			default:
				return domainerrors.Validationf("%s is invalid", field)
			}
		}
	}
	return err
}
