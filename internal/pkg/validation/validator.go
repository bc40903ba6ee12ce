package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mrniikke/fitness-challange/internal/pkg/apperrors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Report json field names rather than Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("invitecode", func(fl validator.FieldLevel) bool {
		return IsInviteCode(strings.TrimSpace(fl.Field().String()))
	})

	_ = v.RegisterValidation("name", func(fl validator.FieldLevel) bool {
		return IsName(fl.Field().String())
	})

	return v
}

// Struct validates s against its `validate` tags. Failures are returned as a
// validation error whose details map json field names to messages.
func Struct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewValidationError(err, "invalid request")
	}

	details := make(map[string]interface{}, len(fieldErrs))
	var cause error
	for _, fe := range fieldErrs {
		details[fe.Field()] = formatFieldError(fe)
		if fe.Tag() == "invitecode" {
			cause = apperrors.ErrInvalidInviteCode
		}
	}

	return apperrors.NewValidationError(cause, "invalid request").WithDetails(details)
}

// formatFieldError creates a human-readable validation error message
func formatFieldError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "min":
		return e.Field() + " must be at least " + e.Param()
	case "max":
		return e.Field() + " must be at most " + e.Param()
	case "gt":
		return e.Field() + " must be greater than " + e.Param()
	case "invitecode":
		return e.Field() + " must be 8 letters or digits"
	case "name":
		return fmt.Sprintf("%s must be %d to %d characters", e.Field(), NameMinLength, NameMaxLength)
	default:
		return e.Field() + " validation failed: " + e.Tag()
	}
}
