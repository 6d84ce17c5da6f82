package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidRequest is returned before sending a request body that fails
// validation.
var ErrInvalidRequest = errors.New("invalid request")

// tonAddressPrefixes are the user-friendly TON address forms accepted by
// the wallet endpoints.
var tonAddressPrefixes = []string{"EQ", "UQ", "kQ"}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("tonaddress", func(fl validator.FieldLevel) bool {
		return ValidTONAddress(fl.Field().String())
	})
	return v
}

// ValidTONAddress reports whether addr is a 48 character user-friendly
// TON address.
func ValidTONAddress(addr string) bool {
	if len(addr) != 48 {
		return false
	}
	for _, p := range tonAddressPrefixes {
		if strings.HasPrefix(addr, p) {
			return true
		}
	}
	return false
}

// FormatValidationError joins field errors into one readable line.
func FormatValidationError(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}
	messages := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		messages = append(messages, fieldErrorMessage(fe))
	}
	return strings.Join(messages, "; ")
}

func fieldErrorMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "tonaddress":
		return fmt.Sprintf("%s must be a 48 character TON address starting with EQ, UQ or kQ", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
