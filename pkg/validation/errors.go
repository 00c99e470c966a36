package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError carries one message per offending JSON field.
type ValidationError struct {
	Errors map[string]string `json:"errors"`
}

// Error joins the field messages in field order.
func (v *ValidationError) Error() string {
	fields := make([]string, 0, len(v.Errors))
	for field := range v.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	messages := make([]string, 0, len(fields))
	for _, field := range fields {
		messages = append(messages, v.Errors[field])
	}
	return strings.Join(messages, "; ")
}

// NewValidationError converts validator output into field messages.
func NewValidationError(errs validator.ValidationErrors) *ValidationError {
	v := &ValidationError{Errors: make(map[string]string, len(errs))}
	for _, fe := range errs {
		v.Errors[fe.Field()] = message(fe)
	}
	return v
}

// HasErrors reports whether any field failed.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// GetFieldError returns the message recorded for field.
func (v *ValidationError) GetFieldError(field string) (string, bool) {
	msg, ok := v.Errors[field]
	return msg, ok
}

var messageFormats = map[string]string{
	"required":       "%s is required",
	"email":          "%s must be a valid email address",
	"ip":             "%s must be a valid IPv4 or IPv6 address",
	"country_alpha2": "%s must be a two-letter ISO 3166-1 country code",
	"uuid":           "%s must be a valid UUID",
	"max":            "%s must be at most %s characters long",
	"oneof":          "%s must be one of: %s",
}

func message(fe validator.FieldError) string {
	format, ok := messageFormats[fe.Tag()]
	if !ok {
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
	if strings.Count(format, "%s") == 2 {
		return fmt.Sprintf(format, fe.Field(), fe.Param())
	}
	return fmt.Sprintf(format, fe.Field())
}
