package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// countryAlpha2Tag accepts exactly two ASCII letters in either case. The
// built-in country_code tag also takes alpha-3 and numeric codes.
const countryAlpha2Tag = "country_alpha2"

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator with custom tags registered.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(jsonFieldName)
		if err := validate.RegisterValidation(countryAlpha2Tag, validateCountryAlpha2); err != nil {
			panic(fmt.Sprintf("register %s validation: %v", countryAlpha2Tag, err))
		}
	})
	return validate
}

// ValidateStruct validates s and returns a *ValidationError with one message per field.
func ValidateStruct(s interface{}) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return NewValidationError(verrs)
	}
	return err
}

func validateCountryAlpha2(fl validator.FieldLevel) bool {
	code := fl.Field().String()
	if len(code) != 2 {
		return false
	}
	for _, r := range code {
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return false
		}
	}
	return true
}

// jsonFieldName reports fields by their JSON names.
func jsonFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}
