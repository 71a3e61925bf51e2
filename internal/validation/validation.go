// README: Struct validation with go-playground/validator; errors keyed by JSON field name.
package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	v *validator.Validate

	reExpiry = regexp.MustCompile(`^\d{2}/\d{2}$`)
)

func init() {
	v = validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("cardnumber", func(fl validator.FieldLevel) bool {
		return ValidCardNumber(fl.Field().String())
	})
	_ = v.RegisterValidation("cvv", func(fl validator.FieldLevel) bool {
		n := len(fl.Field().String())
		return n >= 3 && n <= 4
	})
	_ = v.RegisterValidation("expiry", func(fl validator.FieldLevel) bool {
		return reExpiry.MatchString(fl.Field().String())
	})
}

// NormalizeCardNumber strips the whitespace clients insert for readability.
func NormalizeCardNumber(s string) string {
	return strings.Join(strings.Fields(s), "")
}

// ValidCardNumber accepts 13 to 19 digits once whitespace is removed.
func ValidCardNumber(s string) bool {
	s = NormalizeCardNumber(s)
	if len(s) < 13 || len(s) > 19 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Validate returns map[field][]messages; a nil map means s is valid.
func Validate(s any) (map[string][]string, error) {
	err := v.Struct(s)
	if err == nil {
		return nil, nil
	}
	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil, err
	}
	out := make(map[string][]string)
	for _, e := range ve {
		field := e.Field()
		out[field] = append(out[field], message(e))
	}
	return out, nil
}

func message(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "min":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("Must be at least %s characters", e.Param())
		}
		return fmt.Sprintf("Must be at least %s", e.Param())
	case "max":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("Must be at most %s characters", e.Param())
		}
		return fmt.Sprintf("Must be at most %s", e.Param())
	case "oneof":
		return "Value is not allowed"
	case "gte":
		return fmt.Sprintf("Must be greater than or equal to %s", e.Param())
	case "lte":
		return fmt.Sprintf("Must be less than or equal to %s", e.Param())
	case "cardnumber":
		return "Card number must be 13 to 19 digits"
	case "cvv":
		return "CVV must be 3 or 4 characters"
	case "expiry":
		return "Expiry must look like MM/YY"
	}
	return e.Error()
}
