package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	playground "github.com/go-playground/validator/v10"
)

// RequestValidator runs struct tag validation and reports every failing field
type RequestValidator struct {
	validate *playground.Validate
	phones   *PhoneValidator
}

// NewRequestValidator registers the ethphone tag on a fresh validator.
// It panics when the tag cannot be registered.
func NewRequestValidator() *RequestValidator {
	v := &RequestValidator{
		validate: playground.New(),
		phones:   NewPhoneValidator(),
	}
	v.validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		return jsonName(field.Tag.Get("json"), field.Name)
	})
	if err := v.register("ethphone", func(fl playground.FieldLevel) bool {
		return v.phones.IsValid(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

func (v *RequestValidator) register(tag string, fn playground.Func) error {
	if err := v.validate.RegisterValidation(tag, fn); err != nil {
		return fmt.Errorf("register %s validation: %w", tag, err)
	}
	return nil
}

// Violations validates s and returns one human-readable message per failing field.
// A nil result means s is valid.
func (v *RequestValidator) Violations(s interface{}) []string {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs playground.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []string{err.Error()}
	}

	out := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, message(fe))
	}
	return out
}

func message(fe playground.FieldError) string {
	field := label(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "ethphone":
		return "Invalid Ethiopian phone number format"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// label turns passenger_name into "Passenger name"
func label(field string) string {
	words := strings.ReplaceAll(field, "_", " ")
	if words == "" {
		return words
	}
	return strings.ToUpper(words[:1]) + words[1:]
}

func jsonName(tag, fallback string) string {
	name := strings.Split(tag, ",")[0]
	if name == "" || name == "-" {
		return fallback
	}
	return name
}
