package validator

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrEmptyPhone indicates phone number is empty
	ErrEmptyPhone = errors.New("phone number cannot be empty")

	// ErrInvalidPhone indicates the number is not an Ethiopian mobile number
	ErrInvalidPhone = errors.New("phone number must start with +251 or 0, followed by 9 or 7 and 8 digits")
)

// ethiopianMobile accepts +2519XXXXXXXX, +2517XXXXXXXX, 09XXXXXXXX and 07XXXXXXXX
var ethiopianMobile = regexp.MustCompile(`^(\+251|0)(9|7)[0-9]{8}$`)

var separators = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")

// PhoneValidator handles phone number validation
type PhoneValidator struct{}

// NewPhoneValidator creates a new phone validator instance
func NewPhoneValidator() *PhoneValidator {
	return &PhoneValidator{}
}

// Validate checks an Ethiopian mobile number and returns it without separators
func (v *PhoneValidator) Validate(phone string) (string, error) {
	if strings.TrimSpace(phone) == "" {
		return "", ErrEmptyPhone
	}

	sanitized := v.Sanitize(phone)
	if !ethiopianMobile.MatchString(sanitized) {
		return "", ErrInvalidPhone
	}
	return sanitized, nil
}

// Sanitize removes spaces, dashes, dots and parentheses. A leading + is kept.
func (v *PhoneValidator) Sanitize(phone string) string {
	return separators.Replace(strings.TrimSpace(phone))
}

// IsValid is a convenience method that returns true if phone is valid
func (v *PhoneValidator) IsValid(phone string) bool {
	_, err := v.Validate(phone)
	return err == nil
}
