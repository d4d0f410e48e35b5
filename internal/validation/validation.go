// Package validation binds request payloads and validates them with
// go-playground/validator, producing field-level errors for clients.
package validation

import (
	"sync"
	"unicode"

	"github.com/deppfellow/stockroom/internal/lib/password"
	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate
)

// Validator returns the shared validator with the custom tags registered.
func Validator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("password", validatePassword)
	})
	return validate
}

// MinPasswordLength is the shortest password accepted for an account.
const MinPasswordLength = 8

// validatePassword requires MinPasswordLength characters including a digit,
// an upper-case and a lower-case letter.
func validatePassword(fl validator.FieldLevel) bool {
	return PasswordProblem(fl.Field().String()) == ""
}

// PasswordProblem describes why plaintext is unacceptable, or returns "".
func PasswordProblem(plaintext string) string {
	if len([]rune(plaintext)) < MinPasswordLength {
		return "must be at least 8 characters"
	}
	if len(plaintext) > password.MaxBytes {
		return "must be at most 72 bytes"
	}

	var digit, upper, lower bool
	for _, r := range plaintext {
		switch {
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		}
	}

	switch {
	case !digit:
		return "must contain a digit"
	case !upper:
		return "must contain an upper-case letter"
	case !lower:
		return "must contain a lower-case letter"
	}
	return ""
}
