// Package validation holds the shared validator used for user input, for
// records crossing the local cache boundary, and for echo request binding.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/ableconnect/connect-agent/internal/core/domain"
)

const minPasswordLen = 8

var (
	digitRe   = regexp.MustCompile(`\d`)
	upperRe   = regexp.MustCompile(`[A-Z]`)
	specialRe = regexp.MustCompile(`[!@#$%^&*()_+\-=\[\]{};':"\\|,.<>/?]`)
)

// Validator wraps go-playground/validator with the agent's custom rules.
type Validator struct {
	v *validator.Validate
}

var std = New()

// New returns a Validator with the password and notblank rules registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return strings.ToLower(f.Name)
		}
		return name
	})
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return PasswordOK(fl.Field().String())
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		f := fl.Field()
		if f.Kind() == reflect.String {
			return strings.TrimSpace(f.String()) != ""
		}
		return !f.IsZero()
	})
	return &Validator{v: v}
}

// PasswordOK applies the account password policy.
func PasswordOK(s string) bool {
	return utf8.RuneCountInString(s) >= minPasswordLen &&
		digitRe.MatchString(s) &&
		upperRe.MatchString(s) &&
		specialRe.MatchString(s)
}

// Struct validates s and returns an error wrapping domain.ErrInvalidInput
// that lists every failing field.
func (v *Validator) Struct(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		msgs := make([]string, 0, len(ve))
		for _, fe := range ve {
			msgs = append(msgs, fieldError(fe))
		}
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(msgs, "; "))
	}
	return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
}

// Validate satisfies echo.Validator.
func (v *Validator) Validate(i any) error { return v.Struct(i) }

// Check validates s with the shared instance.
func Check(s any) error { return std.Struct(s) }

// Invalid builds an input error with a free-form message.
func Invalid(msg string) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidInput, msg)
}

func fieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required", "notblank":
		return field + " is required"
	case "required_if":
		return field + " must be selected"
	case "email":
		return field + " must be a valid email"
	case "url":
		return field + " must be a valid URL"
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "eqfield":
		return "passwords do not match"
	case "password":
		return fmt.Sprintf("%s must be at least %d characters and include a number, an uppercase letter and a special character", field, minPasswordLen)
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}
