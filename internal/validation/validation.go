// Package validation checks user input and reports failures as validation errors.
package validation

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"

	"socialhub/internal/models"

	"github.com/go-playground/validator/v10"
)

var (
	usernameRegex   = regexp.MustCompile(`^[a-zA-Z0-9_.]{3,30}$`)
	storageKeyRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9/_.\-]{0,511}$`)
)

// Names that collide with routes or with the placeholder shown for missing actors.
var reservedUsernames = map[string]struct{}{
	"me":      {},
	"admin":   {},
	"api":     {},
	"search":  {},
	"unknown": {},
	"ws":      {},
	"health":  {},
	"metrics": {},
	"swagger": {},
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return ValidateUsername(fl.Field().String()) == nil
	})
	_ = v.RegisterValidation("imageref", func(fl validator.FieldLevel) bool {
		return ValidateImageRef(fl.Field().String()) == nil
	})
	return v
}

// Struct checks the `validate` tags on v and returns the first failure as a
// ValidationError naming the JSON field.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return models.NewValidationError(describe(fieldErrs[0]))
	}
	return models.NewValidationError(err.Error())
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "username":
		return fmt.Sprintf("%s must be 3-30 letters, digits, underscores or dots", field)
	case "imageref":
		return fmt.Sprintf("%s must be an http(s) URL or a storage key", field)
	}
	return fmt.Sprintf("%s is invalid", field)
}

// ValidateUsername checks format and reserved names.
func ValidateUsername(name string) error {
	if !usernameRegex.MatchString(name) {
		return fmt.Errorf("username must be 3-30 characters of letters, digits, underscores or dots")
	}
	if _, reserved := reservedUsernames[strings.ToLower(name)]; reserved {
		return fmt.Errorf("username is reserved")
	}
	return nil
}

// ValidateImageRef accepts absolute http(s) URLs and relative storage keys.
func ValidateImageRef(ref string) error {
	if ref == "" {
		return fmt.Errorf("image reference is required")
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		u, err := url.ParseRequestURI(ref)
		if err != nil || u.Host == "" {
			return fmt.Errorf("image reference is not a valid URL")
		}
		return nil
	}
	if !storageKeyRegex.MatchString(ref) || strings.Contains(ref, "..") {
		return fmt.Errorf("image reference is not a valid storage key")
	}
	return nil
}

// Text trims s and checks it is non-empty and at most max characters.
// The trimmed text is returned.
func Text(field, s string, max int) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", models.NewValidationError(field + " is required")
	}
	if utf8.RuneCountInString(s) > max {
		return "", models.NewValidationError(fmt.Sprintf("%s too long (max %d characters)", field, max))
	}
	return s, nil
}

// MaxLength checks an optional field.
func MaxLength(field, s string, max int) error {
	if utf8.RuneCountInString(s) > max {
		return models.NewValidationError(fmt.Sprintf("%s too long (max %d characters)", field, max))
	}
	return nil
}
