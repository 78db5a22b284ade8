// Package validation wraps go-playground/validator so request structs can
// declare their rules as tags and get a domain error back.
package validation

import (
	"errors"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	dErrors "warden/pkg/domain-errors"
)

var defaultValidator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("digits", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		return value != "" && strings.Trim(value, "0123456789") == ""
	})
	return v
}

// Validate checks the struct tags of req. The first failure becomes a
// validation_error.
func Validate(req any) error {
	if err := defaultValidator.Struct(req); err != nil {
		return dErrors.New(dErrors.CodeValidation, ErrorMessage(err))
	}
	return nil
}

// tagMessages holds the message per validator tag. {field} is the snake
// case field name and {param} the tag parameter.
var tagMessages = map[string]string{
	"required":         "{field} is required",
	"email":            "{field} must be a valid email",
	"url":              "{field} must be a valid url",
	"uuid":             "{field} must be a valid uuid",
	"e164":             "{field} must be an E.164 phone number",
	"fqdn":             "{field} must be a valid domain",
	"hostname_rfc1123": "{field} must be a valid domain",
	"digits":           "{field} must contain only digits",
	"min":              "{field} must be at least {param}",
	"max":              "{field} must be at most {param}",
	"len":              "{field} must be exactly {param} characters",
	"oneof":            "{field} must be one of [{param}]",
	"notblank":         "{field} must not be blank",
	"excluded_with":    "{field} cannot be combined with {param}",
}

// ErrorMessage describes the first failed rule in err.
func ErrorMessage(err error) string {
	var failures validator.ValidationErrors
	if !errors.As(err, &failures) || len(failures) == 0 {
		return "invalid request body"
	}

	fe := failures[0]
	name := fe.Field()
	if name == "" {
		name = fe.StructField()
	}
	field := jsonFieldName(name)

	tmpl, ok := tagMessages[fe.ActualTag()]
	switch {
	case ok:
	case field == "":
		return "invalid request body"
	default:
		tmpl = "{field} is invalid"
	}
	param := fe.Param()
	if fe.ActualTag() == "excluded_with" {
		param = jsonFieldName(param)
	}
	return strings.NewReplacer("{field}", field, "{param}", param).Replace(tmpl)
}

// jsonFieldName turns a struct field name such as TenantID into tenant_id.
func jsonFieldName(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 &&
			(unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
