// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// MaxWindow is the largest limit+offset MangaDex accepts for list queries.
const MaxWindow = 10000

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

var (
	langPattern     = regexp.MustCompile(`^[a-z]{2}(-[a-z]{2})?$`)
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,30}$`)
	otpPattern      = regexp.MustCompile(`^[0-9]{6}$`)
)

// Page is embedded by list queries. Validation rejects windows MangaDex
// would refuse.
type Page struct {
	Limit  int `query:"limit" validate:"min=1,max=100"`
	Offset int `query:"offset" validate:"min=0"`
}

// FieldError is one rejected field.
type FieldError struct {
	Field   string
	Tag     string
	Param   string // "100" for max=100
	Value   interface{}
	Message string
}

func (e FieldError) Error() string { return e.Message }

// RequestValidationError carries every field a request got wrong.
type RequestValidationError struct {
	Fields []FieldError
}

func (ve *RequestValidationError) Error() string {
	if len(ve.Fields) == 0 {
		return "validation failed"
	}
	return strings.Join(ve.messages(), "; ")
}

func (ve *RequestValidationError) messages() []string {
	out := make([]string, len(ve.Fields))
	for i, f := range ve.Fields {
		out[i] = f.Message
	}
	return out
}

// NewFieldError reports a single field that could not be parsed, before
// struct validation runs (a non-numeric limit, for example).
func NewFieldError(field, tag string, value interface{}, message string) *RequestValidationError {
	return &RequestValidationError{
		Fields: []FieldError{{Field: field, Tag: tag, Value: value, Message: message}},
	}
}

// APIError is the client facing form of a validation failure.
type APIError struct {
	Code    string
	Message string
	Details map[string]interface{}
}

// ToAPIError converts validation errors to the API error format. A single
// failure is flattened into details; several are listed under "fields".
// Values of secret fields are never echoed.
func (ve *RequestValidationError) ToAPIError() *APIError {
	apiErr := &APIError{Code: "VALIDATION_ERROR", Message: "Validation failed"}

	switch len(ve.Fields) {
	case 0:
	case 1:
		f := ve.Fields[0]
		apiErr.Message = f.Message
		apiErr.Details = map[string]interface{}{"field": f.Field, "tag": f.Tag}
		if !sensitiveField(f.Field) {
			apiErr.Details["value"] = f.Value
		}
	default:
		fields := make([]map[string]interface{}, len(ve.Fields))
		for i, f := range ve.Fields {
			fields[i] = map[string]interface{}{"field": f.Field, "tag": f.Tag, "message": f.Message}
		}
		apiErr.Message = strings.Join(ve.messages(), "; ")
		apiErr.Details = map[string]interface{}{"fields": fields}
	}
	return apiErr
}

// sensitiveField reports whether a field's value must not be echoed back.
func sensitiveField(field string) bool {
	f := strings.ToLower(field)
	return strings.Contains(f, "password") || f == "otp" || f == "token"
}

// GetValidator returns the shared validator with the lang, username and otp
// tags and the Page window rule registered.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(fieldName)

		mustRegister(validate, "lang", matches(langPattern))
		mustRegister(validate, "username", matches(usernamePattern))
		mustRegister(validate, "otp", matches(otpPattern))
		validate.RegisterStructValidation(validatePage, Page{})
	})

	return validate
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validation: register %q: %v", tag, err))
	}
}

func matches(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

// fieldName reports the json or query name of a field.
func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "query"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

func validatePage(sl validator.StructLevel) {
	p := sl.Current().Interface().(Page)
	if p.Limit+p.Offset > MaxWindow {
		sl.ReportError(p.Offset, "offset", "Offset", "window", fmt.Sprint(MaxWindow))
	}
}

// ValidateStruct validates a struct using the singleton validator.
// Returns nil if validation passes, or *RequestValidationError if validation fails.
func ValidateStruct(s interface{}) *RequestValidationError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return NewFieldError("unknown", "unknown", nil, err.Error())
	}

	out := &RequestValidationError{Fields: make([]FieldError, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Fields = append(out.Fields, FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Value:   fe.Value(),
			Message: translateError(fe),
		})
	}
	return out
}

// errorMessageTemplates maps validation tags to message templates.
var errorMessageTemplates = map[string]string{
	"required": "%s is required",
	"email":    "%s must be a valid email address",
	"uuid":     "%s must be a valid UUID",
	"lang":     "%s must be a language code such as vi, en or pt-br",
	"username": "%s must be 1 to 30 letters, digits, '.', '_' or '-'",
	"otp":      "%s must be a 6 digit code",
}

// errorMessageWithParam maps validation tags to templates that include param.
var errorMessageWithParam = map[string]string{
	"oneof":  "%s must be one of: %s",
	"gte":    "%s must be greater than or equal to %s",
	"lte":    "%s must be less than or equal to %s",
	"window": "limit + %s must not exceed %s",
}

// translateError converts a validator.FieldError to a human-readable message.
func translateError(fe validator.FieldError) string {
	field, tag, param := fe.Field(), fe.Tag(), fe.Param()

	if template, ok := errorMessageTemplates[tag]; ok {
		return fmt.Sprintf(template, field)
	}
	if template, ok := errorMessageWithParam[tag]; ok {
		return fmt.Sprintf(template, field, param)
	}

	unit := ""
	if fe.Kind() == reflect.String {
		unit = " characters"
	}
	switch tag {
	case "min":
		return fmt.Sprintf("%s must be at least %s%s", field, param, unit)
	case "max":
		return fmt.Sprintf("%s must be at most %s%s", field, param, unit)
	default:
		return fmt.Sprintf("%s failed %s validation", field, tag)
	}
}
