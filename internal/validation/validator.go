// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/tomtom215/beestat/internal/models"
)

// FieldError is one failed rule, named by the argument's JSON key.
type FieldError struct {
	Field   string
	Tag     string
	Param   string
	Message string
}

func (e FieldError) Error() string { return e.Message }

// RequestValidationError lists every argument that failed its rules.
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

// ToAPIError renders the failure as an envelope error with code 1003. A
// single failure reports its field and tag in details; several failures
// are listed under details.fields.
func (ve *RequestValidationError) ToAPIError() *models.APIError {
	apiErr := &models.APIError{Code: models.CodeInvalidArgument, Message: ve.Error()}
	switch len(ve.Fields) {
	case 0:
		apiErr.Message = "Validation failed"
	case 1:
		apiErr.Details = map[string]interface{}{"field": ve.Fields[0].Field, "tag": ve.Fields[0].Tag}
	default:
		list := make([]map[string]interface{}, 0, len(ve.Fields))
		for _, f := range ve.Fields {
			list = append(list, map[string]interface{}{"field": f.Field, "tag": f.Tag, "message": f.Message})
		}
		apiErr.Details = map[string]interface{}{"fields": list}
	}
	return apiErr
}

// AsCodedError wraps ve so it travels through plain error returns.
func (ve *RequestValidationError) AsCodedError() *models.CodedError {
	return &models.CodedError{Code: models.CodeInvalidArgument, Message: ve.ToAPIError().Message, Err: ve}
}

var (
	instance *validator.Validate
	once     sync.Once
)

// GetValidator returns the shared validator. Errors name fields by their
// json tag and the custom "notblank" rule rejects whitespace-only strings.
func GetValidator() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(jsonName)
		//nolint:errcheck // only fails for an empty tag
		_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		instance = v
	})
	return instance
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return f.Name
	}
	return name
}

// ValidateStruct checks s against its validate tags and returns nil when
// every rule passes.
func ValidateStruct(s interface{}) *RequestValidationError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &RequestValidationError{Fields: []FieldError{{Field: "arguments", Tag: "invalid", Message: err.Error()}}}
	}

	ve := &RequestValidationError{Fields: make([]FieldError, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		ve.Fields = append(ve.Fields, FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Message: describe(fe),
		})
	}
	return ve
}

func describe(fe validator.FieldError) string {
	name, p := fe.Field(), fe.Param()
	unit := ""
	if fe.Kind() == reflect.String {
		unit = " characters"
	}

	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "notblank":
		return name + " must not be blank"
	case "email":
		return name + " must be a valid email address"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", name, p)
	case "min":
		return fmt.Sprintf("%s must be at least %s%s", name, p, unit)
	case "max":
		return fmt.Sprintf("%s must be at most %s%s", name, p, unit)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", name, p)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", name, p)
	case "lt":
		return fmt.Sprintf("%s must be less than %s", name, p)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", name, p)
	default:
		return fmt.Sprintf("%s failed %s validation", name, fe.Tag())
	}
}
