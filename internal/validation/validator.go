// Fleetwatch - Fleet Simulation and Threat Correlation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fleetwatch

// Package validation wraps go-playground/validator v10 behind a singleton
// and translates field errors into the API's VALIDATION_ERROR envelope.
//
//	type RegisterUnitRequest struct {
//	    UnitID string `json:"unit_id" validate:"required,unit_id"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    respondAPIError(w, http.StatusBadRequest, verr.ToAPIError())
//	}
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/tomtom215/fleetwatch/internal/models"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// unitIDPattern allows letters, digits, dash, underscore, dot and colon.
var unitIDPattern = regexp.MustCompile(`^[A-Za-z0-9_.:-]+$`)

// FieldError is one failed rule on one request field.
type FieldError struct {
	// Field is the JSON name of the field.
	Field string
	// Tag is the rule that failed, e.g. "max" or "unit_id".
	Tag   string
	Param string
	Value interface{}
	// Message is the client-facing explanation.
	Message string
}

// RequestValidationError collects every failed field of one request, in
// struct field order.
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
	for i := range ve.Fields {
		out[i] = ve.Fields[i].Message
	}
	return out
}

// ToAPIError converts the failures into the VALIDATION_ERROR envelope error.
// A single failure is reported flat; several are listed under "fields".
func (ve *RequestValidationError) ToAPIError() *models.APIError {
	apiErr := &models.APIError{Code: "VALIDATION_ERROR", Message: ve.Error()}

	switch len(ve.Fields) {
	case 0:
		apiErr.Message = "Validation failed"
	case 1:
		fe := ve.Fields[0]
		apiErr.Details = map[string]interface{}{
			"field": fe.Field,
			"tag":   fe.Tag,
			"value": fe.Value,
		}
	default:
		fields := make([]map[string]interface{}, len(ve.Fields))
		for i, fe := range ve.Fields {
			fields[i] = map[string]interface{}{
				"field":   fe.Field,
				"tag":     fe.Tag,
				"message": fe.Message,
			}
		}
		apiErr.Details = map[string]interface{}{"fields": fields}
	}
	return apiErr
}

// GetValidator returns the process-wide validator, building it on first use.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Report JSON field names so errors match what clients sent.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})

		_ = validate.RegisterValidation("unit_id", func(fl validator.FieldLevel) bool {
			return unitIDPattern.MatchString(fl.Field().String())
		})
	})
	return validate
}

// ValidateStruct validates s. It returns nil when every rule passes.
func ValidateStruct(s interface{}) *RequestValidationError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return &RequestValidationError{
			Fields: []FieldError{{Field: "unknown", Tag: "unknown", Message: err.Error()}},
		}
	}

	fields := make([]FieldError, len(validationErrs))
	for i, fe := range validationErrs {
		fields[i] = FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Value:   fe.Value(),
			Message: translateError(fe),
		}
	}
	return &RequestValidationError{Fields: fields}
}

var errorMessageTemplates = map[string]string{
	"required":  "%s is required",
	"latitude":  "%s must be a valid latitude (-90 to 90)",
	"longitude": "%s must be a valid longitude (-180 to 180)",
	"unit_id":   "%s may only contain letters, digits, '-', '_', '.' and ':'",
}

var errorMessageWithParam = map[string]string{
	"oneof": "%s must be one of: %s",
	"gte":   "%s must be greater than or equal to %s",
	"lte":   "%s must be less than or equal to %s",
	"gt":    "%s must be greater than %s",
	"lt":    "%s must be less than %s",
}

func translateError(fe validator.FieldError) string {
	field, tag, param := fe.Field(), fe.Tag(), fe.Param()

	if template, ok := errorMessageTemplates[tag]; ok {
		return fmt.Sprintf(template, field)
	}
	if template, ok := errorMessageWithParam[tag]; ok {
		return fmt.Sprintf(template, field, param)
	}

	isString := fe.Kind() == reflect.String
	switch tag {
	case "min":
		if isString {
			return fmt.Sprintf("%s must be at least %s characters", field, param)
		}
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		if isString {
			return fmt.Sprintf("%s must be at most %s characters", field, param)
		}
		return fmt.Sprintf("%s must be at most %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, tag)
	}
}
