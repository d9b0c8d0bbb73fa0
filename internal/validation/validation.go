// Copyright 2025 Patrick Deglon
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package validation provides reusable validation functions for request
// payloads. Centralizing these keeps error messages and codes consistent
// across the link, goal and conversion endpoints.
package validation

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a validation failure with a helpful message.
type ValidationError struct {
	Field   string // The field that failed validation
	Message string // Human-readable error message
	Code    string // Machine-readable error code
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// ValidationErrors represents multiple validation failures.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (errs ValidationErrors) Error() string {
	if len(errs) == 0 {
		return ""
	}
	if len(errs) == 1 {
		return errs[0].Error()
	}
	var messages []string
	for _, err := range errs {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// HasErrors returns true if there are any validation errors.
func (errs ValidationErrors) HasErrors() bool {
	return len(errs) > 0
}

// Required validates that a string field is not empty.
func Required(field, value string) *ValidationError {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Message: "is required", Code: "required"}
	}
	return nil
}

// MaxLength validates that a string does not exceed the maximum length.
func MaxLength(field, value string, max int) *ValidationError {
	if len(value) > max {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must not exceed %d characters (got %d)", max, len(value)),
			Code:    "max_length",
		}
	}
	return nil
}

// URL validates that a string is a valid HTTP/HTTPS URL. An empty value is
// not flagged — pair with Required when the field is mandatory.
func URL(field, value string) *ValidationError {
	if value == "" {
		return nil
	}
	u, err := url.Parse(value)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ValidationError{Field: field, Message: "must be a valid HTTP or HTTPS URL", Code: "invalid_url"}
	}
	return nil
}

// OneOf validates that a string is one of the allowed values.
func OneOf(field, value string, allowed []string) *ValidationError {
	if value == "" {
		return nil
	}
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")),
		Code:    "invalid_value",
	}
}

// IntRange validates that an integer is within the specified range (inclusive).
func IntRange(field string, value, min, max int) *ValidationError {
	if value < min || value > max {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be between %d and %d (got %d)", min, max, value),
			Code:    "out_of_range",
		}
	}
	return nil
}

// Validator chains multiple validations, collecting every failure.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new Validator instance.
func NewValidator() *Validator {
	return &Validator{errors: make(ValidationErrors, 0)}
}

// Add adds a validation error if it's not nil.
func (v *Validator) Add(err *ValidationError) *Validator {
	if err != nil {
		v.errors = append(v.errors, *err)
	}
	return v
}

// Errors returns all validation errors, or nil if there are none.
func (v *Validator) Errors() error {
	if len(v.errors) == 0 {
		return nil
	}
	return v.errors
}

// HasErrors returns true if there are any validation errors.
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}
