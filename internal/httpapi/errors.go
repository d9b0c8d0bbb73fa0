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

// Package httpapi wires the service's HTTP surface: route table, request
// decoding, and error-kind-to-status-code mapping.
package httpapi

import "fmt"

// Kind classifies an apperr the way every handler needs to answer one
// question: what HTTP status does this become?
type Kind string

// The error kinds spec's error handling design names.
const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindGone         Kind = "gone"
	KindUnauthorized Kind = "unauthorized"
	KindConflict     Kind = "conflict"
	KindInternal     Kind = "internal"
)

// AppError is a single error type carrying enough information for a
// handler to render a consistent JSON error body, generalizing the
// teacher's field/message/code ValidationError to the other kinds spec
// names.
type AppError struct {
	Kind    Kind
	Field   string
	Message string
}

func (e *AppError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// Validation builds a KindValidation AppError, optionally naming the
// offending field.
func Validation(field, message string) *AppError {
	return &AppError{Kind: KindValidation, Field: field, Message: message}
}

// NotFound builds a KindNotFound AppError.
func NotFound(message string) *AppError {
	return &AppError{Kind: KindNotFound, Message: message}
}

// Gone builds a KindGone AppError.
func Gone(message string) *AppError {
	return &AppError{Kind: KindGone, Message: message}
}

// Unauthorized builds a KindUnauthorized AppError.
func Unauthorized(message string) *AppError {
	return &AppError{Kind: KindUnauthorized, Message: message}
}

// Conflict builds a KindConflict AppError.
func Conflict(message string) *AppError {
	return &AppError{Kind: KindConflict, Message: message}
}

// Internal builds a KindInternal AppError.
func Internal(message string) *AppError {
	return &AppError{Kind: KindInternal, Message: message}
}

// statusForKind maps each Kind to the HTTP status code a handler should
// respond with.
func statusForKind(k Kind) int {
	switch k {
	case KindValidation:
		return 400
	case KindNotFound:
		return 404
	case KindGone:
		return 410
	case KindUnauthorized:
		return 401
	case KindConflict:
		return 409
	default:
		return 500
	}
}
