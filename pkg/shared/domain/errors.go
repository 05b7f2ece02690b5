// Savepoint Core
// Copyright (c) 2026 The Savepoint Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Savepoint Core.
//
// Savepoint Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Savepoint Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Savepoint Core.  If not, see <http://www.gnu.org/licenses/>.

// Package domain defines the error taxonomy shared by every component
// boundary. Components return a *Error so callers can branch on the code
// instead of matching message strings; partial failures during an import
// run are normal outcomes, not panics.
package domain

import (
	"errors"
	"fmt"
)

// Code classifies an error at a component boundary.
type Code string

const (
	CodeValidation          Code = "VALIDATION_ERROR"
	CodeNotFound            Code = "NOT_FOUND"
	CodeConflict            Code = "CONFLICT"
	CodeExternalUnavailable Code = "EXTERNAL_SERVICE_UNAVAILABLE"
	CodeRateLimited         Code = "RATE_LIMITED"
	CodeProfilePrivate      Code = "EXTERNAL_PROFILE_PRIVATE"
	CodeDatabase            Code = "DATABASE_ERROR"
	CodeInternal            Code = "INTERNAL_ERROR"
)

// Error is a tagged domain error. Message is safe to surface to users;
// upstream status codes and driver errors stay in the wrapped cause.
type Error struct {
	cause   error
	Fields  map[string]string
	Code    Code
	Message string
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New creates a domain error with no underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a domain error preserving the underlying cause for logging.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// NewValidation creates a validation error carrying field-level detail.
func NewValidation(message string, fields map[string]string) *Error {
	return &Error{Code: CodeValidation, Message: message, Fields: fields}
}

// CodeOf extracts the domain code from an error chain.
// Anything that is not a domain error is an unexpected failure.
func CodeOf(err error) Code {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return CodeInternal
}

// IsCode reports whether err carries the given domain code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// MessageOf returns the user-safe message from an error chain, or a
// generic fallback for unexpected errors.
func MessageOf(err error) string {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return "An unexpected error occurred"
}
