// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package models

import (
	"errors"
	"fmt"
)

// Error codes surfaced in the API envelope.
const (
	CodeFirstTokenFailed = 10001
	CodeNoToken          = 10002
	CodeRefreshFailed    = 10003

	CodeSessionRequired = 1001
	CodeUnknownMethod   = 1002
	CodeInvalidArgument = 1003
)

// CodedError is an error carrying a numeric code for API clients. Err, when
// set, is the underlying cause and is exposed through Unwrap.
type CodedError struct {
	Code    int
	Message string
	Err     error
}

// NewCodedError creates a CodedError without a cause.
func NewCodedError(code int, message string) *CodedError {
	return &CodedError{Code: code, Message: message}
}

func (e *CodedError) Error() string {
	if e.Code == 0 {
		return e.Message
	}
	if e.Err != nil {
		return fmt.Sprintf("%s (code %d): %v", e.Message, e.Code, e.Err)
	}
	return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
}

func (e *CodedError) Unwrap() error {
	return e.Err
}

// Is matches another CodedError with the same non-zero code, so callers can
// write errors.Is(err, models.NewCodedError(models.CodeNoToken, "")).
func (e *CodedError) Is(target error) bool {
	var t *CodedError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code != 0 && t.Code == e.Code
}

// ErrorCode extracts the code of the first CodedError in err's chain, or 0.
func ErrorCode(err error) int {
	var ce *CodedError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return 0
}
