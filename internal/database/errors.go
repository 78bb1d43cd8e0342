// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package database

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/tomtom215/beestat/internal/logging"
)

var (
	// ErrNotFound is returned when a row lookup matches nothing visible to
	// the caller.
	ErrNotFound = errors.New("database: row not found")

	// ErrLockTimeout is returned when an advisory lock could not be acquired
	// before the timeout elapsed.
	ErrLockTimeout = errors.New("database: lock timeout")

	// ErrUnknownColumn is returned when a filter names a column the table
	// does not have.
	ErrUnknownColumn = errors.New("database: unknown column")
)

// QueryError is a failure reported by the DuckDB driver. Op describes what
// was being done, e.g. "failed to query thermostats".
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *QueryError) Unwrap() error { return e.Err }

// IsQueryError reports whether err wraps a driver failure.
func IsQueryError(err error) bool {
	var qe *QueryError
	return errors.As(err, &qe)
}

func queryErr(err error, format string, args ...any) error {
	return &QueryError{Op: fmt.Sprintf(format, args...), Err: err}
}

// closeWithLog closes a resource and logs any error
// Use this for cleanup operations where errors should be acknowledged but not fail the operation
func closeWithLog(closer io.Closer, logger *slog.Logger, resourceType string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		if logger != nil {
			logger.Error("failed to close resource",
				"type", resourceType,
				"error", err)
		} else {
			logging.Warn().Str("type", resourceType).Err(err).Msg("Failed to close resource")
		}
	}
}

// closeQuietly closes a resource in error paths where a Close error is not
// actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}
