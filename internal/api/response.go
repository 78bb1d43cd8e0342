// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/beestat/internal/auth"
	"github.com/tomtom215/beestat/internal/database"
	"github.com/tomtom215/beestat/internal/ecobee"
	"github.com/tomtom215/beestat/internal/logging"
	"github.com/tomtom215/beestat/internal/models"
	"github.com/tomtom215/beestat/internal/patreon"
	"github.com/tomtom215/beestat/internal/validation"
)

// ResponseWriter writes the RPC envelope.
type ResponseWriter struct {
	w         http.ResponseWriter
	r         *http.Request
	startTime time.Time
}

// NewResponseWriter creates a new response writer.
func NewResponseWriter(w http.ResponseWriter, r *http.Request) *ResponseWriter {
	return &ResponseWriter{
		w:         w,
		r:         r,
		startTime: time.Now(),
	}
}

func (rw *ResponseWriter) meta() models.Metadata {
	return models.Metadata{
		Timestamp:   time.Now(),
		QueryTimeMS: time.Since(rw.startTime).Milliseconds(),
		RequestID:   logging.RequestIDFromContext(rw.r.Context()),
	}
}

// Success writes a successful response with data.
func (rw *ResponseWriter) Success(data interface{}) {
	rw.writeJSON(http.StatusOK, models.APIResponse{
		Success: true,
		Data:    data,
		Meta:    rw.meta(),
	})
}

// Error writes an error envelope with the given status code.
func (rw *ResponseWriter) Error(statusCode int, apiErr *models.APIError) {
	rw.writeJSON(statusCode, models.APIResponse{
		Success: false,
		Error:   apiErr,
		Meta:    rw.meta(),
	})
}

// Redirect answers with 302 Found.
func (rw *ResponseWriter) Redirect(location string) {
	http.Redirect(rw.w, rw.r, location, http.StatusFound)
}

// HTML writes body verbatim as text/html.
func (rw *ResponseWriter) HTML(body string) {
	rw.w.Header().Set("Content-Type", "text/html; charset=utf-8")
	rw.w.WriteHeader(http.StatusOK)
	if _, err := rw.w.Write([]byte(body)); err != nil {
		logging.Ctx(rw.r.Context()).Debug().Err(err).Msg("Failed to write HTML response")
	}
}

// FromError maps err to a status code and writes the error envelope.
// Unclassified errors are logged and answered with a generic message.
func (rw *ResponseWriter) FromError(err error) {
	status, apiErr := classifyError(err)
	if status >= http.StatusInternalServerError {
		logging.Ctx(rw.r.Context()).Error().Err(err).Int("status", status).Msg("RPC call failed")
	} else {
		logging.Ctx(rw.r.Context()).Debug().Err(err).Int("status", status).Msg("RPC call rejected")
	}
	rw.Error(status, apiErr)
}

func classifyError(err error) (int, *models.APIError) {
	var ve *validation.RequestValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, ve.ToAPIError()
	}

	var ecobeeStatus *ecobee.StatusError
	if errors.As(err, &ecobeeStatus) {
		return http.StatusBadGateway, &models.APIError{Code: ecobeeStatus.Code, Message: ecobeeStatus.Message}
	}
	var patreonStatus *patreon.StatusError
	if errors.As(err, &patreonStatus) {
		return http.StatusBadGateway, &models.APIError{Code: patreonStatus.Code, Message: patreonStatus.Message}
	}

	var coded *models.CodedError
	if errors.As(err, &coded) {
		return codedStatus(coded.Code), &models.APIError{Code: coded.Code, Message: coded.Message}
	}

	switch {
	case errors.Is(err, auth.ErrInvalidState):
		return http.StatusBadRequest, &models.APIError{Code: models.CodeInvalidArgument, Message: "Invalid or expired state"}
	case errors.Is(err, database.ErrUnknownColumn):
		return http.StatusBadRequest, &models.APIError{Code: models.CodeInvalidArgument, Message: err.Error()}
	case errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound, &models.APIError{Message: "Not found"}
	case errors.Is(err, database.ErrLockTimeout):
		return http.StatusConflict, &models.APIError{Message: "Another operation is in progress; try again shortly"}
	case errors.Is(err, ecobee.ErrInvalidJSON), errors.Is(err, patreon.ErrInvalidJSON):
		return http.StatusBadGateway, &models.APIError{Message: "Invalid JSON"}
	}
	return http.StatusInternalServerError, &models.APIError{Message: "An internal error occurred"}
}

func codedStatus(code int) int {
	switch code {
	case models.CodeSessionRequired:
		return http.StatusUnauthorized
	case models.CodeUnknownMethod:
		return http.StatusNotFound
	case models.CodeInvalidArgument:
		return http.StatusBadRequest
	case models.CodeNoToken, models.CodeRefreshFailed:
		return http.StatusUnauthorized
	case models.CodeFirstTokenFailed:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (rw *ResponseWriter) writeJSON(statusCode int, data interface{}) {
	rw.w.Header().Set("Content-Type", "application/json; charset=utf-8")
	rw.w.WriteHeader(statusCode)

	if err := json.NewEncoder(rw.w).Encode(data); err != nil {
		logging.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// WriteSuccess is a convenience function for writing success responses.
func WriteSuccess(w http.ResponseWriter, r *http.Request, data interface{}) {
	NewResponseWriter(w, r).Success(data)
}

// WriteError writes err as an error envelope. It doubles as the
// authorization deny handler.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	NewResponseWriter(w, r).FromError(err)
}
