// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tomtom215/beestat/internal/auth"
	"github.com/tomtom215/beestat/internal/database"
	"github.com/tomtom215/beestat/internal/ecobee"
	"github.com/tomtom215/beestat/internal/logging"
	"github.com/tomtom215/beestat/internal/models"
	"github.com/tomtom215/beestat/internal/patreon"
	"github.com/tomtom215/beestat/internal/tokens"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   int
	}{
		{"session required", models.NewCodedError(models.CodeSessionRequired, "x"), http.StatusUnauthorized, models.CodeSessionRequired},
		{"unknown method", models.NewCodedError(models.CodeUnknownMethod, "x"), http.StatusNotFound, models.CodeUnknownMethod},
		{"invalid argument", models.NewCodedError(models.CodeInvalidArgument, "x"), http.StatusBadRequest, models.CodeInvalidArgument},
		{"first token failed", models.NewCodedError(models.CodeFirstTokenFailed, "x"), http.StatusBadGateway, models.CodeFirstTokenFailed},
		{
			"no token",
			fmt.Errorf("sync: %w", &models.CodedError{Code: models.CodeNoToken, Message: "x", Err: tokens.ErrNoToken}),
			http.StatusUnauthorized, models.CodeNoToken,
		},
		{"refresh failed", models.NewCodedError(models.CodeRefreshFailed, "x"), http.StatusUnauthorized, models.CodeRefreshFailed},
		{"ecobee status", &ecobee.StatusError{Code: 3, Message: "Processing error."}, http.StatusBadGateway, 3},
		{"patreon status", fmt.Errorf("identity: %w", &patreon.StatusError{Code: 401, Message: "Unauthorized"}), http.StatusBadGateway, 401},
		{"invalid state", fmt.Errorf("%w: expired", auth.ErrInvalidState), http.StatusBadRequest, models.CodeInvalidArgument},
		{"unknown column", fmt.Errorf("%w: thermostats.nope", database.ErrUnknownColumn), http.StatusBadRequest, models.CodeInvalidArgument},
		{"not found", fmt.Errorf("force log in: %w", database.ErrNotFound), http.StatusNotFound, 0},
		{"lock timeout", database.ErrLockTimeout, http.StatusConflict, 0},
		{"invalid json", fmt.Errorf("thermostats: %w", ecobee.ErrInvalidJSON), http.StatusBadGateway, 0},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, apiErr := classifyError(tt.err)
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d", status, tt.wantStatus)
			}
			if apiErr.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", apiErr.Code, tt.wantCode)
			}
			if apiErr.Message == "" {
				t.Error("message is empty")
			}
		})
	}
}

func TestClassifyError_HidesInternalDetail(t *testing.T) {
	_, apiErr := classifyError(errors.New("duckdb: connection refused at /var/lib/beestat.db"))
	if strings.Contains(apiErr.Message, "duckdb") {
		t.Errorf("internal detail leaked: %q", apiErr.Message)
	}
}

func TestResponseWriter_Success(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/user/read_id", nil)
	req = req.WithContext(logging.ContextWithRequestID(req.Context(), "req-123"))
	rec := httptest.NewRecorder()

	NewResponseWriter(rec, req).Success(map[string]int{"a": 1})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q", ct)
	}
	env := decodeEnvelope(t, rec)
	if !env.Success || env.Error != nil {
		t.Errorf("envelope = %s", rec.Body.String())
	}
	if string(env.Data) != `{"a":1}` {
		t.Errorf("data = %s", env.Data)
	}
	if env.Meta.RequestID != "req-123" || env.Meta.Timestamp.IsZero() {
		t.Errorf("meta = %+v", env.Meta)
	}
}

func TestResponseWriter_Redirect(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/ecobee/authorize", nil)
	rec := httptest.NewRecorder()

	NewResponseWriter(rec, req).Redirect("https://example.com/next")

	if rec.Code != http.StatusFound {
		t.Errorf("status = %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "https://example.com/next" {
		t.Errorf("Location = %q", loc)
	}
}

func TestResponseWriter_HTML(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/patreon/initialize", nil)
	rec := httptest.NewRecorder()

	NewResponseWriter(rec, req).HTML(closeWindowHTML)

	if rec.Body.String() != closeWindowHTML {
		t.Errorf("body = %q", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
}
