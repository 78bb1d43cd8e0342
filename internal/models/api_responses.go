// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package models

import (
	"time"
)

// APIResponse is the envelope written by every RPC call.
//
// Example successful response:
//
//	{
//	  "success": true,
//	  "data": {"12": {"thermostat_id": 12, "name": "Upstairs"}},
//	  "meta": {"timestamp": "2026-03-01T12:00:00Z", "query_time_ms": 45}
//	}
//
// Example error response:
//
//	{
//	  "success": false,
//	  "data": null,
//	  "error": {"code": 10003, "message": "Could not refresh ecobee token; no token returned."},
//	  "meta": {"timestamp": "2026-03-01T12:00:00Z"}
//	}
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    Metadata    `json:"meta"`
}

// Metadata contains per-response timing information.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	RequestID   string    `json:"request_id,omitempty"`
}

// APIError is the error part of the envelope. Code is numeric for upstream
// and token errors (10001-10003) and 0 when the failure has no code.
//
// Common codes:
//   - 10001: could not get first ecobee token
//   - 10002: no token on record for the user
//   - 10003: provider returned no token on refresh (token deleted)
//   - 1001: session required
//   - 1002: unknown resource or method
//   - 1003: invalid arguments
type APIError struct {
	Code    int                    `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HealthStatus is returned by GET /health.
type HealthStatus struct {
	Status            string    `json:"status"`
	Version           string    `json:"version"`
	DatabaseConnected bool      `json:"database_connected"`
	SessionStore      string    `json:"session_store"`
	SyncEnabled       bool      `json:"sync_enabled"`
	LastSync          time.Time `json:"last_sync,omitempty"`
	Uptime            float64   `json:"uptime_seconds"`
}
