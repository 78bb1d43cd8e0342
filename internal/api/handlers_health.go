// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/beestat/internal/models"
)

// Health reports database connectivity and sync state. It answers 503 when
// the database is unreachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	dbConnected := h.db != nil && h.db.Ping(r.Context()) == nil

	status := "healthy"
	if !dbConnected {
		status = "degraded"
	}

	health := models.HealthStatus{
		Status:            status,
		Version:           h.version,
		DatabaseConnected: dbConnected,
		Uptime:            time.Since(h.startTime).Seconds(),
	}
	if h.config != nil {
		health.SessionStore = h.config.Session.Store
		health.SyncEnabled = h.config.Sync.Enabled
	}
	if h.sync != nil {
		health.LastSync = h.sync.LastSyncTime()
	}

	rw := NewResponseWriter(w, r)
	if !dbConnected {
		rw.writeJSON(http.StatusServiceUnavailable, models.APIResponse{
			Success: false,
			Data:    health,
			Error:   &models.APIError{Message: "Database unavailable"},
			Meta:    rw.meta(),
		})
		return
	}
	rw.Success(health)
}
