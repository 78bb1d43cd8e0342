// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/beestat/internal/auth"
	"github.com/tomtom215/beestat/internal/logging"
	"github.com/tomtom215/beestat/internal/models"
	ws "github.com/tomtom215/beestat/internal/websocket"
)

// registerTimeout bounds the wait for the hub to accept a new client.
const registerTimeout = 5 * time.Second

// WebSocket upgrades a signed-in browser to the live update stream. The
// client only receives messages addressed to its user.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())
	if session == nil {
		WriteError(w, r, models.NewCodedError(models.CodeSessionRequired, "websocket requires a session"))
		return
	}
	if h.wsHub == nil {
		logging.Warn().Msg("WebSocket connection rejected: hub not initialized")
		NewResponseWriter(w, r).Error(http.StatusServiceUnavailable,
			&models.APIError{Message: "WebSocket service unavailable"})
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("WebSocket upgrade error")
		return
	}

	client := ws.NewClient(h.wsHub, conn, session.UserID)
	select {
	case h.wsHub.Register <- client:
		client.Start()
	case <-time.After(registerTimeout):
		logging.Ctx(r.Context()).Warn().Msg("WebSocket hub not accepting clients")
		//nolint:errcheck // connection is abandoned
		conn.Close()
	}
}
