// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package api

import (
	"context"
)

// syncNow serves thermostat.sync and sensor.sync. Both reconcile the whole
// ecobee thermostat document, so they share one implementation.
func (h *Handler) syncNow(ctx context.Context, c *Call) (*Result, error) {
	userID, err := c.requireUser()
	if err != nil {
		return nil, err
	}
	if h.sync == nil {
		return nil, notConfigured("Sync")
	}
	result, err := h.sync.TriggerSync(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Result{Data: result}, nil
}
