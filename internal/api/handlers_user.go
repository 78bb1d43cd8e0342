// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package api

import (
	"context"
)

func (h *Handler) userReadID(ctx context.Context, c *Call) (*Result, error) {
	userID, err := c.requireUser()
	if err != nil {
		return nil, err
	}
	users, err := h.users.ReadID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Result{Data: users}, nil
}

// userLogOut ends the current session, or every session of the user when
// the "all" argument is true.
func (h *Handler) userLogOut(ctx context.Context, c *Call) (*Result, error) {
	userID, err := c.requireUser()
	if err != nil {
		return nil, err
	}
	if err := h.users.LogOut(ctx, c.w, userID, c.Bool("all")); err != nil {
		return nil, err
	}
	return &Result{Data: true}, nil
}

func (h *Handler) userSyncPatreonStatus(ctx context.Context, c *Call) (*Result, error) {
	userID, err := c.requireUser()
	if err != nil {
		return nil, err
	}
	u, err := h.users.SyncPatreonStatus(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Result{Data: u}, nil
}
