// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package api

import (
	"context"
	"fmt"

	"github.com/tomtom215/beestat/internal/auth"
)

const providerPatreon = "patreon"

// closeWindowHTML is served at the end of the Patreon flow, which the
// dashboard opens in a popup.
const closeWindowHTML = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>beestat</title></head>
<body><script>window.close();</script></body>
</html>
`

type patreonInitializeArgs struct {
	Code  string `json:"code" validate:"required,max=512"`
	State string `json:"state" validate:"required,max=2048"`
}

func (h *Handler) patreonAuthorize(_ context.Context, c *Call) (*Result, error) {
	userID, err := c.requireUser()
	if err != nil {
		return nil, err
	}
	if h.patreon == nil {
		return nil, notConfigured("Patreon")
	}
	state, err := h.state.Issue(providerPatreon, userID)
	if err != nil {
		return nil, err
	}
	return &Result{Redirect: h.patreon.AuthorizeURL(state)}, nil
}

// patreonInitialize is the Patreon OAuth callback. The state must have been
// issued to the session user.
func (h *Handler) patreonInitialize(ctx context.Context, c *Call) (*Result, error) {
	userID, err := c.requireUser()
	if err != nil {
		return nil, err
	}
	if h.patreon == nil || h.patreonTokens == nil {
		return nil, notConfigured("Patreon")
	}

	var args patreonInitializeArgs
	if err := c.Bind(&args); err != nil {
		return nil, err
	}
	claims, err := h.state.Verify(args.State, providerPatreon)
	if err != nil {
		return nil, err
	}
	if claims.UserID != userID {
		return nil, fmt.Errorf("%w: issued to another user", auth.ErrInvalidState)
	}

	if _, err := h.patreonTokens.Obtain(ctx, userID, args.Code); err != nil {
		return nil, err
	}
	if _, err := h.users.SyncPatreonStatus(ctx, userID); err != nil {
		return nil, err
	}
	return &Result{HTML: closeWindowHTML}, nil
}
