// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/beestat/internal/database"
	"github.com/tomtom215/beestat/internal/models"
	"github.com/tomtom215/beestat/internal/patreon"
)

func TestPatreonAuthorize(t *testing.T) {
	env := newTestEnv(t)
	userID := env.createUser(t)

	rec := env.do(t, http.MethodGet, "/api/patreon/authorize", nil, env.login(t, userID))
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302 (%s)", rec.Code, rec.Body.String())
	}
	loc, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse Location: %v", err)
	}
	claims, err := env.state.Verify(loc.Query().Get("state"), providerPatreon)
	if err != nil {
		t.Fatalf("state does not verify: %v", err)
	}
	if claims.UserID != userID {
		t.Errorf("state user = %d, want %d", claims.UserID, userID)
	}
}

func TestPatreonInitialize(t *testing.T) {
	env := newTestEnv(t)
	userID := env.createUser(t)
	cookie := env.login(t, userID)
	env.identity.identity = &patreon.Identity{Included: []patreon.Resource{
		{ID: "m1", Type: "member", Attributes: json.RawMessage(`{"patron_status":"active_patron"}`)},
	}}

	state, err := env.state.Issue(providerPatreon, userID)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	rec := env.do(t, http.MethodGet, "/api/patreon/initialize?"+url.Values{
		"code": {"abc"}, "state": {state},
	}.Encode(), nil, cookie)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "window.close()") {
		t.Errorf("body = %q", rec.Body.String())
	}
	if len(env.patreonTokens.obtained) != 1 || env.patreonTokens.obtained[0] != userID {
		t.Errorf("tokens obtained for %v", env.patreonTokens.obtained)
	}

	u, err := database.Get[models.User](context.Background(), env.db, userID, userID)
	if err != nil {
		t.Fatalf("Get(user) error = %v", err)
	}
	if !strings.Contains(string(u.PatreonStatus), "active_patron") {
		t.Errorf("patreon_status = %s", u.PatreonStatus)
	}
}

func TestPatreonInitialize_Rejects(t *testing.T) {
	env := newTestEnv(t)
	userID := env.createUser(t)
	cookie := env.login(t, userID)

	otherState, err := env.state.Issue(providerPatreon, userID+100)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	ecobeeState, err := env.state.Issue(providerEcobee, userID)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	tests := []struct {
		name   string
		params url.Values
	}{
		{"missing code", url.Values{"state": {otherState}}},
		{"state for another user", url.Values{"code": {"abc"}, "state": {otherState}}},
		{"state for another provider", url.Values{"code": {"abc"}, "state": {ecobeeState}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, "/api/patreon/initialize?"+tt.params.Encode(), nil, cookie)
			expectError(t, rec, http.StatusBadRequest, models.CodeInvalidArgument)
		})
	}
	if len(env.patreonTokens.obtained) != 0 {
		t.Error("token obtained for a rejected callback")
	}
}

func TestPatreon_NotConfigured(t *testing.T) {
	env := newTestEnv(t)
	env.handler.patreon = nil
	cookie := env.login(t, env.createUser(t))

	rec := env.do(t, http.MethodGet, "/api/patreon/authorize", nil, cookie)
	expectError(t, rec, http.StatusBadRequest, models.CodeInvalidArgument)
}
