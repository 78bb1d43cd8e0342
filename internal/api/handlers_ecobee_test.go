// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/tomtom215/beestat/internal/database"
	"github.com/tomtom215/beestat/internal/models"
	"github.com/tomtom215/beestat/internal/testinfra"
)

func (e *testEnv) ecobeeCallback(t *testing.T, params url.Values, cookie *http.Cookie) *http.Response {
	t.Helper()
	rec := e.do(t, http.MethodGet, "/api/ecobee/initialize?"+params.Encode(), nil, cookie)
	return rec.Result()
}

func (e *testEnv) ecobeeState(t *testing.T) string {
	t.Helper()
	state, err := e.state.Issue(providerEcobee, 0)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	return state
}

func TestEcobeeAuthorize(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/ecobee/authorize", nil, nil)
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302 (%s)", rec.Code, rec.Body.String())
	}
	loc, err := url.Parse(rec.Header().Get("Location"))
	if err != nil || loc.Host != "ecobee.test" {
		t.Fatalf("Location = %q", rec.Header().Get("Location"))
	}
	claims, err := env.state.Verify(loc.Query().Get("state"), providerEcobee)
	if err != nil {
		t.Fatalf("state does not verify: %v", err)
	}
	if claims.UserID != 0 {
		t.Errorf("state user = %d, want 0", claims.UserID)
	}
}

func TestEcobeeInitialize_ProviderError(t *testing.T) {
	tests := []struct {
		name    string
		params  url.Values
		wantMsg string
	}{
		{
			name:    "error description",
			params:  url.Values{"error": {"access_denied"}, "error_description": {"The user denied access."}},
			wantMsg: "The user denied access.",
		},
		{
			name:    "error only",
			params:  url.Values{"error": {"access_denied"}},
			wantMsg: "access_denied",
		},
		{
			name:    "nothing",
			params:  url.Values{},
			wantMsg: "Unhandled error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			rec := env.do(t, http.MethodGet, "/api/ecobee/initialize?"+tt.params.Encode(), nil, nil)
			got := expectError(t, rec, http.StatusBadRequest, models.CodeInvalidArgument)
			if got.Error.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", got.Error.Message, tt.wantMsg)
			}
		})
	}
}

func TestEcobeeInitialize_InvalidState(t *testing.T) {
	env := newTestEnv(t)
	patreonState, err := env.state.Issue(providerPatreon, 1)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	for _, state := range []string{"", "forged", patreonState} {
		rec := env.do(t, http.MethodGet, "/api/ecobee/initialize?"+url.Values{
			"code": {"abc"}, "state": {state},
		}.Encode(), nil, nil)
		expectError(t, rec, http.StatusBadRequest, models.CodeInvalidArgument)
	}
	if len(env.ecobeeTokens.saved) != 0 {
		t.Error("token saved despite invalid state")
	}
}

func TestEcobeeInitialize_NewUser(t *testing.T) {
	env := newTestEnv(t)
	env.ecobee.thermostats = parseThermostats(t, testinfra.ThermostatFixture{Email: "owner@example.com"})

	resp := env.ecobeeCallback(t, url.Values{"code": {"abc"}, "state": {env.ecobeeState(t)}}, nil)

	if resp.StatusCode != http.StatusFound {
		t.Fatalf("status = %d, want 302", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != testRootURI+"dashboard/" {
		t.Errorf("Location = %q", loc)
	}
	if env.ecobee.gotToken != "access-abc" {
		t.Errorf("thermostats fetched with %q", env.ecobee.gotToken)
	}

	users, err := database.List[models.User](context.Background(), env.db, database.Filter{})
	if err != nil || len(users) != 1 || !users[0].Anonymous {
		t.Fatalf("users = %+v, %v", users, err)
	}
	if _, ok := env.ecobeeTokens.saved[users[0].UserID]; !ok {
		t.Errorf("token not saved for new user %d", users[0].UserID)
	}
	if len(env.mailing.emails) != 1 || env.mailing.emails[0] != "owner@example.com" {
		t.Errorf("subscribed = %v", env.mailing.emails)
	}

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "beestat_session" {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("no session cookie")
	}
	rec := env.do(t, http.MethodGet, "/api/user/read_id", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Errorf("new session rejected: %d", rec.Code)
	}
}

func TestEcobeeInitialize_ReturningUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	thermostats := parseThermostats(t, testinfra.ThermostatFixture{Email: "owner@example.com"})
	env.ecobee.thermostats = thermostats

	owner := env.createUser(t)
	existing := &models.EcobeeThermostat{UserID: owner, GUID: thermostats[0].GUID(), Name: "Main Floor", Deleted: true}
	if err := database.Create(ctx, env.db, existing); err != nil {
		t.Fatalf("create ecobee thermostat: %v", err)
	}

	// A stale anonymous session is replaced by the owner's.
	staleCookie := env.login(t, env.createUser(t))
	resp := env.ecobeeCallback(t, url.Values{"code": {"xyz"}, "state": {env.ecobeeState(t)}}, staleCookie)
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("status = %d, want 302", resp.StatusCode)
	}

	if tok, ok := env.ecobeeTokens.saved[owner]; !ok || tok.AccessToken != "access-xyz" {
		t.Errorf("owner token = %+v (saved %v)", tok, ok)
	}
	if len(env.ecobeeTokens.saved) != 1 {
		t.Errorf("tokens saved for %d users, want 1", len(env.ecobeeTokens.saved))
	}
	if len(env.mailing.emails) != 0 {
		t.Error("returning user subscribed again")
	}

	rec := env.do(t, http.MethodGet, "/api/user/read_id", nil, staleCookie)
	expectError(t, rec, http.StatusUnauthorized, models.CodeSessionRequired)
}

func TestEcobeeInitialize_SharedThermostatsCreateUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	thermostats := parseThermostats(t,
		testinfra.ThermostatFixture{Identifier: "411111111111"},
		testinfra.ThermostatFixture{Identifier: "422222222222"},
	)
	env.ecobee.thermostats = thermostats

	for i, th := range thermostats {
		row := &models.EcobeeThermostat{UserID: env.createUser(t), GUID: th.GUID(), Name: "t" + strings.Repeat("x", i)}
		if err := database.Create(ctx, env.db, row); err != nil {
			t.Fatalf("create ecobee thermostat: %v", err)
		}
	}

	resp := env.ecobeeCallback(t, url.Values{"code": {"abc"}, "state": {env.ecobeeState(t)}}, nil)
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("status = %d, want 302", resp.StatusCode)
	}
	users, err := database.List[models.User](ctx, env.db, database.Filter{})
	if err != nil || len(users) != 3 {
		t.Fatalf("got %d users (%v), want a third one", len(users), err)
	}
	if _, ok := env.ecobeeTokens.saved[users[2].UserID]; !ok {
		t.Error("token not saved for the new user")
	}
}

func TestEcobeeInitialize_MailingFailureSwallowed(t *testing.T) {
	env := newTestEnv(t)
	env.ecobee.thermostats = parseThermostats(t, testinfra.ThermostatFixture{Email: "owner@example.com"})
	env.mailing.err = errors.New("mailgun down")

	resp := env.ecobeeCallback(t, url.Values{"code": {"abc"}, "state": {env.ecobeeState(t)}}, nil)
	if resp.StatusCode != http.StatusFound {
		t.Errorf("status = %d, want 302", resp.StatusCode)
	}
}

func TestEcobeeInitialize_TokenFailure(t *testing.T) {
	env := newTestEnv(t)
	env.ecobeeTokens.obtainErr = models.NewCodedError(models.CodeFirstTokenFailed, "Could not get first token.")

	rec := env.do(t, http.MethodGet, "/api/ecobee/initialize?"+url.Values{
		"code": {"abc"}, "state": {env.ecobeeState(t)},
	}.Encode(), nil, nil)
	expectError(t, rec, http.StatusBadGateway, models.CodeFirstTokenFailed)
}
