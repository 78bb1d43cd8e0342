// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/beestat/internal/address"
	"github.com/tomtom215/beestat/internal/auth"
	"github.com/tomtom215/beestat/internal/authz"
	"github.com/tomtom215/beestat/internal/config"
	"github.com/tomtom215/beestat/internal/database"
	"github.com/tomtom215/beestat/internal/ecobee"
	"github.com/tomtom215/beestat/internal/models"
	"github.com/tomtom215/beestat/internal/patreon"
	syncpkg "github.com/tomtom215/beestat/internal/sync"
	"github.com/tomtom215/beestat/internal/testinfra"
	"github.com/tomtom215/beestat/internal/user"
)

const testRootURI = "https://beestat.test/"

// =====================================================
// Fakes
// =====================================================

type fakeEcobee struct {
	thermostats []ecobee.Thermostat
	err         error
	gotToken    string
}

func (f *fakeEcobee) AuthorizeURL(state string) string {
	return "https://ecobee.test/authorize?state=" + url.QueryEscape(state)
}

func (f *fakeEcobee) RegisteredThermostats(_ context.Context, accessToken string) ([]ecobee.Thermostat, error) {
	f.gotToken = accessToken
	return f.thermostats, f.err
}

type fakeEcobeeTokens struct {
	mu        sync.Mutex
	obtainErr error
	saved     map[int64]models.Token
}

func (f *fakeEcobeeTokens) Obtain(_ context.Context, code string) (models.Token, error) {
	if f.obtainErr != nil {
		return models.Token{}, f.obtainErr
	}
	return models.Token{AccessToken: "access-" + code, RefreshToken: "refresh-" + code, Timestamp: time.Now()}, nil
}

func (f *fakeEcobeeTokens) Save(_ context.Context, userID int64, tok models.Token) (*models.EcobeeToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saved == nil {
		f.saved = make(map[int64]models.Token)
	}
	f.saved[userID] = tok
	return &models.EcobeeToken{UserID: userID, Token: tok}, nil
}

type fakePatreon struct{}

func (fakePatreon) AuthorizeURL(state string) string {
	return "https://patreon.test/oauth2/authorize?state=" + url.QueryEscape(state)
}

type fakePatreonTokens struct {
	err      error
	obtained []int64
}

func (f *fakePatreonTokens) Obtain(_ context.Context, userID int64, _ string) (*models.PatreonToken, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.obtained = append(f.obtained, userID)
	return &models.PatreonToken{UserID: userID}, nil
}

type fakeIdentity struct {
	identity *patreon.Identity
}

func (f *fakeIdentity) Identity(_ context.Context, _ int64) (*patreon.Identity, error) {
	if f.identity == nil {
		return &patreon.Identity{}, nil
	}
	return f.identity, nil
}

type fakeSyncer struct {
	mu    sync.Mutex
	err   error
	calls []int64
}

func (f *fakeSyncer) TriggerSync(_ context.Context, userID int64) (*syncpkg.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, userID)
	if f.err != nil {
		return nil, f.err
	}
	return &syncpkg.Result{UserID: userID}, nil
}

func (f *fakeSyncer) LastSyncTime() time.Time { return time.Time{} }

type fakeMailing struct {
	err    error
	emails []string
}

func (f *fakeMailing) Subscribe(_ context.Context, email string) error {
	f.emails = append(f.emails, email)
	return f.err
}

// =====================================================
// Test environment
// =====================================================

type testEnv struct {
	db            *database.DB
	sessions      *auth.SessionManager
	state         *auth.StateSigner
	enforcer      *authz.Enforcer
	handler       *Handler
	server        http.Handler
	ecobee        *fakeEcobee
	ecobeeTokens  *fakeEcobeeTokens
	patreonTokens *fakePatreonTokens
	identity      *fakeIdentity
	sync          *fakeSyncer
	mailing       *fakeMailing
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testinfra.NewDB(t)
	sessions := auth.NewSessionManager(auth.NewMemorySessionStore(), config.SessionConfig{
		CookieName: "beestat_session",
		Duration:   time.Hour,
	})
	state, err := auth.NewStateSigner("test-state-secret", time.Minute)
	if err != nil {
		t.Fatalf("NewStateSigner() error = %v", err)
	}
	enforcer, err := authz.NewEnforcer(authz.DefaultEnforcerConfig())
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}
	t.Cleanup(enforcer.Close)

	cfg := &config.Config{}
	cfg.Server.RootURI = testRootURI
	cfg.Session.Store = "memory"
	cfg.Security.RateLimitDisabled = true

	env := &testEnv{
		db:            db,
		sessions:      sessions,
		state:         state,
		enforcer:      enforcer,
		ecobee:        &fakeEcobee{},
		ecobeeTokens:  &fakeEcobeeTokens{},
		patreonTokens: &fakePatreonTokens{},
		identity:      &fakeIdentity{},
		sync:          &fakeSyncer{},
		mailing:       &fakeMailing{},
	}

	env.handler = NewHandler(Dependencies{
		DB:            db,
		Config:        cfg,
		Users:         user.NewService(db, sessions, env.identity),
		Addresses:     address.NewService(db, nil),
		State:         state,
		Ecobee:        env.ecobee,
		EcobeeTokens:  env.ecobeeTokens,
		Patreon:       fakePatreon{},
		PatreonTokens: env.patreonTokens,
		Sync:          env.sync,
		Mailing:       env.mailing,
		Version:       "test",
	})
	env.server = NewRouter(env.handler, sessions, enforcer, NewChiMiddlewareFromConfig(cfg.Security)).SetupChi()
	return env
}

// createUser inserts an anonymous user.
func (e *testEnv) createUser(t *testing.T) int64 {
	t.Helper()
	u := &models.User{Anonymous: true}
	if err := database.Create(context.Background(), e.db, u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u.UserID
}

// login starts a session for userID and returns its cookie.
func (e *testEnv) login(t *testing.T, userID int64) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	if _, err := e.sessions.Login(context.Background(), rec, nil, userID, false); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	return sessionCookie(t, rec)
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == "beestat_session" && c.Value != "" {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

// do sends a request through the full router. cookie may be nil.
func (e *testEnv) do(t *testing.T, method, target string, body io.Reader, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

// envelope mirrors models.APIResponse with raw data.
type envelope struct {
	Success bool             `json:"success"`
	Data    json.RawMessage  `json:"data"`
	Error   *models.APIError `json:"error"`
	Meta    models.Metadata  `json:"meta"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope %q: %v", rec.Body.String(), err)
	}
	return env
}

// expectError checks the status and envelope error code of rec.
func expectError(t *testing.T, rec *httptest.ResponseRecorder, status, code int) envelope {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	if env.Success || env.Error == nil {
		t.Fatalf("expected error envelope, got %s", rec.Body.String())
	}
	if env.Error.Code != code {
		t.Errorf("error code = %d, want %d (%s)", env.Error.Code, code, env.Error.Message)
	}
	return env
}

func parseThermostats(t *testing.T, fixtures ...testinfra.ThermostatFixture) []ecobee.Thermostat {
	t.Helper()
	out := make([]ecobee.Thermostat, 0, len(fixtures))
	for _, f := range fixtures {
		var th ecobee.Thermostat
		if err := json.Unmarshal([]byte(f.JSON()), &th); err != nil {
			t.Fatalf("parse fixture: %v", err)
		}
		out = append(out, th)
	}
	return out
}

func strPtr(s string) *string { return &s }
