// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tomtom215/beestat/internal/config"
	"github.com/tomtom215/beestat/internal/logging"
)

func newTestManager() (*SessionManager, *MemorySessionStore) {
	store := NewMemorySessionStore()
	return NewSessionManager(store, config.SessionConfig{
		CookieName: "beestat_session",
		Duration:   time.Hour,
	}), store
}

func TestSessionManager_LoginThenAuthenticate(t *testing.T) {
	m, _ := newTestManager()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	session, err := m.Login(req.Context(), rec, req, 7, true)
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value != session.ID || !cookies[0].HttpOnly {
		t.Fatalf("cookies = %+v", cookies)
	}

	var seen *Session
	var loggedUser int64
	handler := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = SessionFromContext(r.Context())
		loggedUser, _ = logging.UserIDFromContext(r.Context())
	}))

	req = httptest.NewRequest(http.MethodGet, "/api/user/read_id", nil)
	req.AddCookie(cookies[0])
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if seen == nil || seen.UserID != 7 {
		t.Fatalf("session in context = %+v", seen)
	}
	if loggedUser != 7 {
		t.Errorf("logging user id = %d, want 7", loggedUser)
	}
}

func TestSessionManager_UnknownCookieIsAnonymous(t *testing.T) {
	m, _ := newTestManager()

	called := false
	handler := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if SessionFromContext(r.Context()) != nil {
			t.Error("unexpected session for unknown cookie")
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "beestat_session", Value: "forged"})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !called {
		t.Error("handler not called")
	}
}

func TestSessionManager_LoginReplacesExistingSession(t *testing.T) {
	m, store := newTestManager()
	ctx := context.Background()

	first, _ := NewSession(1, time.Hour)
	_ = store.Create(ctx, first)

	ctx = ContextWithSession(ctx, first)
	second, err := m.Login(ctx, httptest.NewRecorder(), nil, 2, false)
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if _, err := store.Get(ctx, first.ID); err == nil {
		t.Error("previous session survived login")
	}
	if _, err := store.Get(ctx, second.ID); err != nil {
		t.Errorf("new session missing: %v", err)
	}
}

func TestSessionManager_Logout(t *testing.T) {
	m, store := newTestManager()
	ctx := context.Background()

	a, _ := NewSession(3, time.Hour)
	b, _ := NewSession(3, time.Hour)
	_ = store.Create(ctx, a)
	_ = store.Create(ctx, b)

	rec := httptest.NewRecorder()
	if err := m.Logout(ContextWithSession(ctx, a), rec); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if c := rec.Result().Cookies(); len(c) != 1 || c[0].MaxAge >= 0 {
		t.Errorf("logout cookie = %+v, want expired", c)
	}
	if _, err := store.Get(ctx, a.ID); err == nil {
		t.Error("session survived logout")
	}

	n, err := m.LogoutAll(ctx, 3)
	if err != nil || n != 1 {
		t.Errorf("LogoutAll() = %d, %v; want 1", n, err)
	}
}

func TestNewSessionStore(t *testing.T) {
	store, closer, err := NewSessionStore(&config.SessionConfig{Store: "memory"})
	if err != nil {
		t.Fatalf("NewSessionStore(memory) error = %v", err)
	}
	if _, ok := store.(*MemorySessionStore); !ok {
		t.Errorf("store type = %T", store)
	}
	_ = closer.Close()

	store, closer, err = NewSessionStore(&config.SessionConfig{Store: "badger", Path: t.TempDir()})
	if err != nil {
		t.Fatalf("NewSessionStore(badger) error = %v", err)
	}
	if _, ok := store.(*BadgerSessionStore); !ok {
		t.Errorf("store type = %T", store)
	}
	if err := closer.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	if _, _, err := NewSessionStore(&config.SessionConfig{Store: "redis"}); err == nil {
		t.Error("expected error for unknown store")
	}
}
