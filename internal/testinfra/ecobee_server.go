// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package testinfra

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"
)

// TokenPair is an access/refresh token pair issued by the fake server.
type TokenPair struct {
	Access  string
	Refresh string
}

// EcobeeServer is a fake ecobee API. It serves /token and /1/thermostat and
// counts requests per path.
type EcobeeServer struct {
	Server *httptest.Server

	mu          sync.Mutex
	codes       map[string]TokenPair
	refreshes   map[string]TokenPair
	valid       map[string]bool
	thermostats []json.RawMessage
	requests    map[string]int
}

// NewEcobeeServer starts a fake ecobee API that is closed when t finishes.
func NewEcobeeServer(t testing.TB) *EcobeeServer {
	t.Helper()
	s := &EcobeeServer{
		codes:       make(map[string]TokenPair),
		refreshes:   make(map[string]TokenPair),
		valid:       make(map[string]bool),
		thermostats: []json.RawMessage{},
		requests:    make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Server.Close)
	return s
}

// URL returns the base URL to configure as the ecobee API.
func (s *EcobeeServer) URL() string {
	return s.Server.URL
}

// GrantCode makes code exchangeable for pair once.
func (s *EcobeeServer) GrantCode(code, access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[code] = TokenPair{Access: access, Refresh: refresh}
}

// AllowRefresh makes refreshToken exchangeable for a new pair once.
func (s *EcobeeServer) AllowRefresh(refreshToken, access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshes[refreshToken] = TokenPair{Access: access, Refresh: refresh}
}

// Accept marks an access token as valid without going through /token.
func (s *EcobeeServer) Accept(access string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.valid[access] = true
}

// Expire makes access answer with status 14.
func (s *EcobeeServer) Expire(access string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.valid, access)
}

// SetThermostats replaces the thermostatList served to every valid token.
func (s *EcobeeServer) SetThermostats(thermostats ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.thermostats = make([]json.RawMessage, len(thermostats))
	for i, th := range thermostats {
		s.thermostats[i] = json.RawMessage(th)
	}
}

// Requests returns how many requests hit path.
func (s *EcobeeServer) Requests(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[path]
}

func (s *EcobeeServer) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[r.URL.Path]++

	switch r.URL.Path {
	case "/token":
		s.handleToken(w, r)
	case "/1/thermostat":
		access := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !s.valid[access] {
			w.WriteHeader(http.StatusInternalServerError)
			writeJSON(w, map[string]any{"status": map[string]any{"code": 14, "message": "Authentication token has expired. Refresh your tokens. API documentation."}})
			return
		}
		writeJSON(w, map[string]any{
			"thermostatList": s.thermostats,
			"status":         map[string]any{"code": 0, "message": ""},
		})
	default:
		w.WriteHeader(http.StatusNotFound)
		writeJSON(w, map[string]any{"status": map[string]any{"code": 4, "message": "Serialization error."}})
	}
}

// handleToken runs with s.mu held.
func (s *EcobeeServer) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var pair TokenPair
	var ok bool
	switch r.PostForm.Get("grant_type") {
	case "authorization_code":
		code := r.PostForm.Get("code")
		pair, ok = s.codes[code]
		delete(s.codes, code)
	case "refresh_token":
		rt := r.PostForm.Get("refresh_token")
		pair, ok = s.refreshes[rt]
		delete(s.refreshes, rt)
	}
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		writeJSON(w, map[string]any{"error": "invalid_grant", "error_description": "The authorization grant, token or credentials are invalid."})
		return
	}

	s.valid[pair.Access] = true
	writeJSON(w, map[string]any{
		"access_token":  pair.Access,
		"refresh_token": pair.Refresh,
		"token_type":    "Bearer",
		"expires_in":    3599,
		"scope":         "smartRead",
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
