// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package patreon

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/beestat/internal/config"
	"github.com/tomtom215/beestat/internal/models"
)

type stubTokens struct {
	access    string
	refreshes int
}

func (s *stubTokens) Token(context.Context, int64) (models.Token, error) {
	return models.Token{AccessToken: s.access}, nil
}

func (s *stubTokens) Refresh(context.Context, int64) (models.Token, error) {
	s.refreshes++
	s.access = "fresh"
	return models.Token{AccessToken: s.access}, nil
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(config.PatreonConfig{
		ClientID:     "pid",
		ClientSecret: "psecret",
		RedirectURI:  "http://localhost:8080/api/patreon/initialize",
		BaseURL:      server.URL,
		AuthorizeURL: "https://www.patreon.com/oauth2/authorize",
		Timeout:      5 * time.Second,
	})
}

func TestClient_ExchangeSendsCredentialsOnPost(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/token" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm: %v", err)
		}
		if r.PostForm.Get("client_id") != "pid" || r.PostForm.Get("client_secret") != "psecret" {
			t.Errorf("credentials missing from form: %v", r.PostForm)
		}
		if r.PostForm.Get("code") != "xyz" || r.PostForm.Get("grant_type") != "authorization_code" {
			t.Errorf("form = %v", r.PostForm)
		}
		_, _ = w.Write([]byte(`{"access_token": "pa", "refresh_token": "pr", "expires_in": 2678400}`))
	})

	tr, err := c.Exchange(context.Background(), "xyz")
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}
	if !tr.Complete() || tr.AccessToken != "pa" {
		t.Errorf("Exchange() = %+v", tr)
	}
}

func TestClient_Identity(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/identity" {
			t.Errorf("path = %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("client_id") != "" || q.Get("client_secret") != "" {
			t.Error("credentials must not be sent on GET")
		}
		if q.Get("include") != "memberships" || q.Get("fields[member]") != memberFields {
			t.Errorf("query = %v", q)
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		_, _ = w.Write([]byte(`{
			"data": {"id": "42", "type": "user"},
			"included": [{"id": "m1", "type": "member", "attributes": {"patron_status": "active_patron", "will_pay_amount_cents": 200}}]
		}`))
	})
	c.SetTokenSource(&stubTokens{access: "tok"})

	id, err := c.Identity(context.Background(), 3)
	if err != nil {
		t.Fatalf("Identity() error = %v", err)
	}
	if id.Data.ID != "42" {
		t.Errorf("Data.ID = %q", id.Data.ID)
	}
	if got := string(id.FirstMembership()); got != `{"patron_status": "active_patron", "will_pay_amount_cents": 200}` {
		t.Errorf("FirstMembership() = %s", got)
	}
}

func TestIdentity_NoMembership(t *testing.T) {
	var id Identity
	if id.FirstMembership() != nil {
		t.Error("FirstMembership() of empty identity should be nil")
	}
}

func TestClient_ExpiredTokenRetriesOnce(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("Authorization") == "Bearer fresh" {
			_, _ = w.Write([]byte(`{"data": {"id": "1"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"status": {"code": 14, "message": "expired"}}`))
	})
	tokens := &stubTokens{access: "stale"}
	c.SetTokenSource(tokens)

	if _, err := c.Identity(context.Background(), 1); err != nil {
		t.Fatalf("Identity() error = %v", err)
	}
	if tokens.refreshes != 1 || calls.Load() != 2 {
		t.Errorf("refreshes = %d, calls = %d; want 1 and 2", tokens.refreshes, calls.Load())
	}
}

func TestClient_Errors(t *testing.T) {
	t.Run("invalid json", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`<!doctype html>`))
		})
		c.SetTokenSource(&stubTokens{access: "tok"})
		if _, err := c.Identity(context.Background(), 1); !errors.Is(err, ErrInvalidJSON) {
			t.Errorf("Identity() error = %v, want ErrInvalidJSON", err)
		}
	})

	t.Run("status message", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"status": {"code": 2, "message": "nope"}}`))
		})
		c.SetTokenSource(&stubTokens{access: "tok"})
		_, err := c.Identity(context.Background(), 1)
		var se *StatusError
		if !errors.As(err, &se) || se.Message != "nope" {
			t.Errorf("Identity() error = %v, want StatusError nope", err)
		}
	})

	t.Run("no token source", func(t *testing.T) {
		c := newTestClient(t, func(http.ResponseWriter, *http.Request) {})
		if _, err := c.Identity(context.Background(), 1); !errors.Is(err, ErrNoTokenSource) {
			t.Errorf("Identity() error = %v, want ErrNoTokenSource", err)
		}
	})
}

func TestClient_AuthorizeURL(t *testing.T) {
	c := newTestClient(t, func(http.ResponseWriter, *http.Request) {})
	u, err := url.Parse(c.AuthorizeURL("st"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if u.Host != "www.patreon.com" || u.Path != "/oauth2/authorize" {
		t.Errorf("AuthorizeURL() = %s", u)
	}
	q := u.Query()
	if q.Get("scope") != "identity" || q.Get("response_type") != "code" || q.Get("client_id") != "pid" {
		t.Errorf("query = %v", q)
	}
	if q.Get("client_secret") != "" {
		t.Error("client secret leaked into authorize URL")
	}
}
