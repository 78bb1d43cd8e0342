// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/beestat/internal/config"
	"github.com/tomtom215/beestat/internal/logging"
	"github.com/tomtom215/beestat/internal/metrics"
)

type contextKey string

const sessionContextKey contextKey = "beestat_session"

// SessionFromContext returns the session attached by Authenticate, or nil.
func SessionFromContext(ctx context.Context) *Session {
	if s, ok := ctx.Value(sessionContextKey).(*Session); ok {
		return s
	}
	return nil
}

// ContextWithSession attaches session to ctx, together with its user id
// for logging.
func ContextWithSession(ctx context.Context, session *Session) context.Context {
	ctx = context.WithValue(ctx, sessionContextKey, session)
	return logging.ContextWithUserID(ctx, session.UserID)
}

// SessionManager issues and validates session cookies.
type SessionManager struct {
	store  SessionStore
	cfg    config.SessionConfig
	audit  *logging.AuthLogger
	ttl    time.Duration
	secure bool
}

// NewSessionManager creates a manager over store.
func NewSessionManager(store SessionStore, cfg config.SessionConfig) *SessionManager {
	ttl := cfg.Duration
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "beestat_session"
	}
	return &SessionManager{
		store:  store,
		cfg:    cfg,
		audit:  logging.NewAuthLogger(),
		ttl:    ttl,
		secure: cfg.Secure,
	}
}

// Store exposes the underlying session store.
func (m *SessionManager) Store() SessionStore {
	return m.store
}

// Authenticate extracts and validates the session cookie. A valid session
// is attached to the request context and its expiry slides forward;
// requests without one continue anonymously.
func (m *SessionManager) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(m.cfg.CookieName)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		session, err := m.store.Get(r.Context(), cookie.Value)
		if err != nil {
			if !errors.Is(err, ErrSessionNotFound) && !errors.Is(err, ErrSessionExpired) {
				logging.Error().Err(err).Msg("Session lookup error")
			}
			next.ServeHTTP(w, r)
			return
		}

		if touchErr := m.store.Touch(r.Context(), session.ID, time.Now().Add(m.ttl)); touchErr != nil {
			logging.Error().Err(touchErr).Msg("Failed to touch session")
		}

		next.ServeHTTP(w, r.WithContext(ContextWithSession(r.Context(), session)))
	})
}

// Login creates a session for userID and sets the cookie. Any session
// already carried by r is destroyed first so a login never reuses an id.
func (m *SessionManager) Login(ctx context.Context, w http.ResponseWriter, r *http.Request, userID int64, newUser bool) (*Session, error) {
	if old := SessionFromContext(ctx); old != nil {
		if err := m.store.Delete(ctx, old.ID); err != nil {
			logging.Warn().Err(err).Msg("Failed to delete previous session")
		}
	}

	session, err := NewSession(userID, m.ttl)
	if err != nil {
		return nil, err
	}
	if r != nil {
		session.IP = r.RemoteAddr
		session.UserAgent = r.UserAgent()
	}

	if err := m.store.Create(ctx, session); err != nil {
		return nil, err
	}
	metrics.SessionsCreated.Inc()

	m.setCookie(w, session.ID, int(m.ttl.Seconds()))
	m.audit.LogLogin(userID, session.ID, session.IP, newUser)
	return session, nil
}

// Logout destroys the session carried in ctx and clears the cookie.
func (m *SessionManager) Logout(ctx context.Context, w http.ResponseWriter) error {
	session := SessionFromContext(ctx)
	if session == nil {
		m.setCookie(w, "", -1)
		return nil
	}
	if err := m.store.Delete(ctx, session.ID); err != nil {
		return err
	}
	metrics.SessionsDeleted.Inc()
	m.setCookie(w, "", -1)
	m.audit.LogLogout(session.UserID, session.ID, session.IP)
	return nil
}

// LogoutAll destroys every session of userID.
func (m *SessionManager) LogoutAll(ctx context.Context, userID int64) (int, error) {
	n, err := m.store.DeleteByUserID(ctx, userID)
	if err != nil {
		return 0, err
	}
	metrics.SessionsDeleted.Add(float64(n))
	if n > 0 {
		logging.Ctx(ctx).Info().Int64("user_id", userID).Int("sessions", n).Msg("Logged out all sessions")
	}
	return n, nil
}

func (m *SessionManager) setCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   m.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
