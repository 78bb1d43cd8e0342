// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package authz

import (
	"net/http"

	"github.com/tomtom215/beestat/internal/auth"
	"github.com/tomtom215/beestat/internal/logging"
)

// CallResolver extracts the (resource, method) pair a request targets.
type CallResolver func(r *http.Request) (resource, method string)

// DenyFunc writes the response for a rejected call. err is the coded error
// from Enforcer.Check.
type DenyFunc func(w http.ResponseWriter, r *http.Request, err error)

// Middleware enforces the exposure table in front of the RPC handler.
type Middleware struct {
	enforcer *Enforcer
	resolve  CallResolver
	deny     DenyFunc
}

// NewMiddleware creates a new authorization middleware.
func NewMiddleware(enforcer *Enforcer, resolve CallResolver, deny DenyFunc) *Middleware {
	return &Middleware{
		enforcer: enforcer,
		resolve:  resolve,
		deny:     deny,
	}
}

// Authorize rejects calls the session (or lack of one) may not make. It must
// run after auth.SessionManager.Authenticate.
func (m *Middleware) Authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resource, method := m.resolve(r)
		authenticated := auth.SessionFromContext(r.Context()) != nil

		if err := m.enforcer.Check(authenticated, resource, method); err != nil {
			logging.Ctx(r.Context()).Debug().
				Str("resource", resource).
				Str("method", method).
				Bool("authenticated", authenticated).
				Err(err).
				Msg("Call rejected")
			m.deny(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}
