// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/beestat/internal/auth"
	"github.com/tomtom215/beestat/internal/authz"
	"github.com/tomtom215/beestat/internal/middleware"
)

// Router wires the handler, session and authorization middleware onto a
// chi mux.
type Router struct {
	handler       *Handler
	sessions      *auth.SessionManager
	authz         *authz.Middleware
	chiMiddleware *ChiMiddleware
	staticDir     string
}

// NewRouter creates a router. The exposure table in enforcer decides which
// calls need a session.
func NewRouter(handler *Handler, sessions *auth.SessionManager, enforcer *authz.Enforcer, chiMW *ChiMiddleware) *Router {
	if chiMW == nil {
		chiMW = NewChiMiddleware(nil)
	}
	var staticDir string
	if handler.config != nil {
		staticDir = handler.config.Server.StaticDir
	}
	return &Router{
		handler:       handler,
		sessions:      sessions,
		authz:         authz.NewMiddleware(enforcer, callFromRequest, WriteError),
		chiMiddleware: chiMW,
		staticDir:     staticDir,
	}
}

// chiMiddleware adapts http.HandlerFunc middleware to Chi's
// func(http.Handler) http.Handler.
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // global so OPTIONS preflight is answered

	r.With(router.chiMiddleware.RateLimitHealth(), APISecurityHeaders()).
		Get("/health", router.handler.Health)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Use(router.sessions.Authenticate)

		r.With(router.chiMiddleware.RateLimitWebSocket()).Get("/ws", router.handler.WebSocket)

		rpc := r.With(
			router.chiMiddleware.RateLimit(),
			chiMiddleware(middleware.PrometheusMetrics(callFromRequest)),
			router.authz.Authorize,
		)
		rpc.Get("/{resource}/{method}", router.handler.Call)
		rpc.Post("/{resource}/{method}", router.handler.Call)
		rpc.Get("/", router.handler.Call)
		rpc.Post("/", router.handler.Call)
	})

	if router.staticDir != "" {
		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Compress(5))
			r.Get("/*", router.serveStatic)
		})
	}

	return r
}

// serveStatic serves the dashboard UI with cache headers by file type.
func (router *Router) serveStatic(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case strings.HasSuffix(path, ".js") || strings.HasSuffix(path, ".css"):
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	case strings.HasSuffix(path, ".png") || strings.HasSuffix(path, ".svg") || strings.HasSuffix(path, ".jpg") || strings.HasSuffix(path, ".webp"):
		w.Header().Set("Cache-Control", "public, max-age=604800")
	case path == "/" || strings.HasSuffix(path, "/") || strings.HasSuffix(path, ".html"):
		w.Header().Set("Cache-Control", "public, max-age=300")
	}
	http.FileServer(http.Dir(router.staticDir)).ServeHTTP(w, r)
}
