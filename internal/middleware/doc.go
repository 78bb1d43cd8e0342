// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

/*
Package middleware provides HTTP middleware shared by the API router.

Key Components:

  - RequestID: request ids for log correlation, echoed as X-Request-ID
  - PrometheusMetrics: request totals and latency per RPC resource and method

Both are written as func(http.HandlerFunc) http.HandlerFunc; the api
package adapts them to chi.

Usage:

	r.Use(chiMiddleware(middleware.RequestID))
	r.With(chiMiddleware(middleware.PrometheusMetrics(callFromRequest))).
	    HandleFunc("/api/{resource}/{method}", h.Call)
*/
package middleware
