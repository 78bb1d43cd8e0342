// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package middleware

import (
	"net/http"
	"time"

	"github.com/tomtom215/beestat/internal/metrics"
)

// CallResolver names the resource and method a request targets.
type CallResolver func(r *http.Request) (resource, method string)

// PrometheusMetrics records request totals and latency labelled by the
// resource and method resolve returns. Blank names are recorded as
// "unknown" so a malformed call cannot create arbitrary label values.
func PrometheusMetrics(resolve CallResolver) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			metrics.TrackActiveRequest(true)
			defer metrics.TrackActiveRequest(false)

			start := time.Now()
			wrapper := &metricsResponseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next(wrapper, r)

			resource, method := resolve(r)
			if resource == "" {
				resource = "unknown"
			}
			if method == "" {
				method = "unknown"
			}
			metrics.RecordAPIRequest(resource, method, wrapper.statusCode, time.Since(start))
		}
	}
}

// metricsResponseWriter captures the status code written by the handler.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
