// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package authz

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cache hit and size counters come from the shared cache package under
// cache="authz".
var (
	decisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "authz_decisions_total",
		Help: "Exposure decisions by subject, resource and outcome",
	}, []string{"subject", "resource", "decision"})

	decisionSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "authz_decision_duration_seconds",
		Help:    "Time to reach an exposure decision",
		Buckets: []float64{1e-5, 5e-5, 1e-4, 5e-4, 1e-3, 5e-3},
	}, []string{"cached"})

	enforceErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "authz_errors_total",
		Help: "Casbin evaluation failures",
	})
)

func observeDecision(subject, resource string, allowed, cached bool, took time.Duration) {
	outcome := "deny"
	if allowed {
		outcome = "allow"
	}
	decisionsTotal.WithLabelValues(subject, resource, outcome).Inc()
	decisionSeconds.WithLabelValues(strconv.FormatBool(cached)).Observe(took.Seconds())
}
