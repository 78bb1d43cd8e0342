// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

// Package upstream is the shared HTTP transport for third-party APIs
// (ecobee, Patreon, SmartyStreets).
//
// Every request goes through, in order:
//
//  1. a client-side token bucket (golang.org/x/time/rate)
//  2. a circuit breaker per provider (sony/gobreaker)
//  3. HTTP 429 handling with exponential backoff (1s, 2s, 4s, 8s, 16s)
//     that honors Retry-After
//
// Responses are read fully and returned as *Response regardless of status,
// because providers put their error detail in the body. Only transport
// failures and 5xx responses count against the breaker.
package upstream
