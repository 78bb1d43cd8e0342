// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package testinfra

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

// SmartyServer is a fake SmartyStreets API. Every US street resolves to a
// candidate whose barcode is the upper-cased street; international lookups
// return address lines. All candidates carry Latitude.
type SmartyServer struct {
	Server   *httptest.Server
	Latitude float64

	calls atomic.Int32
}

// NewSmartyServer starts a fake SmartyStreets API closed when t finishes.
func NewSmartyServer(t testing.TB, latitude float64) *SmartyServer {
	t.Helper()
	s := &SmartyServer{Latitude: latitude}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.calls.Add(1)
		q := r.URL.Query()
		switch r.URL.Path {
		case "/street-address":
			writeJSON(w, []map[string]any{{
				"delivery_point_barcode": strings.ToUpper(q.Get("street")),
				"delivery_line_1":        q.Get("street"),
				"metadata":               map[string]any{"latitude": s.Latitude, "longitude": -89.4},
			}})
		case "/verify":
			writeJSON(w, []map[string]any{{
				"address1": q.Get("freeform"),
				"address2": q.Get("country"),
				"metadata": map[string]any{"latitude": s.Latitude},
			}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(s.Server.Close)
	return s
}

// USStreetURL is the URL to configure as the US street API.
func (s *SmartyServer) USStreetURL() string { return s.Server.URL + "/street-address" }

// InternationalURL is the URL to configure as the international API.
func (s *SmartyServer) InternationalURL() string { return s.Server.URL + "/verify" }

// Calls returns the number of lookups served.
func (s *SmartyServer) Calls() int { return int(s.calls.Load()) }
