// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package smartystreets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/beestat/internal/config"
	"github.com/tomtom215/beestat/internal/models"
)

type fakeSmarty struct {
	us, intl atomic.Int32
	server   *httptest.Server
}

func newFakeSmarty(t *testing.T) *fakeSmarty {
	t.Helper()
	f := &fakeSmarty{}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("auth-id") != "id" || q.Get("auth-token") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/street-address":
			f.us.Add(1)
			if strings.Contains(q.Get("street"), "Nowhere") {
				_, _ = w.Write([]byte(`[]`))
				return
			}
			_, _ = w.Write([]byte(`[{"delivery_point_barcode": "537031234567", "delivery_line_1": "1 Main St",
				"metadata": {"latitude": 43.07, "longitude": -89.4}}]`))
		case "/verify":
			f.intl.Add(1)
			if q.Get("geocode") != "true" || q.Get("country") != "CAN" {
				t.Errorf("international query = %v", q)
			}
			_, _ = w.Write([]byte(`[{"address1": "1 Rue Principale", "address2": "Montreal QC", "metadata": {"latitude": 45.5}}]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeSmarty) client(t *testing.T, authToken string) *Client {
	c := NewClient(config.SmartyStreetsConfig{
		AuthID:           "id",
		AuthToken:        authToken,
		USStreetURL:      f.server.URL + "/street-address",
		InternationalURL: f.server.URL + "/verify",
		Timeout:          5 * time.Second,
		CacheTTL:         time.Hour,
	})
	t.Cleanup(c.Close)
	return c
}

func TestNormalize_US(t *testing.T) {
	f := newFakeSmarty(t)
	c := f.client(t, "secret")

	raw, err := c.Normalize(context.Background(), "1 Main St, Madison, WI, 53703", CountryUSA)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	a := models.Address{Normalized: raw}
	if a.Decode().DeliveryPointBarcode != "537031234567" {
		t.Errorf("barcode = %q", a.Decode().DeliveryPointBarcode)
	}
	if lat, ok := a.Latitude(); !ok || lat != 43.07 {
		t.Errorf("Latitude() = %v, %v", lat, ok)
	}

	if _, err := c.Normalize(context.Background(), "1 Main St, Madison, WI, 53703", CountryUSA); err != nil {
		t.Fatalf("cached Normalize() error = %v", err)
	}
	if f.us.Load() != 1 {
		t.Errorf("US API calls = %d, want 1", f.us.Load())
	}
}

func TestNormalize_International(t *testing.T) {
	f := newFakeSmarty(t)
	c := f.client(t, "secret")

	raw, err := c.Normalize(context.Background(), "1 Rue Principale, Montreal", "CAN")
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	a := models.Address{Normalized: raw}
	if n := a.Decode(); n.Address1 != "1 Rue Principale" || n.DeliveryPointBarcode != "" {
		t.Errorf("Decode() = %+v", n)
	}
	if f.intl.Load() != 1 || f.us.Load() != 0 {
		t.Errorf("calls us=%d intl=%d", f.us.Load(), f.intl.Load())
	}
}

func TestNormalize_NoCandidate(t *testing.T) {
	f := newFakeSmarty(t)
	c := f.client(t, "secret")

	raw, err := c.Normalize(context.Background(), "0 Nowhere Rd", CountryUSA)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	var got map[string]string
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(got) != 2 || got["address1"] != "0 Nowhere Rd" || got["country"] != CountryUSA {
		t.Errorf("fallback = %v", got)
	}
}

func TestNormalize_ErrorNotCached(t *testing.T) {
	f := newFakeSmarty(t)
	c := f.client(t, "wrong")

	for i := 0; i < 2; i++ {
		if _, err := c.Normalize(context.Background(), "1 Main St", CountryUSA); err == nil {
			t.Fatal("Normalize() with bad credentials should fail")
		}
	}
	if c.cache.Len() != 0 {
		t.Errorf("cache holds %d entries after errors", c.cache.Len())
	}
}
