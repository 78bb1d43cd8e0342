// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package address

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/beestat/internal/config"
	"github.com/tomtom215/beestat/internal/smartystreets"
	"github.com/tomtom215/beestat/internal/testinfra"
)

func TestKey(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		same bool
	}{
		{
			name: "barcode wins over lines",
			a:    `{"delivery_point_barcode": "537031234567", "address1": "1 Main St"}`,
			b:    `{"delivery_point_barcode": "537031234567", "address1": "One Main Street"}`,
			same: true,
		},
		{
			name: "different barcodes",
			a:    `{"delivery_point_barcode": "537031234567"}`,
			b:    `{"delivery_point_barcode": "537031234568"}`,
			same: false,
		},
		{
			name: "lines concatenate",
			a:    `{"address1": "1 Rue", "address2": "Montreal"}`,
			b:    `{"address1": "1 RueMontreal"}`,
			same: true,
		},
		{
			name: "metadata ignored",
			a:    `{"address1": "1 Rue", "metadata": {"latitude": 45.5}}`,
			b:    `{"address1": "1 Rue", "metadata": {"latitude": 10}}`,
			same: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ka, err := Key(json.RawMessage(tt.a))
			if err != nil {
				t.Fatalf("Key(a) error = %v", err)
			}
			kb, err := Key(json.RawMessage(tt.b))
			if err != nil {
				t.Fatalf("Key(b) error = %v", err)
			}
			if (ka == kb) != tt.same {
				t.Errorf("Key(a) = %s, Key(b) = %s, same = %v, want %v", ka, kb, ka == kb, tt.same)
			}
		})
	}

	k1, _ := Key(json.RawMessage(`{"delivery_point_barcode": "537031234567"}`))
	k2, _ := Key(json.RawMessage(`{"delivery_point_barcode": "537031234567"}`))
	if k1 != k2 || len(k1) != 40 {
		t.Errorf("Key() not deterministic: %s vs %s", k1, k2)
	}
	// sha1("537031234567")
	if want := sha1Hex("537031234567"); k1 != want {
		t.Errorf("Key() = %s, want %s", k1, want)
	}

	if _, err := Key(json.RawMessage(`not json`)); err == nil {
		t.Error("Key() of invalid JSON should fail")
	}
}

type failingNormalizer struct{}

func (failingNormalizer) Normalize(context.Context, string, string) (json.RawMessage, error) {
	return nil, errors.New("smartystreets down")
}

func TestService_Search(t *testing.T) {
	db := testinfra.NewDB(t)
	smarty := testinfra.NewSmartyServer(t, 43.07)
	client := smartystreets.NewClient(config.SmartyStreetsConfig{
		USStreetURL:      smarty.USStreetURL(),
		InternationalURL: smarty.InternationalURL(),
		Timeout:          5 * time.Second,
		CacheTTL:         time.Hour,
	})
	t.Cleanup(client.Close)
	svc := NewService(db, client)
	ctx := context.Background()

	first, err := svc.Search(ctx, 1, "1 Main St, Madison, WI, 53703", "USA")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if first.AddressID == 0 || first.UserID != 1 {
		t.Errorf("Search() = %+v", first)
	}
	if lat, ok := first.Latitude(); !ok || lat != 43.07 {
		t.Errorf("Latitude() = %v, %v", lat, ok)
	}

	again, err := svc.Search(ctx, 1, "1 Main St, Madison, WI, 53703", "USA")
	if err != nil {
		t.Fatalf("second Search() error = %v", err)
	}
	if again.AddressID != first.AddressID {
		t.Errorf("second Search() created address %d, want %d", again.AddressID, first.AddressID)
	}

	// The same address for another user is a separate row.
	other, err := svc.Search(ctx, 2, "1 Main St, Madison, WI, 53703", "USA")
	if err != nil {
		t.Fatalf("Search() for user 2 error = %v", err)
	}
	if other.AddressID == first.AddressID {
		t.Error("addresses must not be shared between users")
	}

	if _, err := svc.Search(ctx, 1, "10 Rue Principale", "CAN"); err != nil {
		t.Fatalf("international Search() error = %v", err)
	}

	byID, err := svc.ReadID(ctx, 1)
	if err != nil {
		t.Fatalf("ReadID() error = %v", err)
	}
	if len(byID) != 2 {
		t.Errorf("ReadID() returned %d addresses, want 2", len(byID))
	}
	if _, ok := byID[first.AddressID]; !ok {
		t.Errorf("ReadID() missing address %d", first.AddressID)
	}
}

func TestService_SearchNormalizerError(t *testing.T) {
	db := testinfra.NewDB(t)
	svc := NewService(db, failingNormalizer{})
	if _, err := svc.Search(context.Background(), 1, "x", "USA"); err == nil {
		t.Error("Search() should fail when normalization fails")
	}
}
