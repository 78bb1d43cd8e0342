// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package tokens

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/beestat/internal/models"
	"github.com/tomtom215/beestat/internal/patreon"
	"github.com/tomtom215/beestat/internal/testinfra"
)

type fakePatreon struct {
	exchange *patreon.TokenResponse
	refresh  *patreon.TokenResponse
	err      error
}

func (f *fakePatreon) Exchange(context.Context, string) (*patreon.TokenResponse, error) {
	return f.exchange, f.err
}

func (f *fakePatreon) RefreshToken(context.Context, string) (*patreon.TokenResponse, error) {
	return f.refresh, f.err
}

func TestPatreon_Lifecycle(t *testing.T) {
	db := testinfra.NewDB(t)
	ctx := context.Background()
	api := &fakePatreon{exchange: &patreon.TokenResponse{AccessToken: "pa1", RefreshToken: "pr1"}}
	svc := NewPatreon(db, api, nil, time.Second)

	first, err := svc.Obtain(ctx, 4, "code")
	if err != nil {
		t.Fatalf("Obtain() error = %v", err)
	}
	if first.UserID != 4 || first.AccessToken != "pa1" {
		t.Errorf("Obtain() = %+v", first)
	}

	// A second obtain overwrites the single row.
	api.exchange = &patreon.TokenResponse{AccessToken: "pa2", RefreshToken: "pr2"}
	second, err := svc.Obtain(ctx, 4, "code")
	if err != nil {
		t.Fatalf("second Obtain() error = %v", err)
	}
	if second.PatreonTokenID != first.PatreonTokenID {
		t.Errorf("Obtain() created row %d, want %d", second.PatreonTokenID, first.PatreonTokenID)
	}

	api.refresh = &patreon.TokenResponse{AccessToken: "pa3", RefreshToken: "pr3"}
	tok, err := svc.Refresh(ctx, 4)
	if err != nil || tok.AccessToken != "pa3" {
		t.Fatalf("Refresh() = %+v, %v", tok, err)
	}

	api.refresh = &patreon.TokenResponse{Error: "invalid_grant"}
	if _, err := svc.Refresh(ctx, 4); models.ErrorCode(err) != models.CodeRefreshFailed {
		t.Errorf("refused Refresh() error = %v, want code %d", err, models.CodeRefreshFailed)
	}
	if _, err := svc.Token(ctx, 4); !errors.Is(err, ErrNoToken) {
		t.Errorf("Token() after refused refresh error = %v, want ErrNoToken", err)
	}
	if _, err := svc.Refresh(ctx, 4); models.ErrorCode(err) != models.CodeNoToken {
		t.Errorf("Refresh() without token error = %v, want code %d", err, models.CodeNoToken)
	}
}

func TestPatreon_ObtainFailures(t *testing.T) {
	db := testinfra.NewDB(t)
	ctx := context.Background()

	svc := NewPatreon(db, &fakePatreon{exchange: &patreon.TokenResponse{AccessToken: "only-access"}}, nil, time.Second)
	if _, err := svc.Obtain(ctx, 1, "code"); models.ErrorCode(err) != models.CodeFirstTokenFailed {
		t.Errorf("Obtain() error = %v, want code %d", err, models.CodeFirstTokenFailed)
	}

	boom := errors.New("network down")
	svc = NewPatreon(db, &fakePatreon{err: boom}, nil, time.Second)
	if _, err := svc.Obtain(ctx, 1, "code"); !errors.Is(err, boom) {
		t.Errorf("Obtain() error = %v, want %v", err, boom)
	}
}

func TestPatreon_Delete(t *testing.T) {
	db := testinfra.NewDB(t)
	ctx := context.Background()
	svc := NewPatreon(db, &fakePatreon{exchange: &patreon.TokenResponse{AccessToken: "a", RefreshToken: "r"}}, nil, time.Second)

	row, err := svc.Obtain(ctx, 2, "code")
	if err != nil {
		t.Fatalf("Obtain() error = %v", err)
	}
	if err := svc.Delete(ctx, 3, row.PatreonTokenID); err == nil {
		t.Error("Delete() by another user should fail")
	}
	if err := svc.Delete(ctx, 2, row.PatreonTokenID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := svc.Token(ctx, 2); !errors.Is(err, ErrNoToken) {
		t.Errorf("Token() after delete error = %v", err)
	}
}
