// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

func TestSessionCleanupService_Interface(t *testing.T) {
	var _ suture.Service = (*SessionCleanupService)(nil)
}

func TestSessionCleanupService_Serve(t *testing.T) {
	t.Run("returns context error on cancellation", func(t *testing.T) {
		svc := NewSessionCleanupService(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		if err := svc.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected context.DeadlineExceeded, got %v", err)
		}
	})

	t.Run("wraps loop failure for restart", func(t *testing.T) {
		loopErr := errors.New("badger closed")
		svc := NewSessionCleanupService(func(context.Context) error { return loopErr })

		err := svc.Serve(context.Background())
		if !errors.Is(err, loopErr) {
			t.Errorf("expected %v, got %v", loopErr, err)
		}
	})

	t.Run("String returns service name", func(t *testing.T) {
		svc := NewSessionCleanupService(func(context.Context) error { return nil })
		if svc.String() != "session-cleanup" {
			t.Errorf("expected 'session-cleanup', got %q", svc.String())
		}
	})
}
