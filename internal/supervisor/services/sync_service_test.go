// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

// fakeManager fails the first failStarts calls to Start.
type fakeManager struct {
	failStarts int32
	stopErr    error
	starts     atomic.Int32
	stops      atomic.Int32
}

func (m *fakeManager) Start(context.Context) error {
	if m.starts.Add(1) <= m.failStarts {
		return errors.New("database locked")
	}
	return nil
}

func (m *fakeManager) Stop() error {
	m.stops.Add(1)
	return m.stopErr
}

func TestSyncService_Interface(t *testing.T) {
	var _ suture.Service = (*SyncService)(nil)
}

func TestSyncService_Serve(t *testing.T) {
	t.Run("stops the manager on cancellation", func(t *testing.T) {
		mgr := &fakeManager{}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()

		err := NewSyncService(mgr).Serve(ctx)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Serve() = %v", err)
		}
		if mgr.starts.Load() != 1 || mgr.stops.Load() != 1 {
			t.Errorf("starts=%d stops=%d, want 1/1", mgr.starts.Load(), mgr.stops.Load())
		}
	})

	t.Run("start failure skips stop", func(t *testing.T) {
		mgr := &fakeManager{failStarts: 1}
		if err := NewSyncService(mgr).Serve(context.Background()); err == nil {
			t.Fatal("expected start error")
		}
		if mgr.stops.Load() != 0 {
			t.Error("Stop called after failed Start")
		}
	})

	t.Run("stop failure is returned", func(t *testing.T) {
		mgr := &fakeManager{stopErr: errors.New("pass did not finish")}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := NewSyncService(mgr).Serve(ctx); !errors.Is(err, mgr.stopErr) {
			t.Errorf("Serve() = %v, want stop error", err)
		}
	})

	t.Run("String returns service name", func(t *testing.T) {
		if got := NewSyncService(&fakeManager{}).String(); got != "sync-manager" {
			t.Errorf("String() = %q", got)
		}
	})
}

func TestSyncService_RestartedBySupervisor(t *testing.T) {
	mgr := &fakeManager{failStarts: 2}
	sup := suture.New("sync-test", suture.Spec{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
		Timeout:          100 * time.Millisecond,
	})
	sup.Add(NewSyncService(mgr))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := sup.ServeBackground(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for mgr.starts.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	<-errCh

	if mgr.starts.Load() < 3 {
		t.Errorf("starts = %d, want at least 3", mgr.starts.Load())
	}
}
