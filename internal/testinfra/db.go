// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package testinfra

import (
	"testing"
	"time"

	"github.com/tomtom215/beestat/internal/config"
	"github.com/tomtom215/beestat/internal/database"
)

// dbSemaphore bounds concurrent DuckDB instances within one test binary.
var dbSemaphore = make(chan struct{}, 2)

// NewDB opens a fresh in-memory database that is closed when t finishes.
func NewDB(t testing.TB) *database.DB {
	t.Helper()

	dbSemaphore <- struct{}{}
	t.Cleanup(func() { <-dbSemaphore })

	type result struct {
		db  *database.DB
		err error
	}
	ch := make(chan result, 1)
	go func() {
		db, err := database.New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "512MB"})
		ch <- result{db: db, err: err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			t.Fatalf("Failed to create test database: %v", res.err)
		}
		t.Cleanup(func() {
			if err := res.db.Close(); err != nil {
				t.Errorf("Close() error = %v", err)
			}
		})
		return res.db
	case <-time.After(120 * time.Second):
		t.Fatalf("Timeout: database creation took longer than 120s")
	}
	return nil
}
