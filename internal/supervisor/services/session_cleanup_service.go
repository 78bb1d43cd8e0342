// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package services

import (
	"context"
	"fmt"
)

// CleanupLoop runs until ctx is canceled, removing expired sessions
// periodically. auth.RunCleanup bound to a store satisfies it.
type CleanupLoop func(ctx context.Context) error

// SessionCleanupService supervises the session expiry loop.
type SessionCleanupService struct {
	run  CleanupLoop
	name string
}

// NewSessionCleanupService wraps run.
func NewSessionCleanupService(run CleanupLoop) *SessionCleanupService {
	return &SessionCleanupService{
		run:  run,
		name: "session-cleanup",
	}
}

// Serve implements suture.Service.
func (s *SessionCleanupService) Serve(ctx context.Context) error {
	if err := s.run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("session cleanup failed: %w", err)
	}
	return ctx.Err()
}

// String names the service in supervisor logs.
func (s *SessionCleanupService) String() string {
	return s.name
}
