// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package auth

import (
	"fmt"
	"io"

	"github.com/tomtom215/beestat/internal/config"
)

// Session store backends.
const (
	SessionStoreMemory = "memory"
	SessionStoreBadger = "badger"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewSessionStore builds the store selected by cfg.Store. The returned
// closer releases the backing database and must be called on shutdown.
func NewSessionStore(cfg *config.SessionConfig) (SessionStore, io.Closer, error) {
	switch cfg.Store {
	case SessionStoreBadger:
		db, err := OpenBadger(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return NewBadgerSessionStore(db), db, nil
	case SessionStoreMemory, "":
		return NewMemorySessionStore(), nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("unknown session store %q", cfg.Store)
	}
}
