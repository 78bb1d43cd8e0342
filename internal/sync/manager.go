// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

/*
manager.go - Sync Manager Lifecycle and Orchestration

The manager runs the periodic ecobee sync for every user holding a live
ecobee token and serves on-demand syncs triggered through the API.

Lifecycle Methods:
  - NewManager(): wire the reconciler, upstream source and websocket hub
  - Start(): begin the interval loop
  - Stop(): stop the loop and wait for the in-flight run
  - TriggerSync(): sync one user now
  - LastSyncTime(): time of the last completed background pass

Concurrency:
  - Every per-user run holds the advisory lock "sync(<user_id>)", so the
    background loop and an API-triggered run never overlap for one user.
  - mu protects running and lastSync.

Every run first drops the user's cached ecobee responses, then fetches the
thermostat list once and feeds it to both the thermostat and sensor passes.
*/

//nolint:staticcheck // File documentation, not package doc
package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/beestat/internal/config"
	"github.com/tomtom215/beestat/internal/database"
	"github.com/tomtom215/beestat/internal/ecobee"
	"github.com/tomtom215/beestat/internal/logging"
	"github.com/tomtom215/beestat/internal/metrics"
	"github.com/tomtom215/beestat/internal/models"
)

// MessageSyncCompleted is the websocket message type sent after each run.
const MessageSyncCompleted = "sync_completed"

// ThermostatSource fetches the full thermostat list of a user. Satisfied by
// *ecobee.Client.
type ThermostatSource interface {
	Thermostats(ctx context.Context, userID int64) ([]ecobee.Thermostat, error)
}

// CacheInvalidator drops cached upstream responses of a user. A
// ThermostatSource that also implements it is invalidated at the start of
// every run so each run reconciles live data. *ecobee.Client does.
type CacheInvalidator interface {
	InvalidateUser(userID int64)
}

// WebSocketHub interface for pushing messages to a user's frontend clients
// Implemented by internal/websocket/Hub
type WebSocketHub interface {
	BroadcastToUser(userID int64, messageType string, data interface{})
}

// UserLister lists the users the background loop syncs. Satisfied by
// *database.DB.
type UserLister interface {
	UserIDsWithEcobeeToken(ctx context.Context) ([]int64, error)
}

// Result summarizes one user's run. It is also the sync_completed payload.
type Result struct {
	UserID      int64              `json:"user_id"`
	Thermostats metrics.SyncCounts `json:"thermostats"`
	Sensors     metrics.SyncCounts `json:"sensors"`
	DurationMs  int64              `json:"duration_ms"`
}

// Manager orchestrates per-user ecobee syncs.
type Manager struct {
	db         *database.DB
	users      UserLister
	source     ThermostatSource
	reconciler *Reconciler
	cfg        config.SyncConfig
	wsHub      WebSocketHub

	mu       sync.RWMutex
	running  bool
	lastSync time.Time
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewManager creates a sync manager. wsHub may be nil.
func NewManager(db *database.DB, source ThermostatSource, reconciler *Reconciler, cfg config.SyncConfig, wsHub WebSocketHub) *Manager {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = 3 * time.Second
	}

	logging.Info().
		Bool("enabled", cfg.Enabled).
		Dur("interval", cfg.Interval).
		Dur("lock_timeout", cfg.LockTimeout).
		Msg("Sync manager config loaded")

	return &Manager{
		db:         db,
		users:      db,
		source:     source,
		reconciler: reconciler,
		cfg:        cfg,
		wsHub:      wsHub,
	}
}

// Start begins the periodic synchronization process
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("sync manager is already running")
	}
	m.running = true
	m.stopChan = make(chan struct{})
	m.mu.Unlock()

	m.wg.Add(1)
	go m.syncLoop(ctx)

	logging.Info().Dur("interval", m.cfg.Interval).Msg("Sync manager started")
	return nil
}

// Stop ends the loop and waits for the current pass to finish.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	close(m.stopChan)
	m.mu.Unlock()

	m.wg.Wait()
	logging.Info().Msg("Sync manager stopped")
	return nil
}

// LastSyncTime returns when the last background pass completed.
func (m *Manager) LastSyncTime() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastSync
}

func (m *Manager) syncLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	m.mu.RLock()
	stop := m.stopChan
	m.mu.RUnlock()

	for {
		m.syncAll(ctx)

		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
		}
	}
}

// syncAll runs one background pass over every user with a live token.
// Failures are logged per user and never stop the pass.
func (m *Manager) syncAll(ctx context.Context) {
	userIDs, err := m.users.UserIDsWithEcobeeToken(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to list users to sync")
		return
	}

	for _, userID := range userIDs {
		if ctx.Err() != nil {
			return
		}
		userCtx := logging.ContextWithUserID(ctx, userID)
		if _, err := m.TriggerSync(userCtx, userID); err != nil {
			logSyncFailure(userCtx, userID, err)
		}
	}

	m.mu.Lock()
	m.lastSync = time.Now()
	m.mu.Unlock()
}

func logSyncFailure(ctx context.Context, userID int64, err error) {
	event := logging.Ctx(ctx).Warn()
	switch {
	case errors.Is(err, database.ErrLockTimeout):
		event = logging.Ctx(ctx).Debug()
	case models.ErrorCode(err) == models.CodeNoToken, models.ErrorCode(err) == models.CodeRefreshFailed:
		event = logging.Ctx(ctx).Info()
	}
	event.Err(err).Int64("user_id", userID).Msg("Sync failed")
}

// TriggerSync syncs thermostats and then sensors for userID under the
// user's sync lock. Both passes share one upstream fetch.
func (m *Manager) TriggerSync(ctx context.Context, userID int64) (*Result, error) {
	start := time.Now()

	release, err := m.db.AcquireLock(ctx, fmt.Sprintf("sync(%d)", userID), m.cfg.LockTimeout)
	if err != nil {
		metrics.RecordSyncFailure("fetch", errorType(err))
		return nil, err
	}
	defer release()

	if inv, ok := m.source.(CacheInvalidator); ok {
		inv.InvalidateUser(userID)
	}
	list, err := m.source.Thermostats(ctx, userID)
	if err != nil {
		metrics.RecordSyncFailure("fetch", errorType(err))
		return nil, err
	}

	result := &Result{UserID: userID}
	if result.Thermostats, err = m.reconciler.SyncThermostats(ctx, userID, list); err != nil {
		return nil, err
	}
	if result.Sensors, err = m.reconciler.SyncSensors(ctx, userID, list); err != nil {
		return nil, err
	}
	result.DurationMs = time.Since(start).Milliseconds()

	if m.wsHub != nil {
		m.wsHub.BroadcastToUser(userID, MessageSyncCompleted, result)
	}

	logging.Ctx(ctx).Info().
		Int64("user_id", userID).
		Int("thermostats", result.Thermostats.Created+result.Thermostats.Updated+result.Thermostats.Unchanged).
		Int("sensors", result.Sensors.Created+result.Sensors.Updated+result.Sensors.Unchanged).
		Int64("duration_ms", result.DurationMs).
		Msg("Sync completed")
	return result, nil
}

// errorType labels a sync failure for the sync_errors_total metric.
func errorType(err error) string {
	var status *ecobee.StatusError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, database.ErrLockTimeout):
		return "lock"
	case errors.As(err, &status), models.ErrorCode(err) != 0:
		return "upstream"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case database.IsQueryError(err), errors.Is(err, database.ErrNotFound), errors.Is(err, database.ErrUnknownColumn):
		return "database"
	default:
		return "other"
	}
}
