// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/beestat/internal/logging"
	"github.com/tomtom215/beestat/internal/metrics"
)

const (
	lockPollInterval = 50 * time.Millisecond

	// lockLease bounds how long a crashed holder can block others. A live
	// holder always deletes its row on release.
	lockLease = 2 * time.Minute
)

// AcquireLock takes the named advisory lock, waiting up to timeout. The
// returned release function is safe to call more than once.
//
// Within one process a keyed mutex serializes callers; across processes the
// locks table does.
func (db *DB) AcquireLock(ctx context.Context, name string, timeout time.Duration) (release func(), err error) {
	start := time.Now()
	deadline := start.Add(timeout)
	defer func() { metrics.RecordLockWait(name, time.Since(start), err == nil) }()

	releaseLocal, err := db.lockLocal(ctx, name, deadline)
	if err != nil {
		return nil, err
	}

	owner := uuid.NewString()
	for {
		acquired, err := db.tryLockRow(ctx, name, owner)
		if err != nil {
			releaseLocal()
			return nil, err
		}
		if acquired {
			break
		}

		if !time.Now().Add(lockPollInterval).Before(deadline) {
			releaseLocal()
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, name)
		}
		select {
		case <-time.After(lockPollInterval):
		case <-ctx.Done():
			releaseLocal()
			return nil, ctx.Err()
		}
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		db.unlockRow(name, owner)
		releaseLocal()
	}, nil
}

// lockLocal claims name in the process-local table, waiting until deadline.
func (db *DB) lockLocal(ctx context.Context, name string, deadline time.Time) (func(), error) {
	for {
		db.lockMu.Lock()
		held, busy := db.localLocks[name]
		if !busy {
			ch := make(chan struct{})
			db.localLocks[name] = ch
			db.lockMu.Unlock()
			return func() {
				db.lockMu.Lock()
				delete(db.localLocks, name)
				db.lockMu.Unlock()
				close(ch)
			}, nil
		}
		db.lockMu.Unlock()

		wait := time.Until(deadline)
		if wait <= 0 {
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, name)
		}
		timer := time.NewTimer(wait)
		select {
		case <-held:
			timer.Stop()
		case <-timer.C:
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, name)
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}
}

// tryLockRow clears an expired holder and tries to insert the lock row.
func (db *DB) tryLockRow(ctx context.Context, name, owner string) (bool, error) {
	now := time.Now().UTC()

	if _, err := db.conn.ExecContext(ctx,
		`DELETE FROM locks WHERE lock_name = ? AND expires_at < ?`, name, now); err != nil {
		return false, queryErr(err, "failed to clear expired lock %s", name)
	}

	if _, err := db.conn.ExecContext(ctx,
		`INSERT INTO locks (lock_name, owner, acquired_at, expires_at) VALUES (?, ?, ?, ?) ON CONFLICT DO NOTHING`,
		name, owner, now, now.Add(lockLease)); err != nil {
		return false, queryErr(err, "failed to insert lock %s", name)
	}

	var holder string
	err := db.conn.QueryRowContext(ctx,
		`SELECT owner FROM locks WHERE lock_name = ?`, name).Scan(&holder)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, queryErr(err, "failed to read lock %s", name)
	}
	return holder == owner, nil
}

// unlockRow deletes the lock row if owner still holds it. It runs on a fresh
// context so a cancelled request still releases its lock.
func (db *DB) unlockRow(name, owner string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.conn.ExecContext(ctx,
		`DELETE FROM locks WHERE lock_name = ? AND owner = ?`, name, owner); err != nil {
		logging.Warn().Err(err).Str("lock", name).Msg("Failed to release advisory lock")
	}
}
