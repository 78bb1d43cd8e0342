// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

// Package auth provides beestat's browser sessions, OAuth state signing and
// encryption of OAuth tokens at rest.
//
// A session is an opaque random id carried in a cookie. The store maps it to
// a user id; everything else about the user lives in the database.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/beestat/internal/logging"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

// Session is an authenticated browser session.
type Session struct {
	ID             string    `json:"id"`
	UserID         int64     `json:"user_id"`
	IP             string    `json:"ip,omitempty"`
	UserAgent      string    `json:"user_agent,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	ExpiresAt      time.Time `json:"expires_at"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
}

func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// NewSession creates a session for userID valid for duration.
func NewSession(userID int64, duration time.Duration) (*Session, error) {
	id, err := generateSessionID()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &Session{
		ID:             id,
		UserID:         userID,
		CreatedAt:      now,
		ExpiresAt:      now.Add(duration),
		LastAccessedAt: now,
	}, nil
}

// generateSessionID returns 32 random bytes, hex encoded.
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// SessionStore persists sessions. Get reports ErrSessionNotFound for
// unknown ids and ErrSessionExpired for stale ones; Delete of an unknown id
// is not an error.
type SessionStore interface {
	Create(ctx context.Context, session *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error

	// DeleteByUserID ends every session of userID and reports how many.
	DeleteByUserID(ctx context.Context, userID int64) (int, error)

	// Touch moves the expiry of a live session to newExpiry.
	Touch(ctx context.Context, id string, newExpiry time.Time) error

	CleanupExpired(ctx context.Context) (int, error)
}

// MemorySessionStore keeps sessions in process memory, indexed by id and
// by user. Everything is lost on restart.
type MemorySessionStore struct {
	mu     sync.Mutex
	byID   map[string]Session
	byUser map[int64]map[string]struct{}
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		byID:   make(map[string]Session),
		byUser: make(map[int64]map[string]struct{}),
	}
}

func (s *MemorySessionStore) Create(_ context.Context, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byID[session.ID] = *session
	ids := s.byUser[session.UserID]
	if ids == nil {
		ids = make(map[string]struct{})
		s.byUser[session.UserID] = ids
	}
	ids[session.ID] = struct{}{}
	return nil
}

func (s *MemorySessionStore) Get(_ context.Context, id string) (*Session, error) {
	s.mu.Lock()
	session, ok := s.byID[id]
	s.mu.Unlock()

	switch {
	case !ok:
		return nil, ErrSessionNotFound
	case session.IsExpired():
		return nil, ErrSessionExpired
	}
	return &session, nil
}

func (s *MemorySessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drop(id)
	return nil
}

func (s *MemorySessionStore) DeleteByUserID(_ context.Context, userID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id := range s.byUser[userID] {
		s.drop(id)
		n++
	}
	return n, nil
}

func (s *MemorySessionStore) Touch(_ context.Context, id string, newExpiry time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.byID[id]
	if !ok {
		return ErrSessionNotFound
	}
	session.LastAccessedAt = time.Now()
	session.ExpiresAt = newExpiry
	s.byID[id] = session
	return nil
}

func (s *MemorySessionStore) CleanupExpired(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, session := range s.byID {
		if session.IsExpired() {
			s.drop(id)
			n++
		}
	}
	return n, nil
}

// drop removes id from both indexes. Caller holds s.mu.
func (s *MemorySessionStore) drop(id string) {
	session, ok := s.byID[id]
	if !ok {
		return
	}
	delete(s.byID, id)
	if ids := s.byUser[session.UserID]; ids != nil {
		delete(ids, id)
		if len(ids) == 0 {
			delete(s.byUser, session.UserID)
		}
	}
}

// RunCleanup removes expired sessions from store every interval until ctx
// is cancelled. It is run as a supervised service.
func RunCleanup(ctx context.Context, store SessionStore, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := store.CleanupExpired(ctx)
			if err != nil {
				logging.Warn().Err(err).Msg("Session cleanup failed")
				continue
			}
			if n > 0 {
				logging.Debug().Int("removed", n).Msg("Expired sessions removed")
			}
		}
	}
}
