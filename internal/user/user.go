// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

// Package user implements the user resource: anonymous account creation,
// session login and logout, and the Patreon membership snapshot.
package user

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tomtom215/beestat/internal/auth"
	"github.com/tomtom215/beestat/internal/database"
	"github.com/tomtom215/beestat/internal/logging"
	"github.com/tomtom215/beestat/internal/models"
	"github.com/tomtom215/beestat/internal/patreon"
)

// Sessions is the subset of auth.SessionManager the user service drives.
type Sessions interface {
	Login(ctx context.Context, w http.ResponseWriter, r *http.Request, userID int64, newUser bool) (*auth.Session, error)
	Logout(ctx context.Context, w http.ResponseWriter) error
	LogoutAll(ctx context.Context, userID int64) (int, error)
}

// IdentityFetcher returns a user's Patreon identity document.
type IdentityFetcher interface {
	Identity(ctx context.Context, userID int64) (*patreon.Identity, error)
}

// Service implements the user resource.
type Service struct {
	db       *database.DB
	sessions Sessions
	patreon  IdentityFetcher
}

// NewService creates a user service. patreon may be nil when Patreon is
// not configured; SyncPatreonStatus then fails.
func NewService(db *database.DB, sessions Sessions, patreon IdentityFetcher) *Service {
	return &Service{db: db, sessions: sessions, patreon: patreon}
}

// CreateAnonymousUser inserts an anonymous user and logs in as it.
func (s *Service) CreateAnonymousUser(ctx context.Context, w http.ResponseWriter, r *http.Request) (*models.User, error) {
	u := &models.User{Anonymous: true}
	if err := database.Create(ctx, s.db, u); err != nil {
		return nil, fmt.Errorf("create anonymous user: %w", err)
	}
	if _, err := s.sessions.Login(ctx, w, r, u.UserID, true); err != nil {
		return nil, err
	}
	logging.Ctx(ctx).Info().Int64("user_id", u.UserID).Msg("Created anonymous user")
	return u, nil
}

// ForceLogIn starts a session for an existing user.
func (s *Service) ForceLogIn(ctx context.Context, w http.ResponseWriter, r *http.Request, userID int64) error {
	if _, err := database.Get[models.User](ctx, s.db, userID, userID); err != nil {
		return fmt.Errorf("force log in user %d: %w", userID, err)
	}
	_, err := s.sessions.Login(ctx, w, r, userID, false)
	return err
}

// LogOut ends the session in ctx, or every session of userID when all is
// set.
func (s *Service) LogOut(ctx context.Context, w http.ResponseWriter, userID int64, all bool) error {
	if all {
		if _, err := s.sessions.LogoutAll(ctx, userID); err != nil {
			return err
		}
	}
	return s.sessions.Logout(ctx, w)
}

// ReadID returns the session user keyed by user_id.
func (s *Service) ReadID(ctx context.Context, userID int64) (map[int64]models.User, error) {
	u, err := database.Get[models.User](ctx, s.db, userID, userID)
	if err != nil {
		return nil, err
	}
	return map[int64]models.User{u.UserID: *u}, nil
}

// SyncPatreonStatus stores the attributes of the user's first Patreon
// membership, or null when there is none.
func (s *Service) SyncPatreonStatus(ctx context.Context, userID int64) (*models.User, error) {
	if s.patreon == nil {
		return nil, models.NewCodedError(models.CodeInvalidArgument, "Patreon is not configured")
	}
	identity, err := s.patreon.Identity(ctx, userID)
	if err != nil {
		return nil, err
	}

	current, err := database.Get[models.User](ctx, s.db, userID, userID)
	if err != nil {
		return nil, err
	}
	next := *current
	next.PatreonStatus = identity.FirstMembership()
	if _, err := database.UpdateChanged(ctx, s.db, current, &next); err != nil {
		return nil, fmt.Errorf("store patreon status: %w", err)
	}
	return current, nil
}
