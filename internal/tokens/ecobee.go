// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package tokens

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/beestat/internal/auth"
	"github.com/tomtom215/beestat/internal/database"
	"github.com/tomtom215/beestat/internal/ecobee"
	"github.com/tomtom215/beestat/internal/logging"
	"github.com/tomtom215/beestat/internal/models"
)

// EcobeeExchanger is the token endpoint of the ecobee API.
type EcobeeExchanger interface {
	Exchange(ctx context.Context, code string) (*ecobee.TokenResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*ecobee.TokenResponse, error)
}

// Ecobee manages ecobee tokens. It implements ecobee.TokenSource.
type Ecobee struct {
	api      EcobeeExchanger
	sessions SessionRevoker
	store    *lifecycle[models.EcobeeToken]
}

var _ ecobee.TokenSource = (*Ecobee)(nil)

// NewEcobee creates the ecobee token service. sessions may be nil, in which
// case refused refreshes do not log anyone out.
func NewEcobee(db *database.DB, api EcobeeExchanger, enc *auth.TokenEncryptor, sessions SessionRevoker, lockTimeout time.Duration) *Ecobee {
	return &Ecobee{
		api:      api,
		sessions: sessions,
		store: newLifecycle(tokenRow[models.EcobeeToken]{
			provider: "ecobee",
			token:    func(r *models.EcobeeToken) *models.Token { return &r.Token },
			id:       func(r *models.EcobeeToken) int64 { return r.EcobeeTokenID },
			deleted:  func(r *models.EcobeeToken) *bool { return &r.Deleted },
			newRow:   func(userID int64) *models.EcobeeToken { return &models.EcobeeToken{UserID: userID} },
		}, db, enc, lockTimeout),
	}
}

// Obtain exchanges an authorization code. Nothing is stored because the
// user the token belongs to may not exist yet; see Save.
func (e *Ecobee) Obtain(ctx context.Context, code string) (models.Token, error) {
	resp, err := e.api.Exchange(ctx, code)
	if err != nil {
		return models.Token{}, err
	}
	if !resp.Complete() {
		return models.Token{}, models.NewCodedError(models.CodeFirstTokenFailed, "Could not get first token.")
	}
	return models.Token{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		Timestamp:    time.Now().UTC(),
	}, nil
}

// Save stores tok as the user's token, reviving a deleted row.
func (e *Ecobee) Save(ctx context.Context, userID int64, tok models.Token) (*models.EcobeeToken, error) {
	return e.store.save(ctx, userID, tok)
}

// Token returns the user's decrypted token or ErrNoToken.
func (e *Ecobee) Token(ctx context.Context, userID int64) (models.Token, error) {
	_, tok, err := e.store.get(ctx, userID)
	return tok, err
}

// Refresh replaces the user's token pair. When ecobee refuses, the row is
// deleted and all of the user's sessions are logged out.
func (e *Ecobee) Refresh(ctx context.Context, userID int64) (models.Token, error) {
	return e.store.refresh(ctx, userID, func(ctx context.Context, refreshToken string) (models.Token, bool, error) {
		resp, err := e.api.RefreshToken(ctx, refreshToken)
		if err != nil {
			return models.Token{}, false, err
		}
		return models.Token{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}, resp.Complete(), nil
	}, func(ctx context.Context) {
		e.logoutAll(ctx, userID)
	})
}

// Delete soft-deletes token row id and logs out its owner everywhere.
func (e *Ecobee) Delete(ctx context.Context, id int64) error {
	row, err := database.First[models.EcobeeToken](ctx, e.store.db, database.Filter{
		Where: map[string]any{"ecobee_token_id": id},
	})
	if errors.Is(err, database.ErrNotFound) {
		return ErrNoToken
	}
	if err != nil {
		return err
	}
	if err := e.store.remove(ctx, row.UserID, id); err != nil {
		return err
	}
	e.logoutAll(ctx, row.UserID)
	return nil
}

func (e *Ecobee) logoutAll(ctx context.Context, userID int64) {
	if e.sessions == nil {
		return
	}
	if _, err := e.sessions.LogoutAll(ctx, userID); err != nil {
		logging.Ctx(ctx).Error().Err(err).Int64("user_id", userID).Msg("Failed to log out sessions")
	}
}
