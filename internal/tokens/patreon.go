// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package tokens

import (
	"context"
	"time"

	"github.com/tomtom215/beestat/internal/auth"
	"github.com/tomtom215/beestat/internal/database"
	"github.com/tomtom215/beestat/internal/models"
	"github.com/tomtom215/beestat/internal/patreon"
)

// PatreonExchanger is the token endpoint of the Patreon API.
type PatreonExchanger interface {
	Exchange(ctx context.Context, code string) (*patreon.TokenResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*patreon.TokenResponse, error)
}

// Patreon manages Patreon tokens. It implements patreon.TokenSource.
type Patreon struct {
	api   PatreonExchanger
	store *lifecycle[models.PatreonToken]
}

var _ patreon.TokenSource = (*Patreon)(nil)

// NewPatreon creates the Patreon token service.
func NewPatreon(db *database.DB, api PatreonExchanger, enc *auth.TokenEncryptor, lockTimeout time.Duration) *Patreon {
	return &Patreon{
		api: api,
		store: newLifecycle(tokenRow[models.PatreonToken]{
			provider: "patreon",
			token:    func(r *models.PatreonToken) *models.Token { return &r.Token },
			id:       func(r *models.PatreonToken) int64 { return r.PatreonTokenID },
			deleted:  func(r *models.PatreonToken) *bool { return &r.Deleted },
			newRow:   func(userID int64) *models.PatreonToken { return &models.PatreonToken{UserID: userID} },
		}, db, enc, lockTimeout),
	}
}

// Obtain exchanges code and stores the result as the user's single row.
func (p *Patreon) Obtain(ctx context.Context, userID int64, code string) (*models.PatreonToken, error) {
	resp, err := p.api.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	if !resp.Complete() {
		return nil, models.NewCodedError(models.CodeFirstTokenFailed, "Could not get first token.")
	}
	return p.store.save(ctx, userID, models.Token{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		Timestamp:    time.Now().UTC(),
	})
}

// Token returns the user's decrypted token or ErrNoToken.
func (p *Patreon) Token(ctx context.Context, userID int64) (models.Token, error) {
	_, tok, err := p.store.get(ctx, userID)
	return tok, err
}

// Refresh replaces the user's token pair. A refused refresh deletes the row.
func (p *Patreon) Refresh(ctx context.Context, userID int64) (models.Token, error) {
	return p.store.refresh(ctx, userID, func(ctx context.Context, refreshToken string) (models.Token, bool, error) {
		resp, err := p.api.RefreshToken(ctx, refreshToken)
		if err != nil {
			return models.Token{}, false, err
		}
		return models.Token{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}, resp.Complete(), nil
	}, nil)
}

// Delete soft-deletes the user's token row id.
func (p *Patreon) Delete(ctx context.Context, userID, id int64) error {
	return p.store.remove(ctx, userID, id)
}
