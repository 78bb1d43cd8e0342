// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/beestat/internal/auth"
	"github.com/tomtom215/beestat/internal/database"
	"github.com/tomtom215/beestat/internal/logging"
	"github.com/tomtom215/beestat/internal/metrics"
	"github.com/tomtom215/beestat/internal/models"
)

// ErrNoToken is returned when a user has no live token for a provider.
var ErrNoToken = errors.New("no token for this user")

// DefaultLockTimeout bounds the wait for the refresh lock.
const DefaultLockTimeout = 3 * time.Second

// SessionRevoker logs out every session of a user.
type SessionRevoker interface {
	LogoutAll(ctx context.Context, userID int64) (int, error)
}

// exchangeFunc calls the provider's token endpoint. ok is false when the
// response lacks either token.
type exchangeFunc func(ctx context.Context, secret string) (tok models.Token, ok bool, err error)

// tokenRow adapts a provider's token table to the shared lifecycle.
type tokenRow[T database.Row] struct {
	provider string
	token    func(*T) *models.Token
	id       func(*T) int64
	deleted  func(*T) *bool
	newRow   func(userID int64) *T
}

// lifecycle implements storage and refresh for one provider.
type lifecycle[T database.Row] struct {
	row         tokenRow[T]
	db          *database.DB
	enc         *auth.TokenEncryptor
	lockTimeout time.Duration
	audit       *logging.AuthLogger
}

func newLifecycle[T database.Row](row tokenRow[T], db *database.DB, enc *auth.TokenEncryptor, lockTimeout time.Duration) *lifecycle[T] {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &lifecycle[T]{
		row:         row,
		db:          db,
		enc:         enc,
		lockTimeout: lockTimeout,
		audit:       logging.NewAuthLogger(),
	}
}

// get returns the user's live row and its decrypted token.
func (l *lifecycle[T]) get(ctx context.Context, userID int64) (*T, models.Token, error) {
	r, err := database.First[T](ctx, l.db, database.Filter{UserID: userID})
	if errors.Is(err, database.ErrNotFound) {
		return nil, models.Token{}, ErrNoToken
	}
	if err != nil {
		return nil, models.Token{}, err
	}
	tok, err := l.enc.OpenToken(*l.row.token(r))
	if err != nil {
		return nil, models.Token{}, fmt.Errorf("open %s token: %w", l.row.provider, err)
	}
	return r, tok, nil
}

// save upserts the user's row, reviving a soft-deleted one.
func (l *lifecycle[T]) save(ctx context.Context, userID int64, tok models.Token) (*T, error) {
	sealed, err := l.enc.SealToken(tok)
	if err != nil {
		return nil, err
	}

	existing, err := database.First[T](ctx, l.db, database.Filter{UserID: userID, WithDeleted: true})
	switch {
	case errors.Is(err, database.ErrNotFound):
		r := l.row.newRow(userID)
		*l.row.token(r) = sealed
		if err := database.Create(ctx, l.db, r); err != nil {
			return nil, err
		}
		return r, nil
	case err != nil:
		return nil, err
	}

	next := *existing
	*l.row.token(&next) = sealed
	*l.row.deleted(&next) = false
	if _, err := database.UpdateChanged(ctx, l.db, existing, &next); err != nil {
		return nil, err
	}
	return existing, nil
}

// refresh exchanges the stored refresh token under the advisory lock.
// onRevoked runs after the row is deleted because the provider returned no
// token.
func (l *lifecycle[T]) refresh(ctx context.Context, userID int64, exchange exchangeFunc, onRevoked func(context.Context)) (tok models.Token, err error) {
	provider := l.row.provider
	defer func() {
		result := "success"
		switch code := models.ErrorCode(err); {
		case err == nil:
		case code == models.CodeNoToken:
			result = "no_token"
		case code == models.CodeRefreshFailed:
			result = "revoked"
		case errors.Is(err, database.ErrLockTimeout):
			result = "lock_timeout"
		default:
			result = "error"
		}
		metrics.RecordTokenRefresh(provider, result)
		if err != nil {
			l.audit.LogTokenRefresh(provider, userID, false, err.Error())
		} else {
			l.audit.LogTokenRefresh(provider, userID, true, "")
		}
	}()

	release, err := l.db.AcquireLock(ctx, fmt.Sprintf("%s_token->refresh(%d)", provider, userID), l.lockTimeout)
	if err != nil {
		return models.Token{}, fmt.Errorf("refresh %s token: %w", provider, err)
	}
	defer release()

	r, current, err := l.get(ctx, userID)
	if errors.Is(err, ErrNoToken) {
		return models.Token{}, &models.CodedError{
			Code:    models.CodeNoToken,
			Message: fmt.Sprintf("Could not refresh %s token; no token found.", provider),
			Err:     ErrNoToken,
		}
	}
	if err != nil {
		return models.Token{}, err
	}

	fresh, ok, err := exchange(ctx, current.RefreshToken)
	if err != nil {
		return models.Token{}, fmt.Errorf("refresh %s token: %w", provider, err)
	}
	if !ok {
		if err := database.SoftDelete[T](ctx, l.db, userID, l.row.id(r)); err != nil && !errors.Is(err, database.ErrNotFound) {
			logging.Ctx(ctx).Error().Err(err).Str("provider", provider).Msg("Failed to delete refused token")
		}
		l.audit.LogTokenRevoked(provider, userID, "refresh refused")
		if onRevoked != nil {
			onRevoked(ctx)
		}
		return models.Token{}, models.NewCodedError(models.CodeRefreshFailed,
			fmt.Sprintf("Could not refresh %s token; %s returned no token.", provider, provider))
	}

	fresh.Timestamp = time.Now().UTC()
	sealed, err := l.enc.SealToken(fresh)
	if err != nil {
		return models.Token{}, err
	}
	next := *r
	*l.row.token(&next) = sealed
	if _, err := database.UpdateChanged(ctx, l.db, r, &next); err != nil {
		return models.Token{}, err
	}
	return fresh, nil
}

// remove soft-deletes the row id owned by userID.
func (l *lifecycle[T]) remove(ctx context.Context, userID, id int64) error {
	if err := database.SoftDelete[T](ctx, l.db, userID, id); err != nil {
		return err
	}
	l.audit.LogTokenRevoked(l.row.provider, userID, "deleted")
	return nil
}
