// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidState is returned when an OAuth callback carries a state value
// that was not issued by this server, has expired or targets another
// provider.
var ErrInvalidState = errors.New("invalid oauth state")

// DefaultStateTTL bounds the time between redirecting to a provider and its
// callback.
const DefaultStateTTL = 10 * time.Minute

// StateClaims are carried in the OAuth state parameter.
type StateClaims struct {
	Provider string `json:"provider"`
	UserID   int64  `json:"uid,omitempty"`
	jwt.RegisteredClaims
}

// StateSigner issues and verifies the OAuth state parameter as a short-lived
// HS256 JWT.
type StateSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewStateSigner creates a signer. An empty secret (development) gets a
// random per-process secret, so states do not survive a restart.
func NewStateSigner(secret string, ttl time.Duration) (*StateSigner, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate state secret: %w", err)
		}
	}
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &StateSigner{secret: key, ttl: ttl}, nil
}

// Issue returns a signed state for provider. userID is zero for flows that
// start without a session.
func (s *StateSigner) Issue(provider string, userID int64) (string, error) {
	now := time.Now()
	claims := &StateClaims{
		Provider: provider,
		UserID:   userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-time.Minute)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign state: %w", err)
	}
	return signed, nil
}

// Verify checks state and that it was issued for provider.
func (s *StateSigner) Verify(state, provider string) (*StateClaims, error) {
	if state == "" {
		return nil, fmt.Errorf("%w: missing", ErrInvalidState)
	}

	token, err := jwt.ParseWithClaims(state, &StateClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	claims, ok := token.Claims.(*StateClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid claims", ErrInvalidState)
	}
	if claims.Provider != provider {
		return nil, fmt.Errorf("%w: issued for %s", ErrInvalidState, claims.Provider)
	}
	return claims, nil
}
