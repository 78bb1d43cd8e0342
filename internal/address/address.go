// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

// Package address stores normalized postal addresses. Addresses are looked
// up through SmartyStreets and deduplicated per user by a content hash of
// the normalized result.
package address

import (
	"context"
	"crypto/sha1" //nolint:gosec // content key, not a security boundary
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/beestat/internal/database"
	"github.com/tomtom215/beestat/internal/models"
)

// Normalizer turns a freeform address into a normalized JSON document.
type Normalizer interface {
	Normalize(ctx context.Context, street, country string) (json.RawMessage, error)
}

// Service implements address.search and address.read_id.
type Service struct {
	db         *database.DB
	normalizer Normalizer
}

// NewService creates an address service.
func NewService(db *database.DB, normalizer Normalizer) *Service {
	return &Service{db: db, normalizer: normalizer}
}

// Search normalizes addressString and returns the user's row for the
// result, creating it on first sight.
func (s *Service) Search(ctx context.Context, userID int64, addressString, country string) (*models.Address, error) {
	normalized, err := s.normalizer.Normalize(ctx, addressString, country)
	if err != nil {
		return nil, fmt.Errorf("normalize address: %w", err)
	}
	key, err := Key(normalized)
	if err != nil {
		return nil, err
	}

	existing, err := database.First[models.Address](ctx, s.db, database.Filter{
		UserID: userID,
		Where:  map[string]any{"address_key": key},
	})
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	row := &models.Address{UserID: userID, Key: key, Normalized: normalized}
	if err := database.Create(ctx, s.db, row); err != nil {
		return nil, err
	}
	return row, nil
}

// ReadID returns the user's addresses keyed by address_id.
func (s *Service) ReadID(ctx context.Context, userID int64) (map[int64]models.Address, error) {
	rows, err := database.List[models.Address](ctx, s.db, database.Filter{UserID: userID})
	if err != nil {
		return nil, err
	}
	out := make(map[int64]models.Address, len(rows))
	for _, r := range rows {
		out[r.AddressID] = r
	}
	return out, nil
}

// Key hashes a normalized address: sha1 of the delivery point barcode when
// present, otherwise sha1 of address1, address2 and address3 concatenated.
func Key(normalized json.RawMessage) (string, error) {
	var n struct {
		DeliveryPointBarcode *string `json:"delivery_point_barcode"`
		Address1             *string `json:"address1"`
		Address2             *string `json:"address2"`
		Address3             *string `json:"address3"`
	}
	if err := json.Unmarshal(normalized, &n); err != nil {
		return "", fmt.Errorf("decode normalized address: %w", err)
	}

	if n.DeliveryPointBarcode != nil {
		return sha1Hex(*n.DeliveryPointBarcode), nil
	}
	var s string
	for _, part := range []*string{n.Address1, n.Address2, n.Address3} {
		if part != nil {
			s += *part
		}
	}
	return sha1Hex(s), nil
}

func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s)) //nolint:gosec // content key
	return hex.EncodeToString(sum[:])
}
