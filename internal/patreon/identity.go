// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package patreon

import (
	"context"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"
)

// memberFields are the membership attributes beestat stores.
const memberFields = "patron_status,is_follower,pledge_relationship_start,lifetime_support_cents," +
	"currently_entitled_amount_cents,last_charge_date,last_charge_status,will_pay_amount_cents"

// Identity is the JSON:API document of GET /v2/identity.
type Identity struct {
	Data struct {
		ID   string `json:"id"`
		Type string `json:"type"`
	} `json:"data"`
	Included []Resource `json:"included"`
}

// Resource is an included JSON:API resource.
type Resource struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Attributes json.RawMessage `json:"attributes"`
}

// FirstMembership returns the attributes of the first included membership,
// or nil when the user has none.
func (i *Identity) FirstMembership() json.RawMessage {
	for _, r := range i.Included {
		if r.Type == "member" && len(r.Attributes) > 0 {
			return r.Attributes
		}
	}
	return nil
}

// Identity fetches the user's identity together with their memberships.
func (c *Client) Identity(ctx context.Context, userID int64) (*Identity, error) {
	body, err := c.Call(ctx, http.MethodGet, "identity", map[string]string{
		"include":        "memberships",
		"fields[member]": memberFields,
	}, userID, true)
	if err != nil {
		return nil, err
	}

	var id Identity
	if err := json.Unmarshal(body, &id); err != nil {
		return nil, fmt.Errorf("decode patreon identity: %w", err)
	}
	return &id, nil
}
