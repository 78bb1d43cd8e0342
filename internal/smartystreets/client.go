// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

// Package smartystreets normalizes postal addresses through the
// SmartyStreets US and international street APIs.
package smartystreets

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/goccy/go-json"

	"github.com/tomtom215/beestat/internal/cache"
	"github.com/tomtom215/beestat/internal/config"
	"github.com/tomtom215/beestat/internal/upstream"
)

// CountryUSA selects the US street API.
const CountryUSA = "USA"

// Client normalizes addresses. Results are cached by (street, country).
type Client struct {
	cfg   config.SmartyStreetsConfig
	http  *upstream.Client
	cache *cache.Cache[json.RawMessage]
}

// NewClient creates a client from cfg.
func NewClient(cfg config.SmartyStreetsConfig) *Client {
	return &Client{
		cfg: cfg,
		http: upstream.New(upstream.Config{
			Name:    "smartystreets",
			Timeout: cfg.Timeout,
		}),
		cache: cache.New[json.RawMessage]("smartystreets", cfg.CacheTTL, 10000),
	}
}

// Close stops the result cache.
func (c *Client) Close() {
	c.cache.Close()
}

// Normalize returns the first candidate for street in country as raw JSON.
// When SmartyStreets finds nothing, the result is the input echoed back as
// {"address1": street, "country": country}.
func (c *Client) Normalize(ctx context.Context, street, country string) (json.RawMessage, error) {
	key := cache.GenerateKey("address", []string{street, country})
	return c.cache.GetOrLoad(key, func() (json.RawMessage, error) {
		return c.lookup(ctx, street, country)
	})
}

func (c *Client) lookup(ctx context.Context, street, country string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("auth-id", c.cfg.AuthID)
	params.Set("auth-token", c.cfg.AuthToken)

	endpoint := "international"
	target := c.cfg.InternationalURL
	if country == CountryUSA {
		endpoint = "us-street"
		target = c.cfg.USStreetURL
		params.Set("street", street)
		params.Set("candidates", "1")
	} else {
		params.Set("freeform", street)
		params.Set("country", country)
		params.Set("geocode", "true")
	}

	resp, err := c.http.Do(ctx, endpoint, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target+"?"+params.Encode(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("smartystreets %s returned status %d: %s", endpoint, resp.StatusCode, resp.ErrorBody())
	}

	var candidates []json.RawMessage
	if err := json.Unmarshal(resp.Body, &candidates); err != nil {
		return nil, fmt.Errorf("decode smartystreets %s response: %w", endpoint, err)
	}
	if len(candidates) > 0 {
		return candidates[0], nil
	}

	fallback, err := json.Marshal(map[string]string{
		"address1": street,
		"country":  country,
	})
	if err != nil {
		return nil, err
	}
	return fallback, nil
}
