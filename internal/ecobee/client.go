// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package ecobee

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"
	"golang.org/x/oauth2"

	"github.com/tomtom215/beestat/internal/cache"
	"github.com/tomtom215/beestat/internal/config"
	"github.com/tomtom215/beestat/internal/logging"
	"github.com/tomtom215/beestat/internal/models"
	"github.com/tomtom215/beestat/internal/upstream"
)

// ErrInvalidJSON is returned when ecobee answers with a body that is not
// JSON. The message is shown to API clients verbatim.
var ErrInvalidJSON = errors.New("Invalid JSON") //nolint:staticcheck // user-facing message

// ErrNoTokenSource is returned when a call needs a user token but no
// TokenSource has been set.
var ErrNoTokenSource = errors.New("ecobee: no token source configured")

// StatusError is a non-zero ecobee status.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return e.Message
}

// TokenSource supplies and refreshes a user's ecobee access token.
type TokenSource interface {
	Token(ctx context.Context, userID int64) (models.Token, error)
	Refresh(ctx context.Context, userID int64) (models.Token, error)
}

// CallOptions controls one API call.
type CallOptions struct {
	// UserID selects whose token is used and scopes the response cache.
	UserID int64

	// AccessToken overrides the user's stored token.
	AccessToken string

	// NoAutoRefresh disables the refresh-and-retry on status 14.
	NoAutoRefresh bool

	// NoCache bypasses the response cache.
	NoCache bool
}

// Client talks to the ecobee API.
type Client struct {
	baseURL  string
	clientID string
	redirect string

	http   *upstream.Client
	oauth  *oauth2.Config
	cache  *cache.Cache[[]byte]
	tokens TokenSource
}

// NewClient creates a client from cfg.
func NewClient(cfg config.EcobeeConfig) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	authorizeURL := cfg.AuthorizeURL
	if authorizeURL == "" {
		authorizeURL = base + "/authorize"
	}

	return &Client{
		baseURL:  base,
		clientID: cfg.ClientID,
		redirect: cfg.RedirectURI,
		http: upstream.New(upstream.Config{
			Name:              "ecobee",
			Timeout:           cfg.Timeout,
			RequestsPerSecond: cfg.RequestsPerSecond,
		}),
		oauth: &oauth2.Config{
			ClientID:    cfg.ClientID,
			RedirectURL: cfg.RedirectURI,
			Scopes:      []string{"smartRead"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  authorizeURL,
				TokenURL: base + "/token",
			},
		},
		cache: cache.New[[]byte]("ecobee", cfg.CacheTTL, 1000),
	}
}

// SetTokenSource wires the token lifecycle into the client. It must be
// called before user-scoped calls are made.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.tokens = ts
}

// Close stops the response cache.
func (c *Client) Close() {
	c.cache.Close()
}

// AuthorizeURL returns the URL the browser is sent to for consent.
func (c *Client) AuthorizeURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// InvalidateUser drops the cached responses of userID.
func (c *Client) InvalidateUser(userID int64) {
	c.cache.DeletePrefix(userPrefix(userID))
}

// Exchange trades an authorization code for a token pair. The response is
// returned as-is; callers decide whether it is complete.
func (c *Client) Exchange(ctx context.Context, code string) (*TokenResponse, error) {
	return c.token(ctx, map[string]string{
		"grant_type":   "authorization_code",
		"code":         code,
		"redirect_uri": c.redirect,
	})
}

// RefreshToken trades a refresh token for a new token pair.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	return c.token(ctx, map[string]string{
		"grant_type":    "refresh_token",
		"refresh_token": refreshToken,
	})
}

func (c *Client) token(ctx context.Context, args map[string]string) (*TokenResponse, error) {
	body, err := c.Call(ctx, http.MethodPost, "token", args, CallOptions{NoAutoRefresh: true, NoCache: true})
	if err != nil {
		return nil, err
	}
	var tr TokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, ErrInvalidJSON
	}
	return &tr, nil
}

// Call performs one API request and returns the raw response body once the
// status checks pass.
func (c *Client) Call(ctx context.Context, method, endpoint string, args map[string]string, opts CallOptions) (json.RawMessage, error) {
	if method != http.MethodGet || opts.NoCache || opts.UserID == 0 {
		return c.call(ctx, method, endpoint, args, opts)
	}
	key := userPrefix(opts.UserID) + cache.GenerateKey(endpoint, args)
	return c.cache.GetOrLoad(key, func() ([]byte, error) {
		return c.call(ctx, method, endpoint, args, opts)
	})
}

func (c *Client) call(ctx context.Context, method, endpoint string, args map[string]string, opts CallOptions) (json.RawMessage, error) {
	oauthEndpoint := endpoint == "authorize" || endpoint == "token"

	accessToken := opts.AccessToken
	if !oauthEndpoint && accessToken == "" {
		if c.tokens == nil {
			return nil, ErrNoTokenSource
		}
		tok, err := c.tokens.Token(ctx, opts.UserID)
		if err != nil {
			return nil, err
		}
		accessToken = tok.AccessToken
	}

	target := c.baseURL + "/1/" + endpoint
	if oauthEndpoint {
		target = c.baseURL + "/" + endpoint
	}

	values := url.Values{}
	for k, v := range args {
		values.Set(k, v)
	}
	values.Set("client_id", c.clientID)

	resp, err := c.http.Do(ctx, endpoint, func(ctx context.Context) (*http.Request, error) {
		var req *http.Request
		var err error
		if method == http.MethodGet {
			req, err = http.NewRequestWithContext(ctx, http.MethodGet, target+"?"+values.Encode(), nil)
		} else {
			req, err = http.NewRequestWithContext(ctx, method, target, strings.NewReader(values.Encode()))
			if req != nil {
				req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			}
		}
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if !oauthEndpoint {
			req.Header.Set("Authorization", "Bearer "+accessToken)
		}
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Status *Status `json:"status"`
	}
	if err := json.Unmarshal(resp.Body, &envelope); err != nil {
		logging.Ctx(ctx).Error().
			Str("endpoint", endpoint).
			Int("status_code", resp.StatusCode).
			Str("body", resp.ErrorBody()).
			Msg("ecobee returned invalid JSON")
		return nil, ErrInvalidJSON
	}

	if envelope.Status == nil || envelope.Status.Code == 0 {
		return resp.Body, nil
	}

	status := envelope.Status
	if status.Code == StatusTokenExpired && !opts.NoAutoRefresh && !oauthEndpoint && c.tokens != nil && opts.UserID != 0 {
		tok, err := c.tokens.Refresh(ctx, opts.UserID)
		if err != nil {
			return nil, err
		}
		retry := opts
		retry.NoAutoRefresh = true
		retry.AccessToken = tok.AccessToken
		return c.call(ctx, method, endpoint, args, retry)
	}

	logging.Ctx(ctx).Warn().
		Str("endpoint", endpoint).
		Int("ecobee_status", status.Code).
		Str("message", status.Message).
		Msg("ecobee call failed")
	return nil, &StatusError{Code: status.Code, Message: status.Message}
}

func userPrefix(userID int64) string {
	return fmt.Sprintf("ecobee:%d:", userID)
}
