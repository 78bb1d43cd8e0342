// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package patreon

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"
	"golang.org/x/oauth2"

	"github.com/tomtom215/beestat/internal/config"
	"github.com/tomtom215/beestat/internal/logging"
	"github.com/tomtom215/beestat/internal/models"
	"github.com/tomtom215/beestat/internal/upstream"
)

// ErrInvalidJSON is returned when Patreon answers with a body that is not
// JSON.
var ErrInvalidJSON = errors.New("Invalid JSON") //nolint:staticcheck // user-facing message

// ErrNoTokenSource is returned when a call needs a user token but no
// TokenSource has been set.
var ErrNoTokenSource = errors.New("patreon: no token source configured")

const statusTokenExpired = 14

// StatusError is a non-zero status object in a Patreon response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return e.Message
}

// TokenSource supplies and refreshes a user's Patreon access token.
type TokenSource interface {
	Token(ctx context.Context, userID int64) (models.Token, error)
	Refresh(ctx context.Context, userID int64) (models.Token, error)
}

// TokenResponse is the body of the token endpoint.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	Scope        string `json:"scope,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Complete reports whether both tokens are present.
func (t *TokenResponse) Complete() bool {
	return t.AccessToken != "" && t.RefreshToken != ""
}

// Client talks to the Patreon API.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	redirect     string

	http   *upstream.Client
	oauth  *oauth2.Config
	tokens TokenSource
}

// NewClient creates a client from cfg.
func NewClient(cfg config.PatreonConfig) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		baseURL:      base,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		redirect:     cfg.RedirectURI,
		http: upstream.New(upstream.Config{
			Name:    "patreon",
			Timeout: cfg.Timeout,
		}),
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       []string{"identity"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthorizeURL,
				TokenURL: base + "/token",
			},
		},
	}
}

// SetTokenSource wires the token lifecycle into the client.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.tokens = ts
}

// AuthorizeURL returns the consent URL. The state is optional for Patreon
// and omitted when empty.
func (c *Client) AuthorizeURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// Exchange trades an authorization code for a token pair.
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
	body, err := c.Call(ctx, http.MethodPost, "token", args, 0, false)
	if err != nil {
		return nil, err
	}
	var tr TokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, ErrInvalidJSON
	}
	return &tr, nil
}

// Call performs one request on behalf of userID and returns the raw body.
// With autoRefresh an expired token is refreshed and the call retried once.
func (c *Client) Call(ctx context.Context, method, endpoint string, args map[string]string, userID int64, autoRefresh bool) (json.RawMessage, error) {
	return c.call(ctx, method, endpoint, args, userID, autoRefresh, "")
}

func (c *Client) call(ctx context.Context, method, endpoint string, args map[string]string, userID int64, autoRefresh bool, accessToken string) (json.RawMessage, error) {
	oauthEndpoint := endpoint == "authorize" || endpoint == "token"

	if !oauthEndpoint && accessToken == "" {
		if c.tokens == nil {
			return nil, ErrNoTokenSource
		}
		tok, err := c.tokens.Token(ctx, userID)
		if err != nil {
			return nil, err
		}
		accessToken = tok.AccessToken
	}

	target := c.baseURL + "/v2/" + endpoint
	if oauthEndpoint {
		target = c.baseURL + "/" + endpoint
	}

	values := url.Values{}
	for k, v := range args {
		values.Set(k, v)
	}
	if method == http.MethodPost {
		values.Set("client_id", c.clientID)
		values.Set("client_secret", c.clientSecret)
	}

	resp, err := c.http.Do(ctx, endpoint, func(ctx context.Context) (*http.Request, error) {
		var req *http.Request
		var err error
		if method == http.MethodGet {
			u := target
			if len(values) > 0 {
				u += "?" + values.Encode()
			}
			req, err = http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		} else {
			req, err = http.NewRequestWithContext(ctx, method, target, strings.NewReader(values.Encode()))
		}
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		if !oauthEndpoint {
			req.Header.Set("Authorization", "Bearer "+accessToken)
		}
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Status *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"status"`
	}
	if err := json.Unmarshal(resp.Body, &envelope); err != nil {
		logging.Ctx(ctx).Error().
			Str("endpoint", endpoint).
			Int("status_code", resp.StatusCode).
			Str("body", resp.ErrorBody()).
			Msg("patreon returned invalid JSON")
		return nil, ErrInvalidJSON
	}
	if envelope.Status == nil || envelope.Status.Code == 0 {
		return resp.Body, nil
	}

	if envelope.Status.Code == statusTokenExpired && autoRefresh && !oauthEndpoint && c.tokens != nil {
		tok, err := c.tokens.Refresh(ctx, userID)
		if err != nil {
			return nil, err
		}
		return c.call(ctx, method, endpoint, args, userID, false, tok.AccessToken)
	}
	return nil, &StatusError{Code: envelope.Status.Code, Message: envelope.Status.Message}
}
