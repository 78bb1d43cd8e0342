// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/beestat/internal/address"
	"github.com/tomtom215/beestat/internal/auth"
	"github.com/tomtom215/beestat/internal/config"
	"github.com/tomtom215/beestat/internal/database"
	"github.com/tomtom215/beestat/internal/ecobee"
	"github.com/tomtom215/beestat/internal/logging"
	"github.com/tomtom215/beestat/internal/models"
	syncpkg "github.com/tomtom215/beestat/internal/sync"
	"github.com/tomtom215/beestat/internal/user"
	ws "github.com/tomtom215/beestat/internal/websocket"
)

// EcobeeAuthorizer is the part of the ecobee client the OAuth endpoints use.
type EcobeeAuthorizer interface {
	AuthorizeURL(state string) string
	RegisteredThermostats(ctx context.Context, accessToken string) ([]ecobee.Thermostat, error)
}

// EcobeeTokens obtains and stores ecobee tokens.
type EcobeeTokens interface {
	Obtain(ctx context.Context, code string) (models.Token, error)
	Save(ctx context.Context, userID int64, tok models.Token) (*models.EcobeeToken, error)
}

// PatreonAuthorizer builds the Patreon authorize URL.
type PatreonAuthorizer interface {
	AuthorizeURL(state string) string
}

// PatreonTokens obtains Patreon tokens.
type PatreonTokens interface {
	Obtain(ctx context.Context, userID int64, code string) (*models.PatreonToken, error)
}

// Syncer runs an on-demand sync for one user.
type Syncer interface {
	TriggerSync(ctx context.Context, userID int64) (*syncpkg.Result, error)
	LastSyncTime() time.Time
}

// Subscriber adds an address to the mailing list.
type Subscriber interface {
	Subscribe(ctx context.Context, email string) error
}

// Dependencies are the services behind the RPC surface. Patreon, Mailing
// and Hub are optional.
type Dependencies struct {
	DB     *database.DB
	Config *config.Config

	Users     *user.Service
	Addresses *address.Service
	State     *auth.StateSigner

	Ecobee        EcobeeAuthorizer
	EcobeeTokens  EcobeeTokens
	Patreon       PatreonAuthorizer
	PatreonTokens PatreonTokens

	Sync    Syncer
	Mailing Subscriber
	Hub     *ws.Hub

	Version string
}

// Handler implements the RPC resources plus the health and websocket
// endpoints.
//
// Methods are split across files by resource:
//   - handlers_ecobee.go: ecobee OAuth flow
//   - handlers_patreon.go: Patreon OAuth flow
//   - handlers_user.go: the user resource
//   - handlers_read.go: read_id for stored entities
//   - handlers_sync.go: on-demand sync
//   - handlers_health.go, handlers_websocket.go
type Handler struct {
	db        *database.DB
	config    *config.Config
	users     *user.Service
	addresses *address.Service
	state     *auth.StateSigner

	ecobee        EcobeeAuthorizer
	ecobeeTokens  EcobeeTokens
	patreon       PatreonAuthorizer
	patreonTokens PatreonTokens

	sync    Syncer
	mailing Subscriber
	wsHub   *ws.Hub

	version   string
	startTime time.Time
	methods   map[string]map[string]MethodFunc
}

// NewHandler creates the handler and registers every RPC method.
func NewHandler(deps Dependencies) *Handler {
	h := &Handler{
		db:            deps.DB,
		config:        deps.Config,
		users:         deps.Users,
		addresses:     deps.Addresses,
		state:         deps.State,
		ecobee:        deps.Ecobee,
		ecobeeTokens:  deps.EcobeeTokens,
		patreon:       deps.Patreon,
		patreonTokens: deps.PatreonTokens,
		sync:          deps.Sync,
		mailing:       deps.Mailing,
		wsHub:         deps.Hub,
		version:       deps.Version,
		startTime:     time.Now(),
		methods:       make(map[string]map[string]MethodFunc),
	}
	if h.version == "" {
		h.version = "dev"
	}

	h.register("ecobee", "authorize", h.ecobeeAuthorize)
	h.register("ecobee", "initialize", h.ecobeeInitialize)

	h.register("patreon", "authorize", h.patreonAuthorize)
	h.register("patreon", "initialize", h.patreonInitialize)

	h.register("user", "read_id", h.userReadID)
	h.register("user", "log_out", h.userLogOut)
	h.register("user", "sync_patreon_status", h.userSyncPatreonStatus)

	h.register("address", "read_id", h.addressReadID)
	h.register("ecobee_thermostat", "read_id", readID[models.EcobeeThermostat](h.db))
	h.register("ecobee_sensor", "read_id", readID[models.EcobeeSensor](h.db))
	h.register("thermostat", "read_id", readID[models.Thermostat](h.db))
	h.register("thermostat_group", "read_id", readID[models.ThermostatGroup](h.db))
	h.register("sensor", "read_id", readID[models.Sensor](h.db))

	h.register("thermostat", "sync", h.syncNow)
	h.register("sensor", "sync", h.syncNow)

	return h
}

// getUpgrader creates a WebSocket upgrader with origin checking and a
// handshake timeout.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin validates WebSocket connection origins. Browsers
// always send Origin, so a missing header is rejected.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		logging.Warn().Msg("WebSocket connection rejected: missing Origin header")
		return false
	}

	if h.config == nil {
		return true
	}
	if len(h.config.Security.CORSOrigins) == 0 && sameHost(origin, r.Host) {
		return true
	}
	for _, allowed := range h.config.Security.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}

// sameHost reports whether origin names host. Without configured origins
// the dashboard is assumed to be served by this process.
func sameHost(origin, host string) bool {
	u, err := url.Parse(origin)
	return err == nil && u.Host != "" && strings.EqualFold(u.Host, host)
}

// sanitizeLogValue strips control characters from client-supplied values
// before they reach the log.
func sanitizeLogValue(s string) string {
	const maxLen = 200
	s = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	return s
}
