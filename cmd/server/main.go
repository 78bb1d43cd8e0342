// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/beestat/internal/address"
	"github.com/tomtom215/beestat/internal/api"
	"github.com/tomtom215/beestat/internal/auth"
	"github.com/tomtom215/beestat/internal/authz"
	"github.com/tomtom215/beestat/internal/config"
	"github.com/tomtom215/beestat/internal/database"
	"github.com/tomtom215/beestat/internal/ecobee"
	"github.com/tomtom215/beestat/internal/logging"
	"github.com/tomtom215/beestat/internal/mailing"
	"github.com/tomtom215/beestat/internal/patreon"
	"github.com/tomtom215/beestat/internal/smartystreets"
	"github.com/tomtom215/beestat/internal/supervisor"
	"github.com/tomtom215/beestat/internal/supervisor/services"
	"github.com/tomtom215/beestat/internal/sync"
	"github.com/tomtom215/beestat/internal/tokens"
	"github.com/tomtom215/beestat/internal/user"
	ws "github.com/tomtom215/beestat/internal/websocket"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const sessionCleanupInterval = time.Hour

//nolint:gocyclo // Main initialization function with sequential setup steps
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", version).
		Str("db_path", cfg.Database.Path).
		Str("session_store", cfg.Session.Store).
		Bool("sync_enabled", cfg.Sync.Enabled).
		Msg("Starting Beestat")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	store, storeCloser, err := auth.NewSessionStore(&cfg.Session)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open session store")
	}
	defer func() {
		if err := storeCloser.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing session store")
		}
	}()
	sessions := auth.NewSessionManager(store, cfg.Session)

	if cfg.Session.Store == auth.SessionStoreMemory && !cfg.IsDevelopment() {
		logging.Warn().Msg("Session store is 'memory': sessions are lost on restart (set SESSION_STORE=badger)")
	}
	if cfg.ShouldWarnAboutCORS() {
		logging.Warn().Msg("CORS_ORIGINS=* allows any website to call the API; list origins explicitly in production")
	}
	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}

	encryptor, err := auth.NewTokenEncryptor(cfg.Security.TokenEncryptionKey)
	if err != nil {
		logging.Fatal().Err(err).Msg("Invalid token encryption key")
	}
	if encryptor == nil {
		logging.Warn().Msg("TOKEN_ENCRYPTION_KEY is empty: OAuth tokens are stored in plaintext")
	}

	stateSigner, err := auth.NewStateSigner(cfg.Security.StateSecret, auth.DefaultStateTTL)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create OAuth state signer")
	}

	// Upstream clients and the token lifecycles that feed them.
	ecobeeClient := ecobee.NewClient(cfg.Ecobee)
	defer ecobeeClient.Close()
	ecobeeTokens := tokens.NewEcobee(db, ecobeeClient, encryptor, sessions, cfg.Sync.LockTimeout)
	ecobeeClient.SetTokenSource(ecobeeTokens)

	smartyClient := smartystreets.NewClient(cfg.SmartyStreets)
	defer smartyClient.Close()
	addresses := address.NewService(db, smartyClient)

	deps := api.Dependencies{
		DB:           db,
		Config:       cfg,
		Addresses:    addresses,
		State:        stateSigner,
		Ecobee:       ecobeeClient,
		EcobeeTokens: ecobeeTokens,
		Version:      version,
	}

	var identity user.IdentityFetcher
	if cfg.Patreon.ClientID != "" {
		patreonClient := patreon.NewClient(cfg.Patreon)
		patreonTokens := tokens.NewPatreon(db, patreonClient, encryptor, cfg.Sync.LockTimeout)
		patreonClient.SetTokenSource(patreonTokens)
		identity = patreonClient
		deps.Patreon = patreonClient
		deps.PatreonTokens = patreonTokens
	} else {
		logging.Info().Msg("Patreon integration disabled (PATREON_CLIENT_ID not set)")
	}
	deps.Users = user.NewService(db, sessions, identity)

	if subscriber := mailing.New(cfg.Mailgun); subscriber.Enabled() {
		deps.Mailing = subscriber
	}

	wsHub := ws.NewHub()
	deps.Hub = wsHub

	syncManager := sync.NewManager(db, ecobeeClient, sync.NewReconciler(db, addresses), cfg.Sync, wsHub)
	deps.Sync = syncManager

	enforcer, err := authz.NewEnforcer(authz.DefaultEnforcerConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize authorization enforcer")
	}
	defer enforcer.Close()

	handler := api.NewHandler(deps)
	router := api.NewRouter(handler, sessions, enforcer, api.NewChiMiddlewareFromConfig(cfg.Security))

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.SetupChi(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddDataService(services.NewSessionCleanupService(func(ctx context.Context) error {
		return auth.RunCleanup(ctx, store, sessionCleanupInterval)
	}))
	tree.AddMessagingService(services.NewWebSocketHubService(wsHub))
	if cfg.Sync.Enabled {
		tree.AddMessagingService(services.NewSyncService(syncManager))
		logging.Info().Dur("interval", cfg.Sync.Interval).Msg("Background sync added to supervisor tree")
	}
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
	}

	logging.Info().Msg("Beestat stopped")
}
