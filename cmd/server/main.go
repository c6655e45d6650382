// Lumigate - Authentication Gateway and Session Security Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumigate

// Package main is the entry point for the Lumigate server.
//
// Lumigate is an authentication gateway that sits between browser
// clients and an identity backend. It owns the session lifecycle
// (opaque HTTP-only cookies), CSRF protection, brute-force lockout,
// and profile provisioning, so browsers never talk to the identity
// backend directly and no token material is exposed to script.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered load from config file and environment (Koanf v2)
//  2. Identity client: circuit-breaker wrapped HTTP client for the backend
//  3. Startup probe: one awaited backend health check (logged, never fatal)
//  4. Session store: in-memory or BadgerDB, per SESSION_STORE
//  5. Guards: brute-force lockout and CSRF
//  6. HTTP server: chi router with the /api/v1 surface
//  7. Supervision tree: suture supervisors restart failed layers
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (LUMIGATE_ prefix, see config.yaml.example)
//   - Config file (config.yaml or LUMIGATE_CONFIG_PATH)
//   - Built-in defaults
//
// Common settings:
//   - LUMIGATE_BACKEND_URL: identity backend base URL (default http://127.0.0.1:8090)
//   - LUMIGATE_BACKEND_SERVICE_TOKEN: service credential for record operations
//   - LUMIGATE_ENVIRONMENT: development | test | staging | production
//   - LUMIGATE_SESSION_STORE: memory | badger
//   - LUMIGATE_SECURITY_CORS_ORIGINS: comma-separated browser origins
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM:
//   - Stops accepting new connections
//   - Waits for in-flight requests to complete (10s timeout)
//   - Closes the session store
package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/lumigate/internal/api"
	"github.com/tomtom215/lumigate/internal/auth"
	"github.com/tomtom215/lumigate/internal/config"
	"github.com/tomtom215/lumigate/internal/identity"
	"github.com/tomtom215/lumigate/internal/logging"
	"github.com/tomtom215/lumigate/internal/profile"
	"github.com/tomtom215/lumigate/internal/supervisor"
	"github.com/tomtom215/lumigate/internal/supervisor/services"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		// Use default logger for config errors (config not yet available)
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("backend_url", cfg.Backend.URL).
		Str("session_store", cfg.Session.Store).
		Msg("Starting Lumigate")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Identity backend client and its awaited startup probe. An
	// unreachable backend is logged but never fatal: the breaker and
	// readiness endpoint handle a backend that comes up later.
	backend := identity.NewHTTPClient(&cfg.Backend)
	monitor := identity.NewHealthMonitor(backend, cfg.Backend.HealthInterval)
	monitor.ProbeInitial(ctx)

	sessionStore, err := newSessionStore(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open session store")
	}
	defer func() {
		if err := sessionStore.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing session store")
		}
	}()

	sessions := auth.NewManager(sessionStore, backend, cfg)
	lockout := auth.NewLockoutGuard(auth.NewMemoryLockoutStore(), &auth.LockoutConfig{
		Threshold: cfg.Lockout.Threshold,
		Cooldown:  cfg.Lockout.Cooldown,
		Enabled:   true,
	})
	csrf := auth.NewCSRFGuard(cfg.Server.CookieSecure(), cfg.Server.CookieSameSite())
	profiles := profile.NewProvisioner(backend)

	server := api.NewServer(backend, sessions, lockout, csrf, profiles, monitor, cfg.Security.TrustedProxies)
	router := api.NewRouter(server, cfg)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       120 * time.Second,
	}

	tree := supervisor.NewTree(supervisor.DefaultTreeConfig())
	tree.AddBackendService(services.NewHealthMonitorService(monitor))
	tree.AddAPIService(services.NewHTTPServerService(httpServer, 10*time.Second, "lumigate-http"))
	tree.AddMaintenanceService(services.NewJanitorService(sessionStore, lockout, cfg.Session.CleanupInterval))

	logging.Info().Str("addr", httpServer.Addr).Msg("Lumigate listening")

	if err := tree.Serve(ctx); err != nil {
		logging.Error().Err(err).Msg("Supervision tree exited with error")
	}

	logging.Info().Msg("Lumigate stopped")
}

// newSessionStore selects the session store backend from configuration.
func newSessionStore(cfg *config.Config) (auth.SessionStore, error) {
	switch cfg.Session.Store {
	case config.SessionStoreBadger:
		return auth.OpenBadgerSessionStore(cfg.Session.StorePath)
	default:
		return auth.NewMemorySessionStore(), nil
	}
}
