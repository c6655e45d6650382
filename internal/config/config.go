// Lumigate - Authentication Gateway and Session Security Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumigate

// Package config provides layered configuration loading for Lumigate using
// Koanf v2. Configuration precedence, highest last:
//
//  1. Built-in defaults (struct)
//  2. Optional YAML config file
//  3. Environment variables (LUMIGATE_* prefix)
package config

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Environment mode values. The deployment environment drives session cookie
// attributes and production hardening checks.
const (
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Backend  BackendConfig  `koanf:"backend"`
	Session  SessionConfig  `koanf:"session"`
	Lockout  LockoutConfig  `koanf:"lockout"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment" validate:"oneof=development test staging production"`
}

// BackendConfig holds identity backend connection settings.
type BackendConfig struct {
	// URL is the base URL of the identity backend (e.g. http://127.0.0.1:8090).
	URL string `koanf:"url" validate:"required,url"`

	// Timeout bounds each backend HTTP call.
	Timeout time.Duration `koanf:"timeout"`

	// ServiceToken authenticates the gateway's server-to-server calls
	// (account lookup, profile records). Never exposed to clients.
	ServiceToken string `koanf:"service_token"`

	// ProfileCollection is the backend collection holding profile records.
	ProfileCollection string `koanf:"profile_collection"`

	// HealthInterval is the re-probe interval for the background health monitor.
	HealthInterval time.Duration `koanf:"health_interval"`

	// BreakerMaxFailures trips the circuit breaker after this many
	// consecutive failures.
	BreakerMaxFailures uint32 `koanf:"breaker_max_failures"`

	// BreakerCooldown is how long the breaker stays open before probing.
	BreakerCooldown time.Duration `koanf:"breaker_cooldown"`
}

// Session store backends.
const (
	SessionStoreMemory = "memory"
	SessionStoreBadger = "badger"
)

// SessionConfig holds session lifetime and storage settings.
type SessionConfig struct {
	// TTL is the absolute session lifetime. No sliding renewal.
	TTL time.Duration `koanf:"ttl"`

	// CookieName is the session cookie name.
	CookieName string `koanf:"cookie_name"`

	// Store selects the session store backend: "memory" or "badger".
	Store string `koanf:"store" validate:"oneof=memory badger"`

	// StorePath is the on-disk directory for the badger store.
	StorePath string `koanf:"store_path"`

	// CleanupInterval is the janitor sweep interval for expired sessions.
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
}

// LockoutConfig holds brute-force guard settings.
type LockoutConfig struct {
	// Threshold is the number of consecutive failures that trigger a lockout.
	Threshold int `koanf:"threshold" validate:"min=1"`

	// Cooldown is how long a locked source address stays locked.
	Cooldown time.Duration `koanf:"cooldown"`
}

// SecurityConfig holds request-surface protections.
type SecurityConfig struct {
	// RateLimitReqs / RateLimitWindow configure coarse per-IP limiting on
	// the whole API surface. This is separate from the brute-force guard,
	// which tracks authentication failures specifically.
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	// CORSOrigins lists allowed browser origins. Credentials mode requires
	// explicit origins in production ("*" is rejected there).
	CORSOrigins []string `koanf:"cors_origins"`

	// TrustedProxies lists proxies whose X-Forwarded-For is honored for
	// source address resolution.
	TrustedProxies []string `koanf:"trusted_proxies"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// IsProduction reports whether the server runs in production mode.
func (c *ServerConfig) IsProduction() bool {
	return c.Environment == EnvProduction
}

// CookieSecure reports whether session cookies must carry the Secure flag.
// Only production forces HTTPS-only cookies; test and staging environments
// commonly run behind plain HTTP.
func (c *ServerConfig) CookieSecure() bool {
	return c.Environment == EnvProduction
}

// CookieSameSite returns the SameSite mode for the deployment environment:
// production uses Strict, test/staging use None (cross-site test harnesses),
// development uses Lax.
func (c *ServerConfig) CookieSameSite() http.SameSite {
	switch c.Environment {
	case EnvProduction:
		return http.SameSiteStrictMode
	case EnvTest, EnvStaging:
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// Validate checks configuration consistency beyond struct tags.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	switch c.Server.Environment {
	case EnvDevelopment, EnvTest, EnvStaging, EnvProduction:
	default:
		return fmt.Errorf("server.environment must be one of development, test, staging, production; got %q", c.Server.Environment)
	}

	if c.Backend.URL == "" {
		return fmt.Errorf("backend.url is required")
	}
	u, err := url.Parse(c.Backend.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("backend.url must be an absolute URL, got %q", c.Backend.URL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend.url scheme must be http or https, got %q", u.Scheme)
	}

	if c.Session.TTL <= 0 {
		return fmt.Errorf("session.ttl must be positive, got %s", c.Session.TTL)
	}
	if c.Session.Store != SessionStoreMemory && c.Session.Store != SessionStoreBadger {
		return fmt.Errorf("session.store must be memory or badger, got %q", c.Session.Store)
	}
	if c.Session.Store == SessionStoreBadger && c.Session.StorePath == "" {
		return fmt.Errorf("session.store_path is required when session.store is badger")
	}

	if c.Lockout.Threshold < 1 {
		return fmt.Errorf("lockout.threshold must be at least 1, got %d", c.Lockout.Threshold)
	}
	if c.Lockout.Cooldown <= 0 {
		return fmt.Errorf("lockout.cooldown must be positive, got %s", c.Lockout.Cooldown)
	}

	if c.Server.IsProduction() {
		if err := c.validateProduction(); err != nil {
			return err
		}
	}

	return nil
}

// validateProduction enforces hardening requirements that only apply to
// production deployments.
func (c *Config) validateProduction() error {
	for _, origin := range c.Security.CORSOrigins {
		if strings.TrimSpace(origin) == "*" {
			return fmt.Errorf("security.cors_origins must not contain %q in production (credentialed requests)", "*")
		}
	}
	if strings.HasPrefix(c.Backend.URL, "http://") {
		host := strings.TrimPrefix(c.Backend.URL, "http://")
		if !strings.HasPrefix(host, "127.0.0.1") && !strings.HasPrefix(host, "localhost") {
			return fmt.Errorf("backend.url must use https in production unless the backend is local")
		}
	}
	return nil
}
