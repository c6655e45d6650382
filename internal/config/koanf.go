// Lumigate - Authentication Gateway and Session Security Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumigate

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/lumigate/config.yaml",
	"/etc/lumigate/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "LUMIGATE_CONFIG_PATH"

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			Timeout:     30 * time.Second,
			Environment: EnvDevelopment,
		},
		Backend: BackendConfig{
			URL:                "http://127.0.0.1:8090",
			Timeout:            10 * time.Second,
			ProfileCollection:  "profiles",
			HealthInterval:     30 * time.Second,
			BreakerMaxFailures: 5,
			BreakerCooldown:    15 * time.Second,
		},
		Session: SessionConfig{
			TTL:             24 * time.Hour,
			CookieName:      "lumigate_session",
			Store:           SessionStoreMemory,
			StorePath:       "/data/sessions",
			CleanupInterval: 5 * time.Minute,
		},
		Lockout: LockoutConfig{
			Threshold: 5,
			Cooldown:  15 * time.Minute,
		},
		Security: SecurityConfig{
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{},
			TrustedProxies:    []string{},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in sensible defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
//
// This function provides:
//   - Type-safe configuration unmarshaling
//   - Clear precedence: ENV > File > Defaults
//   - Support for nested configuration via koanf struct tags
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// Transform environment variable names to koanf paths:
	// LUMIGATE_BACKEND_URL -> backend.url
	// LUMIGATE_SESSION_TTL -> session.ttl
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Post-process slice fields from comma-separated strings
	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	// Unmarshal into Config struct
	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	// Check environment variable first
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	// Search default paths
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"security.cors_origins",
	"security.trusted_proxies",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// This is necessary because env vars come in as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// If it's already a slice (from YAML file), skip
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		// If it's a string, split by comma
		if strVal, ok := val.(string); ok {
			if strVal == "" {
				continue
			}
			parts := strings.Split(strVal, ",")
			trimmed := make([]string, 0, len(parts))
			for _, p := range parts {
				p = strings.TrimSpace(p)
				if p != "" {
					trimmed = append(trimmed, p)
				}
			}
			if len(trimmed) > 0 {
				if err := k.Set(path, trimmed); err != nil {
					return fmt.Errorf("failed to set %s: %w", path, err)
				}
			}
		}
	}
	return nil
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - LUMIGATE_BACKEND_URL -> backend.url
//   - LUMIGATE_SESSION_TTL -> session.ttl
//   - LUMIGATE_HTTP_PORT -> server.port
//   - ENVIRONMENT -> server.environment
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Server mappings
		"lumigate_http_host":    "server.host",
		"lumigate_http_port":    "server.port",
		"lumigate_http_timeout": "server.timeout",
		"lumigate_environment":  "server.environment",
		"environment":           "server.environment",

		// Identity backend mappings
		"lumigate_backend_url":                  "backend.url",
		"lumigate_backend_timeout":              "backend.timeout",
		"lumigate_backend_service_token":        "backend.service_token",
		"lumigate_backend_profile_collection":   "backend.profile_collection",
		"lumigate_backend_health_interval":      "backend.health_interval",
		"lumigate_backend_breaker_max_failures": "backend.breaker_max_failures",
		"lumigate_backend_breaker_cooldown":     "backend.breaker_cooldown",

		// Session mappings
		"lumigate_session_ttl":              "session.ttl",
		"lumigate_session_cookie_name":      "session.cookie_name",
		"lumigate_session_store":            "session.store",
		"lumigate_session_store_path":       "session.store_path",
		"lumigate_session_cleanup_interval": "session.cleanup_interval",

		// Lockout mappings
		"lumigate_lockout_threshold": "lockout.threshold",
		"lumigate_lockout_cooldown":  "lockout.cooldown",

		// Security mappings
		"lumigate_rate_limit_requests": "security.rate_limit_reqs",
		"lumigate_rate_limit_window":   "security.rate_limit_window",
		"lumigate_disable_rate_limit":  "security.rate_limit_disabled",
		"lumigate_cors_origins":        "security.cors_origins",
		"lumigate_trusted_proxies":     "security.trusted_proxies",

		// Logging mappings
		"lumigate_log_level":  "logging.level",
		"lumigate_log_format": "logging.format",
		"lumigate_log_caller": "logging.caller",
		"log_level":           "logging.level",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	// For unmapped keys, return empty string to skip them
	// This prevents random environment variables from polluting config
	return ""
}
