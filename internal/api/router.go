// Lumigate - Authentication Gateway and Session Security Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumigate

// Package api wires the gateway's HTTP surface: auth routes, health
// endpoints, and Prometheus metrics, composed with chi middleware.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/lumigate/internal/auth"
	"github.com/tomtom215/lumigate/internal/config"
	"github.com/tomtom215/lumigate/internal/middleware"
)

// NewRouter builds the gateway's chi router.
//
// Middleware order matters: request ID first so every log line can carry
// it, then metrics, then recovery, then the browser-facing CORS and rate
// limits, and finally session resolution inside the API group.
func NewRouter(s *Server, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(cfg.Server.Timeout))

	if len(cfg.Security.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Security.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", auth.CSRFHeaderName, "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	if !cfg.Security.RateLimitDisabled {
		reqs := cfg.Security.RateLimitReqs
		if reqs <= 0 {
			reqs = 100
		}
		window := cfg.Security.RateLimitWindow
		if window <= 0 {
			window = time.Minute
		}
		r.Use(httprate.LimitByIP(reqs, window))
	}

	sessionMW := auth.SessionMiddleware(s.sessions, s.currentUser)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(sessionMW)

		// Read-only endpoints: no CSRF check (safe methods).
		r.Get("/auth/status", s.handleStatus)
		r.Get("/csrf-token", s.handleCSRFToken)

		// Password reset flows operate without a session; the reset
		// token itself is the proof of intent.
		r.Post("/auth/password-reset/request", s.handlePasswordResetRequest)
		r.Post("/auth/password-reset/confirm", s.handlePasswordResetConfirm)

		// Pre-session mutating routes: double-submit CSRF.
		r.Group(func(r chi.Router) {
			r.Use(s.csrf.RequireDoubleSubmitToken)
			r.Post("/auth/register", s.handleRegister)
			r.Post("/auth/login", s.handleLogin)
		})

		// Session-bound mutating routes: authenticated + session CSRF.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth)
			r.Use(s.csrf.RequireSessionToken)
			r.Post("/auth/logout", s.handleLogout)
			r.Put("/auth/profile", s.handleProfileUpdate)
			r.Post("/auth/onboarding/complete", s.handleOnboardingComplete)
		})
	})

	r.Get("/health/live", s.handleHealthLive)
	r.Get("/health/ready", s.handleHealthReady)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
