// Lumigate - Authentication Gateway and Session Security Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumigate

package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the auth subsystem. Registered on the default
// registry via promauto and exposed at /metrics.
var (
	// LoginAttempts counts login attempts by outcome:
	// success, invalid_credentials, locked_out, backend_unavailable.
	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lumigate_login_attempts_total",
		Help: "Login attempts by outcome",
	}, []string{"outcome"})

	// LockoutsTriggered counts brute-force lockouts applied.
	LockoutsTriggered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lumigate_lockouts_triggered_total",
		Help: "Brute-force lockouts applied to source addresses",
	})

	// SessionsCreated counts sessions established after authentication.
	SessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lumigate_sessions_created_total",
		Help: "Sessions created",
	})

	// SessionsDestroyed counts explicit session destructions (logout,
	// auth anomaly, account purge).
	SessionsDestroyed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lumigate_sessions_destroyed_total",
		Help: "Sessions destroyed",
	})

	// StaleSessionsPurged counts sessions removed because their backing
	// account no longer exists.
	StaleSessionsPurged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lumigate_stale_sessions_purged_total",
		Help: "Sessions purged after their account disappeared from the backend",
	})

	// ActiveSessions tracks the current live session count, refreshed by
	// the maintenance janitor.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lumigate_active_sessions",
		Help: "Current number of live sessions",
	})

	// CSRFRejections counts requests refused by the CSRF guard.
	CSRFRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lumigate_csrf_rejections_total",
		Help: "Mutating requests rejected by the CSRF guard",
	})

	// BackendProbes counts identity backend health probes by result.
	BackendProbes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lumigate_backend_probes_total",
		Help: "Identity backend health probes by result",
	}, []string{"result"})
)
