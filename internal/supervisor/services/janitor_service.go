// Lumigate - Authentication Gateway and Session Security Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumigate

package services

import (
	"context"
	"time"

	"github.com/tomtom215/lumigate/internal/auth"
	"github.com/tomtom215/lumigate/internal/logging"
)

// JanitorService periodically sweeps expired sessions and stale lockout
// records, and refreshes the active-sessions gauge.
type JanitorService struct {
	sessions auth.SessionStore
	lockout  *auth.LockoutGuard
	interval time.Duration
}

// NewJanitorService builds the sweep service. A non-positive interval
// defaults to five minutes.
func NewJanitorService(sessions auth.SessionStore, lockout *auth.LockoutGuard, interval time.Duration) *JanitorService {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &JanitorService{
		sessions: sessions,
		lockout:  lockout,
		interval: interval,
	}
}

// Serve runs the sweep loop until ctx is canceled.
func (s *JanitorService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logging.Info().Dur("interval", s.interval).Msg("Session janitor started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *JanitorService) sweep(ctx context.Context) {
	purged, err := s.sessions.CleanupExpired(ctx)
	if err != nil {
		logging.Err(err).Msg("Session cleanup failed")
	} else if purged > 0 {
		logging.Debug().Int("purged", purged).Msg("Expired sessions removed")
	}

	s.lockout.Cleanup(ctx)

	if count, err := s.sessions.Count(ctx); err == nil {
		auth.ActiveSessions.Set(float64(count))
	}
}

// String implements fmt.Stringer for supervisor logs.
func (s *JanitorService) String() string {
	return "session-janitor"
}
