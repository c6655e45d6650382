// Lumigate - Authentication Gateway and Session Security Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumigate

package identity

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/tomtom215/lumigate/internal/logging"
)

// HealthMonitor tracks identity backend reachability. Startup performs
// one awaited probe so operators see the outcome immediately; a failed
// probe is logged but never blocks the process, and a supervised loop
// keeps re-probing afterwards.
type HealthMonitor struct {
	client   Client
	interval time.Duration
	healthy  atomic.Bool
	probed   atomic.Bool
}

// NewHealthMonitor creates a monitor over the given client. The interval
// controls background re-probes; zero defaults to 30s.
func NewHealthMonitor(client Client, interval time.Duration) *HealthMonitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &HealthMonitor{
		client:   client,
		interval: interval,
	}
}

// ProbeInitial runs the awaited startup probe and records the outcome.
// Returns whether the backend was reachable.
func (m *HealthMonitor) ProbeInitial(ctx context.Context) bool {
	ok := m.client.IsHealthy(ctx)
	m.healthy.Store(ok)
	m.probed.Store(true)

	if ok {
		logging.Info().Msg("Identity backend reachable")
	} else {
		logging.Error().Msg("Identity backend unreachable at startup; auth operations will fail until it recovers")
	}
	return ok
}

// Run re-probes the backend on a timer until the context is canceled.
// Intended to run under the supervision tree.
func (m *HealthMonitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			probeCtx, cancel := context.WithTimeout(ctx, m.interval)
			ok := m.client.IsHealthy(probeCtx)
			cancel()

			was := m.healthy.Swap(ok)
			m.probed.Store(true)

			switch {
			case ok && !was:
				logging.Info().Msg("Identity backend recovered")
			case !ok && was:
				logging.Warn().Msg("Identity backend health probe failed")
			case !ok:
				logging.Debug().Msg("Identity backend still unreachable")
			}
		}
	}
}

// Healthy reports the last observed backend state. Before the first
// probe completes it reports false.
func (m *HealthMonitor) Healthy() bool {
	return m.probed.Load() && m.healthy.Load()
}
