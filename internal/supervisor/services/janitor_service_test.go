// Lumigate - Authentication Gateway and Session Security Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumigate

package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/lumigate/internal/auth"
)

func newTestJanitor(interval time.Duration) (*JanitorService, *auth.MemorySessionStore) {
	sessions := auth.NewMemorySessionStore()
	lockout := auth.NewLockoutGuard(auth.NewMemoryLockoutStore(), &auth.LockoutConfig{
		Threshold: 5,
		Cooldown:  15 * time.Minute,
		Enabled:   true,
	})
	return NewJanitorService(sessions, lockout, interval), sessions
}

func TestJanitorService_SweepPurgesExpiredSessions(t *testing.T) {
	svc, sessions := newTestJanitor(time.Minute)
	ctx := t.Context()

	expired := auth.NewSession("acct-1", "192.0.2.1", "test-agent", -time.Minute)
	if err := sessions.Create(ctx, expired); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	live := auth.NewSession("acct-2", "192.0.2.2", "test-agent", time.Hour)
	if err := sessions.Create(ctx, live); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	svc.sweep(ctx)

	if _, err := sessions.Get(ctx, expired.ID); !errors.Is(err, auth.ErrSessionNotFound) {
		t.Errorf("Get() expired session error = %v, want ErrSessionNotFound", err)
	}
	if _, err := sessions.Get(ctx, live.ID); err != nil {
		t.Errorf("Get() live session error = %v", err)
	}
}

func TestJanitorService_ServeStopsOnCancel(t *testing.T) {
	svc, _ := newTestJanitor(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve() did not return after cancellation")
	}
}

func TestJanitorService_DefaultInterval(t *testing.T) {
	svc, _ := newTestJanitor(0)
	if svc.interval != 5*time.Minute {
		t.Errorf("interval = %v, want 5m default", svc.interval)
	}
}
