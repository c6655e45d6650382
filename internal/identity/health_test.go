// Lumigate - Authentication Gateway and Session Security Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumigate

package identity

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/lumigate/internal/models"
)

// healthFake implements Client with a switchable health state.
type healthFake struct {
	healthy atomic.Bool
}

func (f *healthFake) CreateAccount(ctx context.Context, email, password, passwordConfirm, username string) (*models.Account, error) {
	return nil, NewError(KindUnavailable, "not implemented", nil)
}

func (f *healthFake) Authenticate(ctx context.Context, id, password string) (*models.Account, error) {
	return nil, NewError(KindUnavailable, "not implemented", nil)
}

func (f *healthFake) FetchAccountByID(ctx context.Context, id string) (*models.Account, error) {
	return nil, NewError(KindNotFound, "account not found", nil)
}

func (f *healthFake) RequestPasswordReset(ctx context.Context, email string) error { return nil }

func (f *healthFake) ConfirmPasswordReset(ctx context.Context, token, password, passwordConfirm string) error {
	return nil
}

func (f *healthFake) FetchProfileByAccount(ctx context.Context, accountID string) (*models.Profile, error) {
	return nil, NewError(KindNotFound, "profile not found", nil)
}

func (f *healthFake) CreateProfile(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	return profile, nil
}

func (f *healthFake) UpdateProfile(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	return profile, nil
}

func (f *healthFake) IsHealthy(ctx context.Context) bool { return f.healthy.Load() }

func TestHealthMonitor_UnprobedReportsUnhealthy(t *testing.T) {
	fake := &healthFake{}
	fake.healthy.Store(true)
	monitor := NewHealthMonitor(fake, time.Minute)

	if monitor.Healthy() {
		t.Error("Healthy() = true before any probe")
	}
}

func TestHealthMonitor_ProbeInitial(t *testing.T) {
	fake := &healthFake{}
	fake.healthy.Store(true)
	monitor := NewHealthMonitor(fake, time.Minute)

	if !monitor.ProbeInitial(context.Background()) {
		t.Error("ProbeInitial() = false for healthy backend")
	}
	if !monitor.Healthy() {
		t.Error("Healthy() = false after successful probe")
	}
}

func TestHealthMonitor_ProbeInitialFailureIsNotFatal(t *testing.T) {
	fake := &healthFake{}
	monitor := NewHealthMonitor(fake, time.Minute)

	if monitor.ProbeInitial(context.Background()) {
		t.Error("ProbeInitial() = true for unreachable backend")
	}
	if monitor.Healthy() {
		t.Error("Healthy() = true after failed probe")
	}
}

func TestHealthMonitor_RunTracksRecovery(t *testing.T) {
	fake := &healthFake{}
	monitor := NewHealthMonitor(fake, 10*time.Millisecond)
	monitor.ProbeInitial(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- monitor.Run(ctx) }()

	fake.healthy.Store(true)

	deadline := time.After(2 * time.Second)
	for !monitor.Healthy() {
		select {
		case <-deadline:
			cancel()
			t.Fatal("monitor never observed backend recovery")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; err != context.Canceled {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}
