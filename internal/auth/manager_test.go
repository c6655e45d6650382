// Lumigate - Authentication Gateway and Session Security Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumigate

package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/tomtom215/lumigate/internal/config"
	"github.com/tomtom215/lumigate/internal/identity"
	"github.com/tomtom215/lumigate/internal/models"
)

// fakeBackend implements identity.Client for tests. Only the methods a
// test overrides matter; the rest return not-found.
type fakeBackend struct {
	fetchAccountByID func(ctx context.Context, id string) (*models.Account, error)
}

func (f *fakeBackend) CreateAccount(ctx context.Context, email, password, passwordConfirm, username string) (*models.Account, error) {
	return nil, identity.NewError(identity.KindUnavailable, "not implemented", nil)
}

func (f *fakeBackend) Authenticate(ctx context.Context, id, password string) (*models.Account, error) {
	return nil, identity.NewError(identity.KindInvalidCredentials, "invalid credentials", nil)
}

func (f *fakeBackend) FetchAccountByID(ctx context.Context, id string) (*models.Account, error) {
	if f.fetchAccountByID != nil {
		return f.fetchAccountByID(ctx, id)
	}
	return nil, identity.NewError(identity.KindNotFound, "account not found", nil)
}

func (f *fakeBackend) RequestPasswordReset(ctx context.Context, email string) error {
	return nil
}

func (f *fakeBackend) ConfirmPasswordReset(ctx context.Context, token, password, passwordConfirm string) error {
	return nil
}

func (f *fakeBackend) FetchProfileByAccount(ctx context.Context, accountID string) (*models.Profile, error) {
	return nil, identity.NewError(identity.KindNotFound, "profile not found", nil)
}

func (f *fakeBackend) CreateProfile(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	return profile, nil
}

func (f *fakeBackend) UpdateProfile(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	return profile, nil
}

func (f *fakeBackend) IsHealthy(ctx context.Context) bool { return true }

func managerConfig(environment string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Environment: environment},
		Session: config.SessionConfig{
			TTL:        time.Hour,
			CookieName: "lumigate_session",
		},
	}
}

func accountFixture(id string) *models.Account {
	return &models.Account{
		ID:       id,
		Email:    "user@example.com",
		Username: "user",
		Verified: true,
	}
}

func TestManager_CreateAndValidate(t *testing.T) {
	backend := &fakeBackend{
		fetchAccountByID: func(ctx context.Context, id string) (*models.Account, error) {
			return accountFixture(id), nil
		},
	}
	manager := NewManager(NewMemorySessionStore(), backend, managerConfig(config.EnvDevelopment))
	ctx := context.Background()

	session, err := manager.Create(ctx, "acct-1", "203.0.113.7", "test-agent")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	validated, account, err := manager.Validate(ctx, session.ID)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if validated.ID != session.ID {
		t.Errorf("session ID = %v, want %v", validated.ID, session.ID)
	}
	if account == nil || account.ID != "acct-1" {
		t.Errorf("account = %+v, want acct-1", account)
	}
}

func TestManager_ValidateUnknownSession(t *testing.T) {
	manager := NewManager(NewMemorySessionStore(), &fakeBackend{}, managerConfig(config.EnvDevelopment))

	_, _, err := manager.Validate(context.Background(), "no-such-session")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Validate() error = %v, want %v", err, ErrSessionNotFound)
	}
}

func TestManager_ValidateExpiredSessionPurges(t *testing.T) {
	store := NewMemorySessionStore()
	manager := NewManager(store, &fakeBackend{}, managerConfig(config.EnvDevelopment))
	ctx := context.Background()

	expired := NewSession("acct-1", "203.0.113.7", "", -time.Minute)
	if err := store.Create(ctx, expired); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	_, _, err := manager.Validate(ctx, expired.ID)
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Validate() error = %v, want %v", err, ErrSessionNotFound)
	}

	// The record itself is gone, not just reported absent.
	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 0 {
		t.Errorf("Count() = %d after expired-session validate, want 0", count)
	}
}

func TestManager_ValidateDeletedAccountPurges(t *testing.T) {
	store := NewMemorySessionStore()
	backend := &fakeBackend{
		fetchAccountByID: func(ctx context.Context, id string) (*models.Account, error) {
			return nil, identity.NewError(identity.KindNotFound, "account not found", nil)
		},
	}
	manager := NewManager(store, backend, managerConfig(config.EnvDevelopment))
	ctx := context.Background()

	session, err := manager.Create(ctx, "acct-gone", "203.0.113.7", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	_, _, err = manager.Validate(ctx, session.ID)
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Validate() error = %v, want %v", err, ErrSessionNotFound)
	}

	if _, err := store.Get(ctx, session.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("stale session survived account-deleted validate: %v", err)
	}
}

func TestManager_ValidateBackendOutageHonorsSession(t *testing.T) {
	store := NewMemorySessionStore()
	backend := &fakeBackend{
		fetchAccountByID: func(ctx context.Context, id string) (*models.Account, error) {
			return nil, identity.NewError(identity.KindUnavailable, "backend down", nil)
		},
	}
	manager := NewManager(store, backend, managerConfig(config.EnvDevelopment))
	ctx := context.Background()

	session, err := manager.Create(ctx, "acct-1", "203.0.113.7", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	validated, account, err := manager.Validate(ctx, session.ID)
	if err != nil {
		t.Fatalf("Validate() during outage error = %v", err)
	}
	if validated == nil {
		t.Fatal("session dropped during backend outage")
	}
	if account != nil {
		t.Errorf("account = %+v during outage, want nil", account)
	}
}

func TestManager_DestroyIdempotent(t *testing.T) {
	manager := NewManager(NewMemorySessionStore(), &fakeBackend{}, managerConfig(config.EnvDevelopment))
	ctx := context.Background()

	session, err := manager.Create(ctx, "acct-1", "203.0.113.7", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := manager.Destroy(ctx, session.ID); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	if err := manager.Destroy(ctx, session.ID); err != nil {
		t.Errorf("Destroy() second call error = %v", err)
	}
	if err := manager.Destroy(ctx, ""); err != nil {
		t.Errorf("Destroy() empty ID error = %v", err)
	}
}

func TestManager_DestroyAllForAccount(t *testing.T) {
	manager := NewManager(NewMemorySessionStore(), &fakeBackend{}, managerConfig(config.EnvDevelopment))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := manager.Create(ctx, "acct-1", "203.0.113.7", ""); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	count, err := manager.DestroyAllForAccount(ctx, "acct-1")
	if err != nil {
		t.Fatalf("DestroyAllForAccount() error = %v", err)
	}
	if count != 3 {
		t.Errorf("DestroyAllForAccount() count = %d, want 3", count)
	}
}

func TestManager_CookieAttributes(t *testing.T) {
	tests := []struct {
		environment  string
		wantSecure   bool
		wantSameSite http.SameSite
	}{
		{config.EnvProduction, true, http.SameSiteStrictMode},
		{config.EnvStaging, false, http.SameSiteNoneMode},
		{config.EnvTest, false, http.SameSiteNoneMode},
		{config.EnvDevelopment, false, http.SameSiteLaxMode},
	}

	for _, tt := range tests {
		t.Run(tt.environment, func(t *testing.T) {
			manager := NewManager(NewMemorySessionStore(), &fakeBackend{}, managerConfig(tt.environment))
			session := NewSession("acct-1", "203.0.113.7", "", time.Hour)

			cookie := manager.SessionCookie(session)
			if !cookie.HttpOnly {
				t.Error("session cookie must be HttpOnly")
			}
			if cookie.Secure != tt.wantSecure {
				t.Errorf("Secure = %v, want %v", cookie.Secure, tt.wantSecure)
			}
			if cookie.SameSite != tt.wantSameSite {
				t.Errorf("SameSite = %v, want %v", cookie.SameSite, tt.wantSameSite)
			}
			if cookie.Value != session.ID {
				t.Error("cookie value must be the opaque session ID")
			}
		})
	}
}

func TestManager_ClearCookie(t *testing.T) {
	manager := NewManager(NewMemorySessionStore(), &fakeBackend{}, managerConfig(config.EnvProduction))

	cookie := manager.ClearCookie()
	if cookie.MaxAge != -1 {
		t.Errorf("MaxAge = %d, want -1", cookie.MaxAge)
	}
	if cookie.Value != "" {
		t.Errorf("Value = %q, want empty", cookie.Value)
	}
	if !cookie.HttpOnly {
		t.Error("clear cookie must stay HttpOnly")
	}
}
