// Lumigate - Authentication Gateway and Session Security Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumigate

package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/lumigate/internal/config"
	"github.com/tomtom215/lumigate/internal/identity"
	"github.com/tomtom215/lumigate/internal/logging"
	"github.com/tomtom215/lumigate/internal/models"
)

// Manager owns the session lifecycle: creation after authentication,
// validation on each request, and destruction on logout or anomaly.
// All dependencies are injected; the manager holds no global state.
type Manager struct {
	store   SessionStore
	backend identity.Client
	ttl     time.Duration
	cookie  CookieDescriptor
}

// CookieDescriptor captures the environment-dependent session cookie
// attributes. HttpOnly is always set; Secure and SameSite follow the
// deployment environment.
type CookieDescriptor struct {
	Name     string
	Secure   bool
	SameSite http.SameSite
}

// NewManager creates a session manager.
func NewManager(store SessionStore, backend identity.Client, cfg *config.Config) *Manager {
	ttl := cfg.Session.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	name := cfg.Session.CookieName
	if name == "" {
		name = "lumigate_session"
	}

	return &Manager{
		store:   store,
		backend: backend,
		ttl:     ttl,
		cookie: CookieDescriptor{
			Name:     name,
			Secure:   cfg.Server.CookieSecure(),
			SameSite: cfg.Server.CookieSameSite(),
		},
	}
}

// TTL returns the configured session lifetime.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Store exposes the underlying session store for maintenance sweeps.
func (m *Manager) Store() SessionStore {
	return m.store
}

// Create establishes a new session for an authenticated account.
func (m *Manager) Create(ctx context.Context, accountID, sourceAddress, userAgent string) (*Session, error) {
	session := NewSession(accountID, sourceAddress, userAgent, m.ttl)
	if err := m.store.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	SessionsCreated.Inc()
	return session, nil
}

// Validate resolves a session ID to a live session and its account.
//
// An expired or unknown session returns ErrSessionNotFound. A session
// whose account no longer exists in the backend is purged and also
// reported as not found: stale sessions read as absent, never as errors.
// If the backend is unreachable the session is honored with a nil
// account so an identity-backend outage does not log everyone out.
func (m *Manager) Validate(ctx context.Context, sessionID string) (*Session, *models.Account, error) {
	session, err := m.store.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionExpired) {
			// Purge eagerly; lazy expiry would leave the record
			// until the next janitor sweep.
			_ = m.store.Delete(ctx, sessionID)
			return nil, nil, ErrSessionNotFound
		}
		if errors.Is(err, ErrSessionNotFound) {
			return nil, nil, ErrSessionNotFound
		}
		return nil, nil, fmt.Errorf("get session: %w", err)
	}

	account, err := m.backend.FetchAccountByID(ctx, session.AccountID)
	if err != nil {
		switch identity.KindOf(err) {
		case identity.KindNotFound:
			// The account was deleted out from under the session.
			_ = m.store.Delete(ctx, sessionID)
			StaleSessionsPurged.Inc()
			logging.Info().Msg("Purged session for deleted account")
			return nil, nil, ErrSessionNotFound
		default:
			// Backend outage: the session stands, account detail is
			// unavailable until the backend recovers.
			logging.Warn().Err(err).Msg("Account check skipped during session validation; backend unavailable")
			return session, nil, nil
		}
	}

	return session, account, nil
}

// Destroy removes a session. Destroying an absent session is a no-op,
// making logout idempotent.
func (m *Manager) Destroy(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := m.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	SessionsDestroyed.Inc()
	return nil
}

// DestroyAllForAccount removes every session belonging to an account,
// e.g. after a password reset.
func (m *Manager) DestroyAllForAccount(ctx context.Context, accountID string) (int, error) {
	count, err := m.store.DeleteByAccountID(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("destroy account sessions: %w", err)
	}
	return count, nil
}

// SessionCookie builds the Set-Cookie value binding a session to the
// browser. Expiry matches the session's own.
func (m *Manager) SessionCookie(session *Session) *http.Cookie {
	return &http.Cookie{
		Name:     m.cookie.Name,
		Value:    session.ID,
		Path:     "/",
		Expires:  session.ExpiresAt,
		MaxAge:   int(time.Until(session.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   m.cookie.Secure,
		SameSite: m.cookie.SameSite,
	}
}

// ClearCookie builds an expired cookie that removes the session binding.
func (m *Manager) ClearCookie() *http.Cookie {
	return &http.Cookie{
		Name:     m.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.cookie.Secure,
		SameSite: m.cookie.SameSite,
	}
}

// ReadCookie extracts the session ID from a request, if present.
func (m *Manager) ReadCookie(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(m.cookie.Name)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

// CookieName returns the configured session cookie name.
func (m *Manager) CookieName() string {
	return m.cookie.Name
}
