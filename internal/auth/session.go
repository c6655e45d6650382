// Lumigate - Authentication Gateway and Session Security Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumigate

// Package auth provides session management, brute-force lockout, and CSRF
// protection for the gateway. Sessions are opaque server-side records;
// browsers hold only the random session identifier in an HttpOnly cookie.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"
)

// Session-related errors
var (
	// ErrSessionNotFound is returned when a session is not found in the store.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired is returned when trying to access an expired session.
	ErrSessionExpired = errors.New("session expired")
)

// Session represents an authenticated browser session.
// Sessions are created after successful authentication; lifetime is
// absolute (no sliding renewal).
type Session struct {
	// ID is the unique session identifier (opaque token held by the browser).
	ID string `json:"id"`

	// AccountID is the backend account this session authenticates.
	AccountID string `json:"account_id"`

	// CSRFToken is the anti-forgery token bound 1:1 to this session.
	// It is minted at session creation and never reused across sessions.
	CSRFToken string `json:"csrf_token"`

	// SourceAddress is the client address observed at login.
	SourceAddress string `json:"source_address"`

	// UserAgent is the client user agent observed at login.
	UserAgent string `json:"user_agent"`

	// CreatedAt is when the session was created.
	CreatedAt time.Time `json:"created_at"`

	// ExpiresAt is when the session expires.
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// NewSession creates a session for an account with the given lifetime.
// The session ID and CSRF token are independent random values.
func NewSession(accountID, sourceAddress, userAgent string, ttl time.Duration) *Session {
	now := time.Now()
	return &Session{
		ID:            generateToken(),
		AccountID:     accountID,
		CSRFToken:     generateToken(),
		SourceAddress: sourceAddress,
		UserAgent:     userAgent,
		CreatedAt:     now,
		ExpiresAt:     now.Add(ttl),
	}
}

// generateToken generates a cryptographically secure 256-bit hex token.
func generateToken() string {
	bytes := make([]byte, 32)
	_, err := rand.Read(bytes)
	if err != nil {
		// Fallback to less secure but still random ID
		return hex.EncodeToString([]byte(time.Now().String()))
	}
	return hex.EncodeToString(bytes)
}

// SessionStore defines the interface for session storage backends.
type SessionStore interface {
	// Create stores a new session.
	Create(ctx context.Context, session *Session) error

	// Get retrieves a session by ID.
	// Returns ErrSessionNotFound if not found.
	// Returns ErrSessionExpired if the session exists but is expired.
	Get(ctx context.Context, id string) (*Session, error)

	// Delete removes a session by ID.
	// Does not return error if session doesn't exist.
	Delete(ctx context.Context, id string) error

	// DeleteByAccountID removes all sessions for an account.
	// Returns the count of deleted sessions.
	DeleteByAccountID(ctx context.Context, accountID string) (int, error)

	// Count returns the number of live sessions in the store.
	Count(ctx context.Context) (int, error)

	// CleanupExpired removes all expired sessions.
	// Returns the count of deleted sessions.
	CleanupExpired(ctx context.Context) (int, error)

	// Close releases store resources.
	Close() error
}

// MemorySessionStore is an in-memory implementation of SessionStore.
// Suitable for development and testing. For production, use BadgerSessionStore.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemorySessionStore creates a new in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]*Session),
	}
}

// Create stores a new session.
func (s *MemorySessionStore) Create(ctx context.Context, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Copy the session to prevent external modifications
	stored := *session
	s.sessions[session.ID] = &stored
	return nil
}

// Get retrieves a session by ID.
func (s *MemorySessionStore) Get(ctx context.Context, id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}

	if session.IsExpired() {
		return nil, ErrSessionExpired
	}

	// Return a copy to prevent external modifications
	copied := *session
	return &copied, nil
}

// Delete removes a session by ID.
func (s *MemorySessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

// DeleteByAccountID removes all sessions for an account.
func (s *MemorySessionStore) DeleteByAccountID(ctx context.Context, accountID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for id, session := range s.sessions {
		if session.AccountID == accountID {
			delete(s.sessions, id)
			count++
		}
	}
	return count, nil
}

// Count returns the number of non-expired sessions.
func (s *MemorySessionStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, session := range s.sessions {
		if !session.IsExpired() {
			count++
		}
	}
	return count, nil
}

// CleanupExpired removes all expired sessions.
func (s *MemorySessionStore) CleanupExpired(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for id, session := range s.sessions {
		if session.IsExpired() {
			delete(s.sessions, id)
			count++
		}
	}
	return count, nil
}

// Close is a no-op for the memory store.
func (s *MemorySessionStore) Close() error {
	return nil
}
