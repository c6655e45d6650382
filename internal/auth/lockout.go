// Lumigate - Authentication Gateway and Session Security Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumigate

package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/lumigate/internal/logging"
)

// ErrLockoutNotFound is returned when a lockout record doesn't exist.
var ErrLockoutNotFound = errors.New("lockout record not found")

// LockoutConfig holds configuration for the brute-force guard.
type LockoutConfig struct {
	// Threshold is the number of consecutive failed attempts before lockout.
	Threshold int

	// Cooldown is how long a source address stays locked.
	Cooldown time.Duration

	// Enabled controls whether the guard is active.
	Enabled bool
}

// DefaultLockoutConfig returns the guard defaults: five failures lock a
// source address for fifteen minutes.
func DefaultLockoutConfig() *LockoutConfig {
	return &LockoutConfig{
		Threshold: 5,
		Cooldown:  15 * time.Minute,
		Enabled:   true,
	}
}

// LockoutRecord tracks failed login attempts for a source address.
// Expiry is lazy: a record whose LockedUntil has passed behaves as
// unlocked on the next read, with no unlock step required.
type LockoutRecord struct {
	SourceAddress string    `json:"source_address"`
	FailureCount  int       `json:"failure_count"`
	WindowStart   time.Time `json:"window_start"`
	LastAttempt   time.Time `json:"last_attempt"`
	LockedUntil   time.Time `json:"locked_until"`
}

// IsLocked returns true if the record is currently locked.
func (r *LockoutRecord) IsLocked() bool {
	return time.Now().Before(r.LockedUntil)
}

// LockoutStore defines the interface for lockout state persistence.
type LockoutStore interface {
	// GetRecord retrieves a lockout record by source address.
	GetRecord(ctx context.Context, sourceAddress string) (*LockoutRecord, error)

	// SaveRecord persists a lockout record.
	SaveRecord(ctx context.Context, record *LockoutRecord) error

	// DeleteRecord removes a lockout record.
	DeleteRecord(ctx context.Context, sourceAddress string) error

	// CleanupExpired removes stale records to bound memory.
	CleanupExpired(ctx context.Context) (int, error)
}

// LockoutGuard implements the brute-force guard: it tracks consecutive
// authentication failures per source address and refuses further attempts
// once the threshold is crossed, before any backend call is made.
type LockoutGuard struct {
	config *LockoutConfig
	store  LockoutStore
	mu     sync.RWMutex
}

// NewLockoutGuard creates a guard over the given store.
func NewLockoutGuard(store LockoutStore, config *LockoutConfig) *LockoutGuard {
	if config == nil {
		config = DefaultLockoutConfig()
	}
	return &LockoutGuard{
		config: config,
		store:  store,
	}
}

// CheckLocked returns whether the source address is currently locked and
// the time remaining until the lock lapses. Call this before touching the
// identity backend so locked attempts never reach it.
func (g *LockoutGuard) CheckLocked(ctx context.Context, sourceAddress string) (bool, time.Duration, error) {
	g.mu.RLock()
	enabled := g.config.Enabled
	g.mu.RUnlock()

	if !enabled {
		return false, 0, nil
	}

	record, err := g.store.GetRecord(ctx, sourceAddress)
	if err != nil {
		if errors.Is(err, ErrLockoutNotFound) {
			return false, 0, nil
		}
		return false, 0, fmt.Errorf("check lockout: %w", err)
	}

	if !record.IsLocked() {
		return false, 0, nil
	}

	return true, time.Until(record.LockedUntil), nil
}

// RecordFailure records a failed authentication attempt and returns whether
// the source address is now locked. Attempts made while already locked do
// not extend the lock.
func (g *LockoutGuard) RecordFailure(ctx context.Context, sourceAddress string) (locked bool, remaining time.Duration, err error) {
	g.mu.RLock()
	config := *g.config
	g.mu.RUnlock()

	if !config.Enabled {
		return false, 0, nil
	}

	record, err := g.store.GetRecord(ctx, sourceAddress)
	if err != nil && !errors.Is(err, ErrLockoutNotFound) {
		return false, 0, fmt.Errorf("get lockout record: %w", err)
	}

	now := time.Now()
	if record == nil {
		record = &LockoutRecord{
			SourceAddress: sourceAddress,
			WindowStart:   now,
		}
	}

	// Already locked: report remaining time without extending the lock.
	if record.IsLocked() {
		return true, time.Until(record.LockedUntil), nil
	}

	// A lapsed lock starts a fresh failure window.
	if !record.LockedUntil.IsZero() && now.After(record.LockedUntil) {
		record.FailureCount = 0
		record.WindowStart = now
		record.LockedUntil = time.Time{}
	}

	record.FailureCount++
	record.LastAttempt = now

	if record.FailureCount >= config.Threshold {
		record.LockedUntil = now.Add(config.Cooldown)

		logging.Warn().
			Str("source_address", sourceAddress).
			Int("failure_count", record.FailureCount).
			Dur("cooldown", config.Cooldown).
			Msg("Source address locked after repeated authentication failures")

		if err := g.store.SaveRecord(ctx, record); err != nil {
			return false, 0, fmt.Errorf("save locked record: %w", err)
		}
		return true, config.Cooldown, nil
	}

	if err := g.store.SaveRecord(ctx, record); err != nil {
		return false, 0, fmt.Errorf("save lockout record: %w", err)
	}
	return false, 0, nil
}

// RecordSuccess fully resets failure tracking for a source address after a
// successful authentication. Partial failure counts do not survive a
// successful login.
func (g *LockoutGuard) RecordSuccess(ctx context.Context, sourceAddress string) error {
	g.mu.RLock()
	enabled := g.config.Enabled
	g.mu.RUnlock()

	if !enabled {
		return nil
	}

	if err := g.store.DeleteRecord(ctx, sourceAddress); err != nil && !errors.Is(err, ErrLockoutNotFound) {
		return fmt.Errorf("clear lockout: %w", err)
	}
	return nil
}

// Cleanup removes stale records. Run periodically from the janitor.
func (g *LockoutGuard) Cleanup(ctx context.Context) {
	count, err := g.store.CleanupExpired(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("Lockout cleanup error")
		return
	}

	if count > 0 {
		logging.Info().Int("count", count).Msg("Cleaned up expired lockout records")
	}
}

// Config returns the current configuration.
func (g *LockoutGuard) Config() LockoutConfig {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return *g.config
}

// MemoryLockoutStore implements LockoutStore using in-memory storage.
// Suitable for single-instance deployments; the store interface is the
// extension point for a shared backend.
type MemoryLockoutStore struct {
	records map[string]*LockoutRecord
	mu      sync.RWMutex
}

// NewMemoryLockoutStore creates a new in-memory lockout store.
func NewMemoryLockoutStore() *MemoryLockoutStore {
	return &MemoryLockoutStore{
		records: make(map[string]*LockoutRecord),
	}
}

// GetRecord retrieves a lockout record.
func (s *MemoryLockoutStore) GetRecord(ctx context.Context, sourceAddress string) (*LockoutRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[sourceAddress]
	if !ok {
		return nil, ErrLockoutNotFound
	}

	copied := *record
	return &copied, nil
}

// SaveRecord persists a lockout record.
func (s *MemoryLockoutStore) SaveRecord(ctx context.Context, record *LockoutRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *record
	s.records[record.SourceAddress] = &copied
	return nil
}

// DeleteRecord removes a lockout record.
func (s *MemoryLockoutStore) DeleteRecord(ctx context.Context, sourceAddress string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[sourceAddress]; !ok {
		return ErrLockoutNotFound
	}

	delete(s.records, sourceAddress)
	return nil
}

// CleanupExpired removes records whose lock has lapsed and whose last
// attempt is old enough that the failure window no longer matters.
func (s *MemoryLockoutStore) CleanupExpired(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expireThreshold := time.Now().Add(-24 * time.Hour)

	count := 0
	for addr, record := range s.records {
		if !record.IsLocked() && record.LastAttempt.Before(expireThreshold) {
			delete(s.records, addr)
			count++
		}
	}

	return count, nil
}
