// Lumigate - Authentication Gateway and Session Security Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumigate

package auth

import (
	"errors"
	"testing"
	"time"
)

func openTestBadgerStore(t *testing.T) *BadgerSessionStore {
	t.Helper()

	store, err := OpenBadgerSessionStore(t.TempDir())
	if err != nil {
		t.Fatalf("OpenBadgerSessionStore() error = %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return store
}

func TestBadgerSessionStore_CreateAndGet(t *testing.T) {
	store := openTestBadgerStore(t)
	ctx := t.Context()

	session := NewSession("acct-1", "192.0.2.1", "test-agent", time.Hour)
	if err := store.Create(ctx, session); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := store.Get(ctx, session.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.AccountID != "acct-1" {
		t.Errorf("AccountID = %v, want acct-1", got.AccountID)
	}
	if got.CSRFToken != session.CSRFToken {
		t.Errorf("CSRFToken = %v, want %v", got.CSRFToken, session.CSRFToken)
	}
	if got.SourceAddress != "192.0.2.1" {
		t.Errorf("SourceAddress = %v, want 192.0.2.1", got.SourceAddress)
	}
}

func TestBadgerSessionStore_GetNonExistent(t *testing.T) {
	store := openTestBadgerStore(t)

	_, err := store.Get(t.Context(), "no-such-session")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get() error = %v, want ErrSessionNotFound", err)
	}
}

func TestBadgerSessionStore_GetExpired(t *testing.T) {
	store := openTestBadgerStore(t)
	ctx := t.Context()

	session := NewSession("acct-1", "192.0.2.1", "test-agent", -time.Minute)
	if err := store.Create(ctx, session); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	_, err := store.Get(ctx, session.ID)
	if !errors.Is(err, ErrSessionExpired) {
		t.Errorf("Get() error = %v, want ErrSessionExpired", err)
	}
}

func TestBadgerSessionStore_Delete(t *testing.T) {
	store := openTestBadgerStore(t)
	ctx := t.Context()

	session := NewSession("acct-1", "192.0.2.1", "test-agent", time.Hour)
	if err := store.Create(ctx, session); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := store.Delete(ctx, session.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(ctx, session.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrSessionNotFound", err)
	}

	// Deleting a missing session is not an error.
	if err := store.Delete(ctx, "no-such-session"); err != nil {
		t.Errorf("Delete() of missing session error = %v", err)
	}
}

func TestBadgerSessionStore_DeleteByAccountID(t *testing.T) {
	store := openTestBadgerStore(t)
	ctx := t.Context()

	var target *Session
	for i := 0; i < 3; i++ {
		s := NewSession("acct-1", "192.0.2.1", "test-agent", time.Hour)
		if err := store.Create(ctx, s); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		target = s
	}
	other := NewSession("acct-2", "192.0.2.2", "test-agent", time.Hour)
	if err := store.Create(ctx, other); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	deleted, err := store.DeleteByAccountID(ctx, "acct-1")
	if err != nil {
		t.Fatalf("DeleteByAccountID() error = %v", err)
	}
	if deleted != 3 {
		t.Errorf("deleted = %d, want 3", deleted)
	}

	if _, err := store.Get(ctx, target.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get() deleted session error = %v, want ErrSessionNotFound", err)
	}
	if _, err := store.Get(ctx, other.ID); err != nil {
		t.Errorf("Get() unrelated session error = %v", err)
	}
}

func TestBadgerSessionStore_CleanupExpired(t *testing.T) {
	store := openTestBadgerStore(t)
	ctx := t.Context()

	for i := 0; i < 2; i++ {
		s := NewSession("acct-1", "192.0.2.1", "test-agent", -time.Minute)
		if err := store.Create(ctx, s); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	live := NewSession("acct-2", "192.0.2.2", "test-agent", time.Hour)
	if err := store.Create(ctx, live); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	removed, err := store.CleanupExpired(ctx)
	if err != nil {
		t.Fatalf("CleanupExpired() error = %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Errorf("Count() = %d, want 1", count)
	}
}

func TestBadgerSessionStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := t.Context()

	store, err := OpenBadgerSessionStore(dir)
	if err != nil {
		t.Fatalf("OpenBadgerSessionStore() error = %v", err)
	}
	session := NewSession("acct-1", "192.0.2.1", "test-agent", time.Hour)
	if err := store.Create(ctx, session); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := OpenBadgerSessionStore(dir)
	if err != nil {
		t.Fatalf("OpenBadgerSessionStore() reopen error = %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(ctx, session.ID)
	if err != nil {
		t.Fatalf("Get() after reopen error = %v", err)
	}
	if got.AccountID != "acct-1" {
		t.Errorf("AccountID = %v, want acct-1", got.AccountID)
	}
}
