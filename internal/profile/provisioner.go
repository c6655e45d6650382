// Lumigate - Authentication Gateway and Session Security Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumigate

// Package profile implements lazy profile provisioning over the identity
// backend's record storage. Exactly one profile exists per account; the
// provisioner creates it on first authenticated access and tolerates
// concurrent first requests racing to create it.
package profile

import (
	"context"
	"fmt"

	"github.com/tomtom215/lumigate/internal/identity"
	"github.com/tomtom215/lumigate/internal/logging"
	"github.com/tomtom215/lumigate/internal/models"
)

// Provisioner owns profile get-or-create, preference merging, and
// onboarding completion. It holds no state of its own; the backend's
// unique index on account_id is the concurrency arbiter.
type Provisioner struct {
	backend identity.Client
}

// NewProvisioner creates a provisioner over the given backend client.
func NewProvisioner(backend identity.Client) *Provisioner {
	return &Provisioner{backend: backend}
}

// defaultProfile builds the initial profile for an account. The display
// name seeds from the account username; preferences start empty, not nil,
// so merges never need a nil check downstream.
func defaultProfile(account *models.Account) *models.Profile {
	return &models.Profile{
		AccountID:           account.ID,
		DisplayName:         account.Username,
		OnboardingCompleted: false,
		Preferences:         map[string]interface{}{},
	}
}

// GetOrCreate returns the account's profile, creating it if absent.
//
// Two concurrent calls for the same new account may both attempt the
// create; the loser's conflict is resolved by re-fetching the winner's
// record, so both callers converge on the same profile.
func (p *Provisioner) GetOrCreate(ctx context.Context, account *models.Account) (*models.Profile, error) {
	existing, err := p.backend.FetchProfileByAccount(ctx, account.ID)
	if err == nil {
		return existing, nil
	}
	if identity.KindOf(err) != identity.KindNotFound {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}

	created, err := p.backend.CreateProfile(ctx, defaultProfile(account))
	if err == nil {
		logging.Info().Msg("Provisioned profile for account")
		return created, nil
	}
	if identity.KindOf(err) != identity.KindConflict {
		return nil, fmt.Errorf("create profile: %w", err)
	}

	// Lost the create race: the other request's profile is authoritative.
	winner, err := p.backend.FetchProfileByAccount(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("fetch profile after conflict: %w", err)
	}
	return winner, nil
}

// mergePreferences applies a shallow merge of partial onto base: top-level
// keys from partial win, untouched keys survive, and nested values are
// replaced wholesale rather than merged recursively.
func mergePreferences(base, partial map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(base)+len(partial))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range partial {
		merged[k] = v
	}
	return merged
}

// Update applies a profile update: an optional display name change plus a
// shallow preference merge. A nil or empty partial leaves preferences
// untouched.
func (p *Provisioner) Update(ctx context.Context, account *models.Account, displayName *string, partial map[string]interface{}) (*models.Profile, error) {
	current, err := p.GetOrCreate(ctx, account)
	if err != nil {
		return nil, err
	}

	updated := current.Clone()
	if displayName != nil {
		updated.DisplayName = *displayName
	}
	if len(partial) > 0 {
		updated.Preferences = mergePreferences(updated.Preferences, partial)
	}

	saved, err := p.backend.UpdateProfile(ctx, updated)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return saved, nil
}

// MergePreferences applies a shallow preference merge without touching
// any other profile field.
func (p *Provisioner) MergePreferences(ctx context.Context, account *models.Account, partial map[string]interface{}) (*models.Profile, error) {
	return p.Update(ctx, account, nil, partial)
}

// CompleteOnboarding marks onboarding finished, records the completed
// step identifiers for audit, and merges any preference partial gathered
// during the flow. Completing an already-completed onboarding is
// idempotent; steps accumulate without duplicates.
func (p *Provisioner) CompleteOnboarding(ctx context.Context, account *models.Account, steps []string, partial map[string]interface{}) (*models.Profile, error) {
	current, err := p.GetOrCreate(ctx, account)
	if err != nil {
		return nil, err
	}

	updated := current.Clone()
	updated.OnboardingCompleted = true
	updated.OnboardingSteps = appendUniqueSteps(updated.OnboardingSteps, steps)
	if len(partial) > 0 {
		updated.Preferences = mergePreferences(updated.Preferences, partial)
	}

	saved, err := p.backend.UpdateProfile(ctx, updated)
	if err != nil {
		return nil, fmt.Errorf("complete onboarding: %w", err)
	}

	logging.Info().Int("steps", len(saved.OnboardingSteps)).Msg("Onboarding completed")
	return saved, nil
}

// appendUniqueSteps appends steps preserving order and dropping duplicates.
func appendUniqueSteps(existing, added []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(added))
	out := make([]string, 0, len(existing)+len(added))
	for _, s := range existing {
		if _, dup := seen[s]; !dup {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	for _, s := range added {
		if _, dup := seen[s]; !dup {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}
