// Lumigate - Authentication Gateway and Session Security Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumigate

package models

import (
	"time"
)

// Account represents an identity backend account record as seen by the gateway.
// Password material never appears here; the backend stores and verifies it.
//
// Fields:
//   - ID: Backend-assigned opaque record identifier
//   - Email: Account email address (unique in the backend)
//   - Username: Display/login name (unique in the backend)
//   - Verified: Whether the email address has been verified
//   - CreatedAt: Backend record creation time
//   - UpdatedAt: Backend record last update time
type Account struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Profile represents the application profile record attached to an account.
// Exactly one profile exists per account; the provisioner creates it lazily
// on first authenticated access.
//
// Preferences is a shallow key-value map merged one level deep on update.
// OnboardingSteps records the step identifiers a user completed, for audit.
type Profile struct {
	ID                  string                 `json:"id"`
	AccountID           string                 `json:"account_id"`
	DisplayName         string                 `json:"display_name"`
	OnboardingCompleted bool                   `json:"onboarding_completed"`
	OnboardingSteps     []string               `json:"onboarding_steps,omitempty"`
	Preferences         map[string]interface{} `json:"preferences"`
	CreatedAt           time.Time              `json:"created_at"`
	UpdatedAt           time.Time              `json:"updated_at"`
}

// Clone returns a deep copy of the profile. Stores and the provisioner hand
// out clones so callers cannot mutate shared state through the Preferences map.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	cp := *p
	if p.Preferences != nil {
		cp.Preferences = make(map[string]interface{}, len(p.Preferences))
		for k, v := range p.Preferences {
			cp.Preferences[k] = v
		}
	}
	if p.OnboardingSteps != nil {
		cp.OnboardingSteps = make([]string, len(p.OnboardingSteps))
		copy(cp.OnboardingSteps, p.OnboardingSteps)
	}
	return &cp
}

// CurrentUser is the normalized authenticated-user view attached to request
// contexts and returned from the status endpoint. Profile is explicitly
// nullable: a nil Profile means provisioning was skipped or failed and the
// client must treat profile-dependent UI as unavailable, not defaulted.
type CurrentUser struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	Username string   `json:"username"`
	Verified bool     `json:"verified"`
	Profile  *Profile `json:"profile"`
}

// RegisterRequest is the body of POST /api/v1/auth/register.
//
// PasswordConfirm is validated both locally (eqfield) and by the backend;
// the local check avoids a round trip for the common typo case.
type RegisterRequest struct {
	Email           string `json:"email" validate:"required,email,max=254"`
	Username        string `json:"username" validate:"required,min=3,max=64,alphanumunicode"`
	Password        string `json:"password" validate:"required,min=10,max=128"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

// LoginRequest is the body of POST /api/v1/auth/login.
// Identity accepts either the email address or the username.
type LoginRequest struct {
	Identity string `json:"identity" validate:"required,max=254"`
	Password string `json:"password" validate:"required,max=128"`
}

// PasswordResetRequest is the body of POST /api/v1/auth/password-reset/request.
type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

// PasswordResetConfirm is the body of POST /api/v1/auth/password-reset/confirm.
type PasswordResetConfirm struct {
	Token           string `json:"token" validate:"required"`
	Password        string `json:"password" validate:"required,min=10,max=128"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

// ProfileUpdateRequest is the body of PUT /api/v1/auth/profile.
// Preferences are merged shallowly into the stored map; omitted fields are
// left untouched.
type ProfileUpdateRequest struct {
	DisplayName *string                `json:"display_name,omitempty" validate:"omitempty,max=128"`
	Preferences map[string]interface{} `json:"preferences,omitempty"`
}

// OnboardingCompleteRequest is the body of POST /api/v1/auth/onboarding/complete.
type OnboardingCompleteRequest struct {
	Steps       []string               `json:"steps,omitempty" validate:"omitempty,max=50,dive,max=64"`
	Preferences map[string]interface{} `json:"preferences,omitempty"`
}
