// Lumigate - Authentication Gateway and Session Security Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumigate

package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/lumigate/internal/auth"
	"github.com/tomtom215/lumigate/internal/identity"
	"github.com/tomtom215/lumigate/internal/logging"
	"github.com/tomtom215/lumigate/internal/models"
	"github.com/tomtom215/lumigate/internal/profile"
)

// Server holds the gateway's dependencies. Everything is injected at
// construction; handlers never reach for globals.
type Server struct {
	backend  identity.Client
	sessions *auth.Manager
	lockout  *auth.LockoutGuard
	csrf     *auth.CSRFGuard
	profiles *profile.Provisioner
	health   *identity.HealthMonitor

	trustedProxies []string
}

// NewServer wires the gateway handlers.
func NewServer(
	backend identity.Client,
	sessions *auth.Manager,
	lockout *auth.LockoutGuard,
	csrf *auth.CSRFGuard,
	profiles *profile.Provisioner,
	health *identity.HealthMonitor,
	trustedProxies []string,
) *Server {
	return &Server{
		backend:        backend,
		sessions:       sessions,
		lockout:        lockout,
		csrf:           csrf,
		profiles:       profiles,
		health:         health,
		trustedProxies: trustedProxies,
	}
}

// currentUser builds the normalized user view for an account, attaching
// the profile best-effort: provisioning failure degrades to a nil profile
// rather than failing the request.
func (s *Server) currentUser(ctx context.Context, account *models.Account) *models.CurrentUser {
	user := &models.CurrentUser{
		ID:       account.ID,
		Email:    account.Email,
		Username: account.Username,
		Verified: account.Verified,
		Profile:  nil,
	}

	prof, err := s.profiles.GetOrCreate(ctx, account)
	if err != nil {
		logging.CtxWarn(ctx).Err(err).Msg("Profile provisioning unavailable; continuing without profile")
		return user
	}
	user.Profile = prof
	return user
}

// handleRegister creates a new account. Registration never establishes a
// session; the client must log in afterwards.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
		return
	}

	account, err := s.backend.CreateAccount(r.Context(), req.Email, req.Password, req.PasswordConfirm, req.Username)
	if err != nil {
		status, code, message, details := mapIdentityError(err)
		respondError(w, r, status, code, message, details)
		return
	}

	logging.CtxInfo(r.Context()).Msg("Account registered")
	respondSuccess(w, r, http.StatusCreated, map[string]interface{}{
		"account": account,
	})
}

// handleLogin authenticates credentials and establishes a session.
//
// The brute-force guard runs before any backend call: a locked source
// address is refused outright, so locked attempts cannot probe
// credentials or consume backend capacity.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
		return
	}

	sourceAddr := clientIP(r, s.trustedProxies)

	locked, remaining, err := s.lockout.CheckLocked(r.Context(), sourceAddr)
	if err != nil {
		logging.CtxErr(r.Context(), err).Msg("Lockout check failed")
	}
	if locked {
		auth.LoginAttempts.WithLabelValues("locked_out").Inc()
		s.respondLocked(w, r, remaining)
		return
	}

	account, err := s.backend.Authenticate(r.Context(), req.Identity, req.Password)
	if err != nil {
		s.handleLoginFailure(w, r, sourceAddr, err)
		return
	}

	if err := s.lockout.RecordSuccess(r.Context(), sourceAddr); err != nil {
		logging.CtxErr(r.Context(), err).Msg("Failed to clear lockout state after login")
	}

	session, err := s.sessions.Create(r.Context(), account.ID, sourceAddr, r.UserAgent())
	if err != nil {
		logging.CtxErr(r.Context(), err).Msg("Session creation failed")
		respondError(w, r, http.StatusInternalServerError, codeBackendUnavailable, "could not establish session", nil)
		return
	}

	http.SetCookie(w, s.sessions.SessionCookie(session))

	auth.LoginAttempts.WithLabelValues("success").Inc()
	logging.CtxInfo(r.Context()).Msg("Login succeeded")

	respondSuccess(w, r, http.StatusOK, map[string]interface{}{
		"user":       s.currentUser(r.Context(), account),
		"csrf_token": session.CSRFToken,
		"expires_at": session.ExpiresAt,
	})
}

// handleLoginFailure classifies an authentication failure, updates the
// brute-force guard, and responds without revealing why the attempt
// failed.
func (s *Server) handleLoginFailure(w http.ResponseWriter, r *http.Request, sourceAddr string, authErr error) {
	if identity.KindOf(authErr) != identity.KindInvalidCredentials {
		// Backend outage is not the caller's fault and never counts
		// toward lockout.
		auth.LoginAttempts.WithLabelValues("backend_unavailable").Inc()
		status, code, message, details := mapIdentityError(authErr)
		respondError(w, r, status, code, message, details)
		return
	}

	auth.LoginAttempts.WithLabelValues("invalid_credentials").Inc()

	nowLocked, remaining, err := s.lockout.RecordFailure(r.Context(), sourceAddr)
	if err != nil {
		logging.CtxErr(r.Context(), err).Msg("Failed to record login failure")
	}
	if nowLocked {
		auth.LockoutsTriggered.Inc()
		s.respondLocked(w, r, remaining)
		return
	}

	respondError(w, r, http.StatusUnauthorized, codeInvalidCredentials, "invalid credentials", nil)
}

// respondLocked writes the lockout refusal: a Retry-After hint, no
// remaining-attempt count.
func (s *Server) respondLocked(w http.ResponseWriter, r *http.Request, remaining time.Duration) {
	seconds := int(remaining.Seconds())
	if seconds < 1 {
		seconds = 1
	}
	w.Header().Set("Retry-After", fmt.Sprintf("%d", seconds))
	respondError(w, r, http.StatusTooManyRequests, codeRateLimited,
		fmt.Sprintf("too many failed attempts; try again in %s", remaining.Round(time.Second)),
		map[string]interface{}{"retry_after_secs": seconds})
}

// handleLogout destroys the current session. Logout is idempotent: a
// request without a live session still succeeds and clears the cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())
	if session != nil {
		if err := s.sessions.Destroy(r.Context(), session.ID); err != nil {
			logging.CtxErr(r.Context(), err).Msg("Session destruction failed")
		}
	}

	http.SetCookie(w, s.sessions.ClearCookie())
	respondSuccess(w, r, http.StatusOK, map[string]interface{}{
		"logged_out": true,
	})
}

// handleStatus reports the caller's authentication state. Anonymous and
// authenticated callers both get 200; the payload distinguishes them.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	user := auth.CurrentUserFromContext(r.Context())

	respondSuccess(w, r, http.StatusOK, models.StatusResponse{
		Authenticated: user != nil,
		User:          user,
	})
}

// handleCSRFToken returns the anti-forgery token for the caller's scope:
// the session-bound token when authenticated, otherwise a fresh
// double-submit token for the pre-session flows.
func (s *Server) handleCSRFToken(w http.ResponseWriter, r *http.Request) {
	if session := auth.SessionFromContext(r.Context()); session != nil {
		respondSuccess(w, r, http.StatusOK, models.CSRFTokenResponse{Token: session.CSRFToken})
		return
	}

	token := s.csrf.IssueDoubleSubmitToken(w)
	respondSuccess(w, r, http.StatusOK, models.CSRFTokenResponse{Token: token})
}

// handlePasswordResetRequest starts a password reset. The response is
// identical for known and unknown addresses so the endpoint cannot be
// used to enumerate accounts.
func (s *Server) handlePasswordResetRequest(w http.ResponseWriter, r *http.Request) {
	var req models.PasswordResetRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
		return
	}

	if err := s.backend.RequestPasswordReset(r.Context(), req.Email); err != nil {
		if identity.IsUnavailable(err) {
			status, code, message, details := mapIdentityError(err)
			respondError(w, r, status, code, message, details)
			return
		}
		// Any per-account backend outcome is hidden behind the generic
		// success reply.
		logging.CtxWarn(r.Context()).Msg("Password reset request rejected by backend")
	}

	respondSuccess(w, r, http.StatusOK, map[string]interface{}{
		"message": "if the address exists, a reset email has been sent",
	})
}

// handlePasswordResetConfirm redeems a reset token with a new password.
func (s *Server) handlePasswordResetConfirm(w http.ResponseWriter, r *http.Request) {
	var req models.PasswordResetConfirm
	if err := decodeJSONBody(w, r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
		return
	}

	if err := s.backend.ConfirmPasswordReset(r.Context(), req.Token, req.Password, req.PasswordConfirm); err != nil {
		status, code, message, details := mapIdentityError(err)
		respondError(w, r, status, code, message, details)
		return
	}

	logging.CtxInfo(r.Context()).Msg("Password reset completed")
	respondSuccess(w, r, http.StatusOK, map[string]interface{}{
		"message": "password updated; please log in",
	})
}

// accountFromContext reconstructs the backend account from the resolved
// user view for profile operations.
func accountFromContext(r *http.Request) *models.Account {
	user := auth.CurrentUserFromContext(r.Context())
	if user == nil {
		return nil
	}
	return &models.Account{
		ID:       user.ID,
		Email:    user.Email,
		Username: user.Username,
		Verified: user.Verified,
	}
}

// handleProfileUpdate applies a display-name change and/or a shallow
// preference merge to the caller's profile.
func (s *Server) handleProfileUpdate(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r)
	if account == nil {
		respondError(w, r, http.StatusUnauthorized, codeUnauthorized, "authentication required", nil)
		return
	}

	var req models.ProfileUpdateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
		return
	}

	prof, err := s.profiles.Update(r.Context(), account, req.DisplayName, req.Preferences)
	if err != nil {
		status, code, message, details := mapIdentityError(err)
		respondError(w, r, status, code, message, details)
		return
	}

	respondSuccess(w, r, http.StatusOK, map[string]interface{}{
		"profile": prof,
	})
}

// handleOnboardingComplete marks the caller's onboarding finished.
func (s *Server) handleOnboardingComplete(w http.ResponseWriter, r *http.Request) {
	account := accountFromContext(r)
	if account == nil {
		respondError(w, r, http.StatusUnauthorized, codeUnauthorized, "authentication required", nil)
		return
	}

	var req models.OnboardingCompleteRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
		return
	}

	prof, err := s.profiles.CompleteOnboarding(r.Context(), account, req.Steps, req.Preferences)
	if err != nil {
		status, code, message, details := mapIdentityError(err)
		respondError(w, r, status, code, message, details)
		return
	}

	respondSuccess(w, r, http.StatusOK, map[string]interface{}{
		"profile": prof,
	})
}
