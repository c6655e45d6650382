// Lumigate - Authentication Gateway and Session Security Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumigate

package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/lumigate/internal/logging"
	"github.com/tomtom215/lumigate/internal/models"
)

// UserResolver builds the normalized user view for a validated session.
// The API layer wires this to the profile provisioner so the resolved
// user carries a best-effort profile.
type UserResolver func(ctx context.Context, account *models.Account) *models.CurrentUser

// SessionMiddleware resolves the session cookie on every request and
// attaches the session and current user to the request context. Requests
// without a valid session proceed anonymously; enforcement is the job of
// RequireAuth on protected routes.
//
// A cookie referencing a missing, expired, or account-less session gets
// cleared in the response so the browser stops replaying it.
func SessionMiddleware(manager *Manager, resolve UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID, ok := manager.ReadCookie(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			session, account, err := manager.Validate(r.Context(), sessionID)
			if err != nil {
				http.SetCookie(w, manager.ClearCookie())
				next.ServeHTTP(w, r)
				return
			}

			ctx := ContextWithSession(r.Context(), session)

			if account != nil && resolve != nil {
				if user := resolve(ctx, account); user != nil {
					ctx = ContextWithCurrentUser(ctx, user)
				}
			} else if account == nil {
				// Backend outage: expose the minimal identity the
				// session itself proves. Profile stays nil.
				ctx = ContextWithCurrentUser(ctx, &models.CurrentUser{
					ID:      session.AccountID,
					Profile: nil,
				})
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth refuses requests that lack a valid session. Responses use
// the standard envelope with the UNAUTHORIZED code and never reveal why
// the session was rejected.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if SessionFromContext(r.Context()) == nil {
			writeUnauthorized(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)

	resp := models.APIResponse{
		Status:  "error",
		Success: false,
		Metadata: models.Metadata{
			Timestamp: time.Now().UTC(),
		},
		Error: &models.APIError{
			Code:    "UNAUTHORIZED",
			Message: "authentication required",
		},
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logging.Error().Err(err).Msg("Error encoding unauthorized response")
	}
}
