// Lumigate - Authentication Gateway and Session Security Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumigate

package auth

import (
	"context"

	"github.com/tomtom215/lumigate/internal/models"
)

type contextKey string

const (
	sessionContextKey     contextKey = "lumigate_session"
	currentUserContextKey contextKey = "lumigate_current_user"
)

// ContextWithSession attaches a session to the request context.
func ContextWithSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, session)
}

// SessionFromContext retrieves the session from the request context, or
// nil for anonymous requests.
func SessionFromContext(ctx context.Context) *Session {
	session, _ := ctx.Value(sessionContextKey).(*Session)
	return session
}

// ContextWithCurrentUser attaches the normalized user view to the context.
func ContextWithCurrentUser(ctx context.Context, user *models.CurrentUser) context.Context {
	return context.WithValue(ctx, currentUserContextKey, user)
}

// CurrentUserFromContext retrieves the normalized user view, or nil.
// A non-nil value with a nil Profile means profile provisioning was
// unavailable; callers must treat that as "no profile data", not defaults.
func CurrentUserFromContext(ctx context.Context) *models.CurrentUser {
	user, _ := ctx.Value(currentUserContextKey).(*models.CurrentUser)
	return user
}
