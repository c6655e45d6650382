// Lumigate - Authentication Gateway and Session Security Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumigate

package auth

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/lumigate/internal/logging"
	"github.com/tomtom215/lumigate/internal/models"
)

// CSRFHeaderName is the request header carrying the anti-forgery token.
const CSRFHeaderName = "X-CSRF-Token"

// CSRFCookieName is the double-submit cookie used on pre-session mutating
// routes (register, login), where no session-bound token exists yet.
const CSRFCookieName = "lumigate_csrf"

// doubleSubmitTTL bounds the pre-session token lifetime.
const doubleSubmitTTL = 2 * time.Hour

// CSRFGuard enforces anti-forgery checks on mutating routes. Session-bound
// routes compare the header against the token minted with the session;
// pre-session routes use the double-submit cookie pattern. All checks fail
// closed: a missing or mismatched token is a 403, never a pass-through.
type CSRFGuard struct {
	cookieSecure   bool
	cookieSameSite http.SameSite
}

// NewCSRFGuard creates a guard whose pre-session cookie carries the same
// environment-dependent attributes as the session cookie.
func NewCSRFGuard(secure bool, sameSite http.SameSite) *CSRFGuard {
	return &CSRFGuard{
		cookieSecure:   secure,
		cookieSameSite: sameSite,
	}
}

// isSafeMethod reports whether the request method cannot mutate state.
func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

// tokensMatch compares tokens in constant time.
func tokensMatch(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// RequireSessionToken returns middleware enforcing the session-bound CSRF
// check on mutating routes. The session middleware must run first; a
// mutating request without a session context is refused.
func (g *CSRFGuard) RequireSessionToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isSafeMethod(r.Method) {
			next.ServeHTTP(w, r)
			return
		}

		session := SessionFromContext(r.Context())
		if session == nil {
			writeCSRFRejection(w, "authentication required")
			return
		}

		if !tokensMatch(r.Header.Get(CSRFHeaderName), session.CSRFToken) {
			writeCSRFRejection(w, "invalid or missing CSRF token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequireDoubleSubmitToken returns middleware enforcing the double-submit
// check on pre-session mutating routes: the header must match the token
// previously issued into the CSRF cookie.
func (g *CSRFGuard) RequireDoubleSubmitToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isSafeMethod(r.Method) {
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(CSRFCookieName)
		if err != nil || cookie.Value == "" {
			writeCSRFRejection(w, "invalid or missing CSRF token")
			return
		}

		if !tokensMatch(r.Header.Get(CSRFHeaderName), cookie.Value) {
			writeCSRFRejection(w, "invalid or missing CSRF token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// IssueDoubleSubmitToken mints a pre-session token, sets it as the CSRF
// cookie, and returns it for the response body. The cookie is readable by
// script deliberately; double-submit relies on the header copy, not on
// cookie secrecy.
func (g *CSRFGuard) IssueDoubleSubmitToken(w http.ResponseWriter) string {
	token := generateToken()
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(doubleSubmitTTL.Seconds()),
		HttpOnly: false,
		Secure:   g.cookieSecure,
		SameSite: g.cookieSameSite,
	})
	return token
}

// writeCSRFRejection writes the fail-closed 403 in the standard envelope.
func writeCSRFRejection(w http.ResponseWriter, message string) {
	CSRFRejections.Inc()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)

	resp := models.APIResponse{
		Status:  "error",
		Success: false,
		Metadata: models.Metadata{
			Timestamp: time.Now().UTC(),
		},
		Error: &models.APIError{
			Code:    "FORBIDDEN",
			Message: message,
		},
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logging.Error().Err(err).Msg("Error encoding CSRF rejection response")
	}
}
