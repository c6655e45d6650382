// Lumigate - Authentication Gateway and Session Security Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumigate

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/lumigate/internal/identity"
)

// Stable machine-readable error codes exposed to clients.
const (
	codeValidation         = "VALIDATION_ERROR"
	codeInvalidCredentials = "INVALID_CREDENTIALS"
	codeUnauthorized       = "UNAUTHORIZED"
	codeForbidden          = "FORBIDDEN"
	codeNotFound           = "NOT_FOUND"
	codeRateLimited        = "RATE_LIMITED"
	codeBackendUnavailable = "BACKEND_UNAVAILABLE"
)

// mapIdentityError translates a classified backend error into the HTTP
// status, error code, and client-safe message for the response envelope.
// Backend internals never pass through; unknown failures read as outages.
func mapIdentityError(err error) (status int, code, message string, details map[string]interface{}) {
	var ie *identity.Error
	kind := identity.KindOf(err)
	_ = errors.As(err, &ie)

	switch kind {
	case identity.KindValidation:
		details = nil
		if ie != nil && len(ie.Fields) > 0 {
			details = make(map[string]interface{}, len(ie.Fields))
			for field, msg := range ie.Fields {
				details[field] = msg
			}
		}
		message = "submitted fields were rejected"
		if ie != nil && ie.Message != "" {
			message = ie.Message
		}
		return http.StatusBadRequest, codeValidation, message, details

	case identity.KindInvalidCredentials:
		// Deliberately generic: no hint whether the account exists or
		// which credential component failed.
		return http.StatusUnauthorized, codeInvalidCredentials, "invalid credentials", nil

	case identity.KindInvalidToken:
		return http.StatusBadRequest, codeValidation, "reset token is invalid or expired", nil

	case identity.KindNotFound:
		return http.StatusNotFound, codeNotFound, "resource not found", nil

	case identity.KindConflict:
		return http.StatusBadRequest, codeValidation, "record already exists", nil

	default:
		return http.StatusServiceUnavailable, codeBackendUnavailable,
			"authentication service is temporarily unavailable", nil
	}
}
