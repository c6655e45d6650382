// Lumigate - Authentication Gateway and Session Security Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumigate

package identity

import (
	"errors"
	"fmt"
)

// Kind classifies identity backend failures into the gateway's normalized
// error taxonomy. Handlers map kinds to HTTP status codes; backend-internal
// detail never leaks to clients.
type Kind int

const (
	// KindUnknown covers unclassified failures. Treated as unavailable.
	KindUnknown Kind = iota

	// KindValidation means the backend rejected the submitted fields.
	KindValidation

	// KindInvalidCredentials means authentication failed. The reason
	// (unknown account vs wrong password) is deliberately not recorded.
	KindInvalidCredentials

	// KindNotFound means the requested record does not exist.
	KindNotFound

	// KindConflict means a uniqueness constraint was violated, typically
	// a concurrent create of the same record.
	KindConflict

	// KindInvalidToken means a password reset token was invalid or expired.
	KindInvalidToken

	// KindUnavailable means the backend could not be reached or returned
	// a server-side failure.
	KindUnavailable
)

// String returns the kind name for logging.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInvalidToken:
		return "invalid_token"
	case KindUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Error is a classified identity backend error. It wraps the underlying
// cause for logging while exposing only the kind and a safe message.
type Error struct {
	Kind    Kind
	Message string
	// Fields carries per-field validation messages when Kind is
	// KindValidation, keyed by wire field name.
	Fields map[string]string
	cause  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("identity: %s: %v", e.Message, e.cause)
	}
	return "identity: " + e.Message
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.cause
}

// NewError creates a classified error wrapping an optional cause.
func NewError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// KindOf extracts the Kind from an error chain. Unclassified errors
// report KindUnknown.
func KindOf(err error) Kind {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return KindUnknown
}

// IsUnavailable reports whether the error chain represents a backend
// outage (including unclassified failures, which are treated as outages
// so the gateway fails toward 503 rather than blaming the caller).
func IsUnavailable(err error) bool {
	k := KindOf(err)
	return k == KindUnavailable || k == KindUnknown
}
