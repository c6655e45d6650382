// Lumigate - Authentication Gateway and Session Security Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumigate

package models

import (
	"time"
)

// APIResponse represents a standardized API response wrapper used by all HTTP endpoints.
// It provides consistent structure for both successful and error responses, with metadata
// for observability.
//
// Status field values:
//   - "success": Request completed successfully, see Data field
//   - "error": Request failed, see Error field for details
//
// Success mirrors Status as a boolean so clients can branch without string
// comparison. The two are always consistent.
//
// Example successful response:
//
//	{
//	  "status": "success",
//	  "success": true,
//	  "data": {"authenticated": true, "user": {...}},
//	  "metadata": {"timestamp": "2026-08-29T12:00:00Z"}
//	}
//
// Example error response:
//
//	{
//	  "status": "error",
//	  "success": false,
//	  "error": {
//	    "code": "VALIDATION_ERROR",
//	    "message": "Invalid email address",
//	    "details": {"field": "email"}
//	  },
//	  "metadata": {"timestamp": "2026-08-29T12:00:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Success  bool        `json:"success"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata for observability.
//
// Fields:
//   - Timestamp: Server time when response was generated (RFC3339 format)
//   - RequestID: Correlation identifier echoed from the X-Request-ID header
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// APIError represents an error response with structured error details.
// Provides consistent error format across all API endpoints for better client handling.
//
// Fields:
//   - Code: Machine-readable error code (e.g., "VALIDATION_ERROR", "INVALID_CREDENTIALS")
//   - Message: Human-readable error message
//   - Details: Additional context (field names, constraints, etc.)
//
// Error codes:
//   - VALIDATION_ERROR: Input failed validation (400)
//   - INVALID_CREDENTIALS: Authentication attempt failed (401)
//   - UNAUTHORIZED: Missing or invalid session (401)
//   - FORBIDDEN: CSRF failure or insufficient rights (403)
//   - NOT_FOUND: Resource doesn't exist (404)
//   - RATE_LIMITED: Brute-force lockout or rate limit (429)
//   - BACKEND_UNAVAILABLE: Identity backend unreachable (503)
//
// Messages never reveal whether an account exists or which credential
// component was wrong.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// StatusResponse is the payload of GET /api/v1/auth/status.
// Authenticated is always present; User is null for anonymous callers.
type StatusResponse struct {
	Authenticated bool         `json:"authenticated"`
	User          *CurrentUser `json:"user"`
}

// CSRFTokenResponse is the payload of GET /api/v1/csrf-token.
type CSRFTokenResponse struct {
	Token string `json:"csrf_token"`
}
