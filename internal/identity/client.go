// Lumigate - Authentication Gateway and Session Security Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumigate

// Package identity implements the HTTP client for the external identity
// and record-storage backend. The backend owns all credential material;
// the gateway never stores or hashes passwords and never forwards the
// backend's tokens to browsers.
package identity

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/lumigate/internal/config"
	"github.com/tomtom215/lumigate/internal/logging"
	"github.com/tomtom215/lumigate/internal/models"
)

// accountCollection is the backend collection holding account records.
const accountCollection = "users"

// Client is the identity backend interface consumed by the gateway,
// session manager, and profile provisioner. Implementations must be
// safe for concurrent use.
type Client interface {
	// CreateAccount registers a new account. Never logs the caller in.
	CreateAccount(ctx context.Context, email, password, passwordConfirm, username string) (*models.Account, error)

	// Authenticate verifies credentials and returns the account on
	// success. The backend's auth token is consumed internally and
	// discarded; session establishment is the caller's job.
	Authenticate(ctx context.Context, identity, password string) (*models.Account, error)

	// FetchAccountByID retrieves an account record, or KindNotFound.
	FetchAccountByID(ctx context.Context, id string) (*models.Account, error)

	// RequestPasswordReset asks the backend to email a reset token.
	// Unknown addresses succeed silently (enumeration-safe).
	RequestPasswordReset(ctx context.Context, email string) error

	// ConfirmPasswordReset redeems a reset token with a new password.
	ConfirmPasswordReset(ctx context.Context, token, password, passwordConfirm string) error

	// FetchProfileByAccount retrieves the profile record for an account,
	// or KindNotFound when none has been provisioned yet.
	FetchProfileByAccount(ctx context.Context, accountID string) (*models.Profile, error)

	// CreateProfile creates a profile record. A concurrent duplicate
	// create returns KindConflict.
	CreateProfile(ctx context.Context, profile *models.Profile) (*models.Profile, error)

	// UpdateProfile persists profile changes by record ID.
	UpdateProfile(ctx context.Context, profile *models.Profile) (*models.Profile, error)

	// IsHealthy probes the backend health endpoint.
	IsHealthy(ctx context.Context) bool
}

// HTTPClient talks to the backend's REST API with circuit breaker
// protection. Backend 5xx and transport errors surface as
// KindUnavailable; mutating user-initiated calls are never silently
// retried.
type HTTPClient struct {
	baseURL           string
	serviceToken      string
	profileCollection string
	http              *http.Client
	cb                *gobreaker.CircuitBreaker[*backendResponse]
}

// backendResponse carries a decoded backend reply through the breaker.
type backendResponse struct {
	status int
	body   []byte
}

// NewHTTPClient creates a backend client from configuration.
func NewHTTPClient(cfg *config.BackendConfig) *HTTPClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	profileCollection := cfg.ProfileCollection
	if profileCollection == "" {
		profileCollection = "profiles"
	}

	maxFailures := cfg.BreakerMaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	cooldown := cfg.BreakerCooldown
	if cooldown <= 0 {
		cooldown = 15 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker[*backendResponse](gobreaker.Settings{
		Name:        "identity-backend",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", breakerStateString(from)).
				Str("to", breakerStateString(to)).
				Msg("Identity backend circuit breaker state transition")
		},
	})

	return &HTTPClient{
		baseURL:           cfg.URL,
		serviceToken:      cfg.ServiceToken,
		profileCollection: profileCollection,
		http:              &http.Client{Timeout: timeout},
		cb:                cb,
	}
}

func breakerStateString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// accountRecord is the backend wire representation of an account.
type accountRecord struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Verified bool   `json:"verified"`
	Created  string `json:"created"`
	Updated  string `json:"updated"`
}

func (r *accountRecord) toModel() *models.Account {
	return &models.Account{
		ID:        r.ID,
		Email:     r.Email,
		Username:  r.Username,
		Verified:  r.Verified,
		CreatedAt: parseBackendTime(r.Created),
		UpdatedAt: parseBackendTime(r.Updated),
	}
}

// profileRecord is the backend wire representation of a profile.
type profileRecord struct {
	ID                  string                 `json:"id"`
	AccountID           string                 `json:"account_id"`
	DisplayName         string                 `json:"display_name"`
	OnboardingCompleted bool                   `json:"onboarding_completed"`
	OnboardingSteps     []string               `json:"onboarding_steps"`
	Preferences         map[string]interface{} `json:"preferences"`
	Created             string                 `json:"created"`
	Updated             string                 `json:"updated"`
}

func (r *profileRecord) toModel() *models.Profile {
	prefs := r.Preferences
	if prefs == nil {
		prefs = map[string]interface{}{}
	}
	return &models.Profile{
		ID:                  r.ID,
		AccountID:           r.AccountID,
		DisplayName:         r.DisplayName,
		OnboardingCompleted: r.OnboardingCompleted,
		OnboardingSteps:     r.OnboardingSteps,
		Preferences:         prefs,
		CreatedAt:           parseBackendTime(r.Created),
		UpdatedAt:           parseBackendTime(r.Updated),
	}
}

// parseBackendTime parses the backend's timestamp format, falling back
// across the formats the backend has emitted historically.
func parseBackendTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05.000Z", "2006-01-02 15:04:05Z"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// backendErrorBody is the backend's structured error reply.
type backendErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    map[string]struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"data"`
}

// do executes a backend request through the circuit breaker and returns
// the raw response. Transport failures and 5xx replies count as breaker
// failures; 4xx replies do not (the backend is healthy, the request was
// bad).
func (c *HTTPClient) do(ctx context.Context, method, path string, body interface{}) (*backendResponse, error) {
	resp, err := c.cb.Execute(func() (*backendResponse, error) {
		return c.doOnce(ctx, method, path, body)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, NewError(KindUnavailable, "identity backend circuit open", err)
		}
		return nil, err
	}
	return resp, nil
}

// doOnce performs a single backend HTTP round trip. Returning an error
// marks the attempt as a breaker failure, so 4xx statuses return a
// successful backendResponse and are classified by the caller.
func (c *HTTPClient) doOnce(ctx context.Context, method, path string, body interface{}) (*backendResponse, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, NewError(KindUnknown, "failed to encode request", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, NewError(KindUnknown, "failed to build request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.serviceToken != "" {
		req.Header.Set("Authorization", c.serviceToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, NewError(KindUnavailable, "identity backend unreachable", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, NewError(KindUnavailable, "failed to read backend response", err)
	}

	if resp.StatusCode >= 500 {
		return nil, NewError(KindUnavailable,
			fmt.Sprintf("identity backend returned %d", resp.StatusCode), nil)
	}

	return &backendResponse{status: resp.StatusCode, body: data}, nil
}

// classifyStatus maps a backend 4xx reply to a gateway error kind.
func classifyStatus(resp *backendResponse, authCall bool) error {
	var eb backendErrorBody
	_ = json.Unmarshal(resp.body, &eb)

	switch resp.status {
	case http.StatusBadRequest:
		if authCall {
			// The backend reports both unknown identity and wrong
			// password as 400 on auth calls.
			return NewError(KindInvalidCredentials, "invalid credentials", nil)
		}
		e := NewError(KindValidation, firstNonEmpty(eb.Message, "request rejected"), nil)
		if len(eb.Data) > 0 {
			e.Fields = make(map[string]string, len(eb.Data))
			for field, detail := range eb.Data {
				e.Fields[field] = detail.Message
			}
		}
		return e
	case http.StatusUnauthorized, http.StatusForbidden:
		if authCall {
			return NewError(KindInvalidCredentials, "invalid credentials", nil)
		}
		return NewError(KindUnavailable, "backend rejected service credentials", nil)
	case http.StatusNotFound:
		return NewError(KindNotFound, "record not found", nil)
	case http.StatusConflict:
		return NewError(KindConflict, "record already exists", nil)
	default:
		return NewError(KindUnknown,
			fmt.Sprintf("unexpected backend status %d", resp.status), nil)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// CreateAccount registers a new account with the backend.
func (c *HTTPClient) CreateAccount(ctx context.Context, email, password, passwordConfirm, username string) (*models.Account, error) {
	payload := map[string]interface{}{
		"email":            email,
		"username":         username,
		"password":         password,
		"password_confirm": passwordConfirm,
	}

	resp, err := c.do(ctx, http.MethodPost, "/api/collections/"+accountCollection+"/records", payload)
	if err != nil {
		return nil, err
	}
	if resp.status != http.StatusOK && resp.status != http.StatusCreated {
		return nil, classifyStatus(resp, false)
	}

	var rec accountRecord
	if err := json.Unmarshal(resp.body, &rec); err != nil {
		return nil, NewError(KindUnknown, "failed to decode account record", err)
	}
	return rec.toModel(), nil
}

// Authenticate verifies credentials with the backend. The token in the
// backend's reply is discarded; only the embedded account record is used.
func (c *HTTPClient) Authenticate(ctx context.Context, identity, password string) (*models.Account, error) {
	payload := map[string]interface{}{
		"identity": identity,
		"password": password,
	}

	resp, err := c.do(ctx, http.MethodPost, "/api/collections/"+accountCollection+"/auth-with-password", payload)
	if err != nil {
		return nil, err
	}
	if resp.status != http.StatusOK {
		return nil, classifyStatus(resp, true)
	}

	var authReply struct {
		Record accountRecord `json:"record"`
	}
	if err := json.Unmarshal(resp.body, &authReply); err != nil {
		return nil, NewError(KindUnknown, "failed to decode auth response", err)
	}
	if authReply.Record.ID == "" {
		return nil, NewError(KindUnknown, "auth response missing account record", nil)
	}
	return authReply.Record.toModel(), nil
}

// FetchAccountByID retrieves an account record by its backend ID.
func (c *HTTPClient) FetchAccountByID(ctx context.Context, id string) (*models.Account, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/collections/"+accountCollection+"/records/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	if resp.status != http.StatusOK {
		return nil, classifyStatus(resp, false)
	}

	var rec accountRecord
	if err := json.Unmarshal(resp.body, &rec); err != nil {
		return nil, NewError(KindUnknown, "failed to decode account record", err)
	}
	return rec.toModel(), nil
}

// RequestPasswordReset asks the backend to start a password reset.
// The backend responds identically for known and unknown addresses.
func (c *HTTPClient) RequestPasswordReset(ctx context.Context, email string) error {
	payload := map[string]interface{}{"email": email}

	resp, err := c.do(ctx, http.MethodPost, "/api/collections/"+accountCollection+"/request-password-reset", payload)
	if err != nil {
		return err
	}
	if resp.status != http.StatusOK && resp.status != http.StatusNoContent {
		return classifyStatus(resp, false)
	}
	return nil
}

// ConfirmPasswordReset redeems a reset token with a new password.
// An invalid or expired token maps to KindInvalidToken.
func (c *HTTPClient) ConfirmPasswordReset(ctx context.Context, token, password, passwordConfirm string) error {
	payload := map[string]interface{}{
		"token":            token,
		"password":         password,
		"password_confirm": passwordConfirm,
	}

	resp, err := c.do(ctx, http.MethodPost, "/api/collections/"+accountCollection+"/confirm-password-reset", payload)
	if err != nil {
		return err
	}
	if resp.status == http.StatusOK || resp.status == http.StatusNoContent {
		return nil
	}
	if resp.status == http.StatusBadRequest {
		var eb backendErrorBody
		_ = json.Unmarshal(resp.body, &eb)
		if _, hasToken := eb.Data["token"]; hasToken {
			return NewError(KindInvalidToken, "reset token invalid or expired", nil)
		}
		return classifyStatus(resp, false)
	}
	return classifyStatus(resp, false)
}

// FetchProfileByAccount retrieves the profile record for an account.
func (c *HTTPClient) FetchProfileByAccount(ctx context.Context, accountID string) (*models.Profile, error) {
	filter := url.QueryEscape(fmt.Sprintf("(account_id='%s')", accountID))
	path := "/api/collections/" + c.profileCollection + "/records?perPage=1&filter=" + filter

	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if resp.status != http.StatusOK {
		return nil, classifyStatus(resp, false)
	}

	var list struct {
		Items []profileRecord `json:"items"`
	}
	if err := json.Unmarshal(resp.body, &list); err != nil {
		return nil, NewError(KindUnknown, "failed to decode profile list", err)
	}
	if len(list.Items) == 0 {
		return nil, NewError(KindNotFound, "profile not found", nil)
	}
	return list.Items[0].toModel(), nil
}

// CreateProfile creates a profile record for an account. The backend's
// unique index on account_id turns concurrent duplicate creates into
// KindConflict so callers can re-fetch the winner.
func (c *HTTPClient) CreateProfile(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	payload := map[string]interface{}{
		"account_id":           profile.AccountID,
		"display_name":         profile.DisplayName,
		"onboarding_completed": profile.OnboardingCompleted,
		"onboarding_steps":     profile.OnboardingSteps,
		"preferences":          profile.Preferences,
	}

	resp, err := c.do(ctx, http.MethodPost, "/api/collections/"+c.profileCollection+"/records", payload)
	if err != nil {
		return nil, err
	}
	if resp.status != http.StatusOK && resp.status != http.StatusCreated {
		err := classifyStatus(resp, false)
		// Unique-index violations on account_id arrive as field-level
		// validation errors; normalize them to conflicts.
		var ie *Error
		if errors.As(err, &ie) && ie.Kind == KindValidation {
			if _, dup := ie.Fields["account_id"]; dup {
				return nil, NewError(KindConflict, "profile already exists", err)
			}
		}
		return nil, err
	}

	var rec profileRecord
	if err := json.Unmarshal(resp.body, &rec); err != nil {
		return nil, NewError(KindUnknown, "failed to decode profile record", err)
	}
	return rec.toModel(), nil
}

// UpdateProfile persists profile changes by record ID.
func (c *HTTPClient) UpdateProfile(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	if profile.ID == "" {
		return nil, NewError(KindValidation, "profile record id required", nil)
	}
	payload := map[string]interface{}{
		"display_name":         profile.DisplayName,
		"onboarding_completed": profile.OnboardingCompleted,
		"onboarding_steps":     profile.OnboardingSteps,
		"preferences":          profile.Preferences,
	}

	resp, err := c.do(ctx, http.MethodPatch, "/api/collections/"+c.profileCollection+"/records/"+url.PathEscape(profile.ID), payload)
	if err != nil {
		return nil, err
	}
	if resp.status != http.StatusOK {
		return nil, classifyStatus(resp, false)
	}

	var rec profileRecord
	if err := json.Unmarshal(resp.body, &rec); err != nil {
		return nil, NewError(KindUnknown, "failed to decode profile record", err)
	}
	return rec.toModel(), nil
}

// IsHealthy probes the backend health endpoint. Probe failures are
// logged by the caller; this method only reports the outcome.
func (c *HTTPClient) IsHealthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return false
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	return resp.StatusCode == http.StatusOK
}
