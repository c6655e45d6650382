// Lumigate - Authentication Gateway and Session Security Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumigate

package api

import (
	"net/http"
	"testing"
)

func TestHealthLive(t *testing.T) {
	g := newGateway(t)

	rec := g.doJSON(t, http.MethodGet, "/health/live", nil, nil, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestHealthReady(t *testing.T) {
	g := newGateway(t)

	rec := g.doJSON(t, http.MethodGet, "/health/ready", nil, nil, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 with reachable backend", rec.Code)
	}
}

func TestHealthReady_BackendDown(t *testing.T) {
	g := newGateway(t)

	// Degrade and re-probe so the monitor observes the outage.
	g.backend.setUnavailable(true)
	g.monitor.ProbeInitial(t.Context())

	rec := g.doJSON(t, http.MethodGet, "/health/ready", nil, nil, nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503 with unreachable backend", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	if resp.Error == nil || resp.Error.Code != codeBackendUnavailable {
		t.Errorf("error = %+v, want %s", resp.Error, codeBackendUnavailable)
	}
}
