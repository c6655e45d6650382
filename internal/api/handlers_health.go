// Lumigate - Authentication Gateway and Session Security Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumigate

package api

import (
	"net/http"
)

// handleHealthLive reports process liveness. Always 200 while the HTTP
// server is serving.
func (s *Server) handleHealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, http.StatusOK, map[string]interface{}{
		"status": "alive",
	})
}

// handleHealthReady reports readiness: the gateway is ready when the
// identity backend's last health probe succeeded. A degraded backend
// returns 503 so load balancers can drain traffic.
func (s *Server) handleHealthReady(w http.ResponseWriter, r *http.Request) {
	if !s.health.Healthy() {
		respondError(w, r, http.StatusServiceUnavailable, codeBackendUnavailable,
			"identity backend unreachable", nil)
		return
	}

	respondSuccess(w, r, http.StatusOK, map[string]interface{}{
		"status": "ready",
	})
}
