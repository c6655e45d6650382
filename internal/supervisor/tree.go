// Lumigate - Authentication Gateway and Session Security Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumigate

// Package supervisor assembles the process supervision tree. Every
// long-running component (HTTP server, backend health monitor, session
// janitor) runs as a suture service so a crash in one layer restarts
// that layer without taking the process down.
package supervisor

import (
	"context"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"github.com/tomtom215/lumigate/internal/logging"
)

// TreeConfig tunes restart behavior for all supervisors in the tree.
type TreeConfig struct {
	FailureThreshold float64
	FailureDecay     float64
	FailureBackoff   time.Duration
	Timeout          time.Duration
}

// DefaultTreeConfig returns restart settings that tolerate transient
// crashes but back off under sustained failure.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		Timeout:          10 * time.Second,
	}
}

// Tree is the root supervisor plus one child supervisor per layer.
//
// Layers:
//   - backend: identity backend health monitoring
//   - api: the HTTP server
//   - maintenance: periodic session and lockout sweeps
type Tree struct {
	root        *suture.Supervisor
	backend     *suture.Supervisor
	api         *suture.Supervisor
	maintenance *suture.Supervisor
}

// NewTree builds the supervision tree. Services are added afterwards via
// the Add* methods; nothing runs until Serve is called.
func NewTree(cfg TreeConfig) *Tree {
	handler := &sutureslog.Handler{Logger: logging.NewSlogLogger()}
	eventHook := handler.MustHook()

	spec := suture.Spec{
		FailureThreshold: cfg.FailureThreshold,
		FailureDecay:     cfg.FailureDecay,
		FailureBackoff:   cfg.FailureBackoff,
		Timeout:          cfg.Timeout,
		EventHook:        eventHook,
	}

	root := suture.New("lumigate", spec)
	backend := suture.New("backend-layer", spec)
	api := suture.New("api-layer", spec)
	maintenance := suture.New("maintenance-layer", spec)

	root.Add(backend)
	root.Add(api)
	root.Add(maintenance)

	return &Tree{
		root:        root,
		backend:     backend,
		api:         api,
		maintenance: maintenance,
	}
}

// AddBackendService adds a service to the backend layer.
func (t *Tree) AddBackendService(svc suture.Service) suture.ServiceToken {
	return t.backend.Add(svc)
}

// AddAPIService adds a service to the API layer.
func (t *Tree) AddAPIService(svc suture.Service) suture.ServiceToken {
	return t.api.Add(svc)
}

// AddMaintenanceService adds a service to the maintenance layer.
func (t *Tree) AddMaintenanceService(svc suture.Service) suture.ServiceToken {
	return t.maintenance.Add(svc)
}

// Serve runs the tree until ctx is canceled, then shuts every service
// down and returns.
func (t *Tree) Serve(ctx context.Context) error {
	logging.Info().Msg("Supervision tree starting")
	err := t.root.Serve(ctx)
	if err != nil && err != context.Canceled {
		return err
	}
	logging.Info().Msg("Supervision tree stopped")
	return nil
}

// ServeBackground starts the tree on a background goroutine and returns
// a channel that receives the terminal error.
func (t *Tree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}
