// Lumigate - Authentication Gateway and Session Security Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumigate

// Package services wraps the gateway's long-running components as
// suture services with uniform startup, shutdown, and logging.
package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/lumigate/internal/logging"
)

// HTTPServer is the subset of *http.Server the service needs; accepting
// an interface keeps the service testable with fakes.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPServerService runs an HTTP server under supervision, draining
// in-flight requests on shutdown.
type HTTPServerService struct {
	server          HTTPServer
	shutdownTimeout time.Duration
	name            string
}

// NewHTTPServerService wraps server as a supervised service.
func NewHTTPServerService(server HTTPServer, shutdownTimeout time.Duration, name string) *HTTPServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPServerService{
		server:          server,
		shutdownTimeout: shutdownTimeout,
		name:            name,
	}
}

// Serve runs the server until it fails or ctx is canceled. On
// cancellation the server is shut down gracefully with a fresh timeout
// context so in-flight requests can finish.
func (s *HTTPServerService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	logging.Info().Str("service", s.name).Msg("HTTP server started")

	select {
	case err := <-errCh:
		if err != nil {
			logging.Err(err).Str("service", s.name).Msg("HTTP server failed")
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			logging.Err(err).Str("service", s.name).Msg("HTTP server shutdown error")
			return err
		}

		logging.Info().Str("service", s.name).Msg("HTTP server stopped")
		return ctx.Err()
	}
}

// String implements fmt.Stringer for supervisor logs.
func (s *HTTPServerService) String() string {
	return s.name
}
