// Lumigate - Authentication Gateway and Session Security Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumigate

package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

// fakeHTTPServer implements HTTPServer with scriptable behavior.
type fakeHTTPServer struct {
	serveErr   error
	serveDone  chan struct{}
	shutdownCh chan struct{}
}

func newFakeHTTPServer(serveErr error) *fakeHTTPServer {
	return &fakeHTTPServer{
		serveErr:   serveErr,
		serveDone:  make(chan struct{}),
		shutdownCh: make(chan struct{}),
	}
}

func (f *fakeHTTPServer) ListenAndServe() error {
	if f.serveErr != nil {
		return f.serveErr
	}
	// Block like a real server until Shutdown.
	<-f.shutdownCh
	return http.ErrServerClosed
}

func (f *fakeHTTPServer) Shutdown(ctx context.Context) error {
	close(f.shutdownCh)
	return nil
}

func TestHTTPServerService_FailureSurfaces(t *testing.T) {
	bindErr := errors.New("listen tcp :8080: address already in use")
	svc := NewHTTPServerService(newFakeHTTPServer(bindErr), time.Second, "test-http")

	err := svc.Serve(context.Background())
	if !errors.Is(err, bindErr) {
		t.Errorf("Serve() error = %v, want %v", err, bindErr)
	}
}

func TestHTTPServerService_GracefulShutdown(t *testing.T) {
	server := newFakeHTTPServer(nil)
	svc := NewHTTPServerService(server, time.Second, "test-http")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	// Give the serve goroutine a moment to start, then cancel.
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve() did not return after cancellation")
	}

	select {
	case <-server.shutdownCh:
	default:
		t.Error("Shutdown() was never called")
	}
}

func TestHTTPServerService_String(t *testing.T) {
	svc := NewHTTPServerService(newFakeHTTPServer(nil), time.Second, "lumigate-http")
	if svc.String() != "lumigate-http" {
		t.Errorf("String() = %v", svc.String())
	}
}
