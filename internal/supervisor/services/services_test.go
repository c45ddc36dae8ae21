// Curator - Emby Collection Synchronization for MDBList
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

type stubRunner struct {
	err error
}

func (s *stubRunner) Run(ctx context.Context) error {
	if s.err != nil {
		return s.err
	}
	return nil
}

func TestEngineServiceOneShotTerminatesTree(t *testing.T) {
	svc := NewEngineService(&stubRunner{})
	err := svc.Serve(context.Background())
	if !errors.Is(err, suture.ErrTerminateSupervisorTree) {
		t.Errorf("expected tree termination on clean return, got %v", err)
	}
}

func TestEngineServicePropagatesFailure(t *testing.T) {
	svc := NewEngineService(&stubRunner{err: errors.New("boom")})
	err := svc.Serve(context.Background())
	if err == nil || errors.Is(err, suture.ErrTerminateSupervisorTree) {
		t.Errorf("expected wrapped failure, got %v", err)
	}
}

func TestEngineServicePassesThroughCancellation(t *testing.T) {
	svc := NewEngineService(&stubRunner{err: context.Canceled})
	err := svc.Serve(context.Background())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

// stubHTTPServer blocks in ListenAndServe until Shutdown is called,
// mirroring net/http.Server's contract.
type stubHTTPServer struct {
	listenErr  error
	shutdownCh chan struct{}
	shutdowns  int
}

func newStubHTTPServer() *stubHTTPServer {
	return &stubHTTPServer{shutdownCh: make(chan struct{})}
}

func (s *stubHTTPServer) ListenAndServe() error {
	if s.listenErr != nil {
		return s.listenErr
	}
	<-s.shutdownCh
	return http.ErrServerClosed
}

func (s *stubHTTPServer) Shutdown(context.Context) error {
	s.shutdowns++
	close(s.shutdownCh)
	return nil
}

func TestHTTPServerServiceGracefulShutdown(t *testing.T) {
	server := newStubHTTPServer()
	svc := NewHTTPServerService(server, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context error after shutdown, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("service did not shut down")
	}

	if server.shutdowns != 1 {
		t.Errorf("expected one shutdown call, got %d", server.shutdowns)
	}
}

func TestHTTPServerServiceStartupFailure(t *testing.T) {
	server := newStubHTTPServer()
	server.listenErr = errors.New("address in use")
	svc := NewHTTPServerService(server, time.Second)

	err := svc.Serve(context.Background())
	if err == nil {
		t.Fatal("expected startup failure")
	}
}

func TestServiceNames(t *testing.T) {
	if got := NewEngineService(&stubRunner{}).String(); got != "sync-engine" {
		t.Errorf("engine service name: got %q", got)
	}
	if got := NewHTTPServerService(newStubHTTPServer(), 0).String(); got != "ops-http-server" {
		t.Errorf("http service name: got %q", got)
	}
}
