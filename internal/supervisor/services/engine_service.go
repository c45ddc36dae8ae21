// Curator - Emby Collection Synchronization for MDBList
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

// Package services adapts Curator's long-running components to suture's
// Serve(ctx) contract.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/thejerf/suture/v4"
)

// Runner matches the sync engine's blocking run loop.
type Runner interface {
	Run(ctx context.Context) error
}

// EngineService wraps the reconciliation engine as a supervised service.
//
// Run already blocks for the life of the context, so the adaptation is
// thin: a clean return means the engine was configured for a single
// cycle, and the whole tree is torn down so the process can exit.
type EngineService struct {
	engine Runner
	name   string
}

// NewEngineService creates an engine service wrapper.
func NewEngineService(engine Runner) *EngineService {
	return &EngineService{
		engine: engine,
		name:   "sync-engine",
	}
}

// Serve implements suture.Service.
func (s *EngineService) Serve(ctx context.Context) error {
	err := s.engine.Run(ctx)
	if err == nil {
		// One-shot mode finished; stop the process rather than rerun.
		return suture.ErrTerminateSupervisorTree
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("sync engine: %w", err)
}

// String implements fmt.Stringer for supervisor logs.
func (s *EngineService) String() string {
	return s.name
}
