// Curator - Emby Collection Synchronization for MDBList
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

// Package api provides the ops HTTP surface: liveness, readiness, and
// Prometheus metrics. Curator has no data-plane API; everything it does
// happens on the sync cycle.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/curator/internal/logging"
)

// ReadyChecker reports whether the sync engine has completed at least one
// successful connectivity check. The engine satisfies this.
type ReadyChecker interface {
	Ready() bool
}

// Router builds the ops HTTP handler.
type Router struct {
	ready ReadyChecker
}

// NewRouter creates a Router backed by the given readiness source.
func NewRouter(ready ReadyChecker) *Router {
	return &Router{ready: ready}
}

// Setup configures all routes and middleware.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedMethods: []string{http.MethodGet},
	}))
	// Generous limit; these endpoints are scraped by monitoring, not users.
	r.Use(httprate.LimitByIP(1000, time.Minute))

	r.Get("/healthz", router.handleHealthz)
	r.Get("/readyz", router.handleReadyz)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

type healthResponse struct {
	Status string `json:"status"`
}

// handleHealthz reports liveness: the process is up and serving.
func (router *Router) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

// handleReadyz reports readiness: 200 once the engine has verified
// connectivity to both Emby and MDBList, 503 before that.
func (router *Router) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	if router.ready != nil && router.ready.Ready() {
		writeJSON(w, http.StatusOK, healthResponse{Status: "ready"})
		return
	}
	writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "not ready"})
}

// requestLogger logs every ops request at debug. These endpoints are
// scraped constantly, so anything louder would drown the sync logs.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logging.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("Ops request")
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
