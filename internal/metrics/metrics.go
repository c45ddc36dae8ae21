// Curator - Emby Collection Synchronization for MDBList
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

// Package metrics defines the Prometheus collectors exported at /metrics.
//
// Collectors are registered via promauto at package load. Labels are kept
// low-cardinality: outcomes and component names only, never collection or
// item identifiers.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Cycle metrics

	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_cycles_total",
			Help: "Total number of reconciliation cycles by result",
		},
		[]string{"result"}, // "completed", "connectivity_failed"
	)

	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "curator_cycle_duration_seconds",
			Help:    "Duration of a full reconciliation cycle in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		},
	)

	// Per-list metrics

	ListsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_lists_processed_total",
			Help: "Total number of list processing attempts by outcome",
		},
		[]string{"outcome"}, // "reconciled", "skipped", "out_of_season", "resolution_failed", "mutation_failed", "empty"
	)

	ItemsAdded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "curator_items_added_total",
			Help: "Total number of items added to collections",
		},
	)

	ItemsRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "curator_items_removed_total",
			Help: "Total number of items removed from collections",
		},
	)

	CollectionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "curator_collections_created_total",
			Help: "Total number of collections created",
		},
	)

	PosterUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_poster_updates_total",
			Help: "Total number of poster upload attempts by result",
		},
		[]string{"result"}, // "applied", "cached", "failed"
	)

	ItemSortUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_item_sort_updates_total",
			Help: "Total number of per-item sort name writes by result",
		},
		[]string{"result"}, // "applied", "reverted", "failed"
	)

	// Refresher metrics

	RefreshRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_refresh_requests_total",
			Help: "Total number of item metadata refresh requests by result",
		},
		[]string{"result"}, // "success", "failure", "skipped"
	)

	// Circuit breaker metrics

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "curator_circuit_breaker_state",
			Help: "Circuit breaker state: 0=closed, 1=open, 2=half-open",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_circuit_breaker_requests_total",
			Help: "Circuit breaker request outcomes",
		},
		[]string{"name", "outcome"}, // "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)
)
