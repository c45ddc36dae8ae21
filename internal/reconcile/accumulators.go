// Curator - Emby Collection Synchronization for MDBList
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package reconcile

// RunAccumulators collects the counters and ordered sets produced over one
// full cycle. The engine owns one instance per cycle; nothing here is
// global or persisted. Added/Removed accumulate the success counts
// returned by the mutation calls, not the requested batch sizes, so
// partial application shows up in the cycle summary.
type RunAccumulators struct {
	Added   int
	Removed int

	touchedOrder []string
	touched      map[string]struct{}

	sortRefreshOrder []string
	sortRefresh      map[string]struct{}
}

// NewRunAccumulators returns empty accumulators for a fresh cycle.
func NewRunAccumulators() *RunAccumulators {
	return &RunAccumulators{
		touched:     make(map[string]struct{}),
		sortRefresh: make(map[string]struct{}),
	}
}

// Touch registers a collection id as touched this cycle, preserving first
// insertion order. The refresher iterates this set.
func (a *RunAccumulators) Touch(collectionID string) {
	if _, ok := a.touched[collectionID]; ok {
		return
	}
	a.touched[collectionID] = struct{}{}
	a.touchedOrder = append(a.touchedOrder, collectionID)
}

// TouchedCollectionIDs returns the touched ids in first insertion order.
func (a *RunAccumulators) TouchedCollectionIDs() []string {
	return a.touchedOrder
}

// MarkSortRefresh registers a collection whose member sort names should be
// refreshed after the cycle completes.
func (a *RunAccumulators) MarkSortRefresh(collectionID string) {
	if _, ok := a.sortRefresh[collectionID]; ok {
		return
	}
	a.sortRefresh[collectionID] = struct{}{}
	a.sortRefreshOrder = append(a.sortRefreshOrder, collectionID)
}

// SortRefreshCollectionIDs returns the registered ids in insertion order.
func (a *RunAccumulators) SortRefreshCollectionIDs() []string {
	return a.sortRefreshOrder
}
