// Curator - Emby Collection Synchronization for MDBList
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package reconcile

import "github.com/tomtom215/curator/internal/models"

// MembershipDiff is the outcome of comparing a desired IMDb-id set against
// a collection's current members.
type MembershipDiff struct {
	// MissingIMDbIDs are desired ids not present in the collection; they
	// still need translation to Emby item ids before they can be added.
	MissingIMDbIDs []string

	// RemoveItemIDs are Emby item ids of members whose IMDb id is no
	// longer desired. Members without any IMDb id are left alone: they
	// cannot be matched against the desired set, and removing them would
	// evict manually curated entries.
	RemoveItemIDs []string
}

// DiffMembership computes the minimal mutation sets: missing = desired
// minus current, remove = current minus desired. Pure set arithmetic; no
// ordering guarantees beyond input order.
func DiffMembership(desiredIMDbIDs []string, current []models.EmbyItem) MembershipDiff {
	desired := make(map[string]struct{}, len(desiredIMDbIDs))
	for _, id := range desiredIMDbIDs {
		desired[id] = struct{}{}
	}

	present := make(map[string]struct{}, len(current))
	var diff MembershipDiff

	for i := range current {
		imdbID := current[i].IMDbID()
		if imdbID == "" {
			continue
		}
		present[imdbID] = struct{}{}
		if _, want := desired[imdbID]; !want {
			diff.RemoveItemIDs = append(diff.RemoveItemIDs, current[i].ID)
		}
	}

	for _, id := range desiredIMDbIDs {
		if _, have := present[id]; !have {
			diff.MissingIMDbIDs = append(diff.MissingIMDbIDs, id)
		}
	}

	return diff
}
