// Curator - Emby Collection Synchronization for MDBList
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package reconcile

import (
	"context"
	"fmt"

	"github.com/tomtom215/curator/internal/logging"
	"github.com/tomtom215/curator/internal/metrics"
)

// applyMembership translates the missing IMDb ids to Emby item ids,
// creates the collection on first population (the API requires at least
// one member at creation time), and applies the add/remove batches as
// independent best-effort calls.
//
// Returns the (possibly newly created) collection id — empty when there
// was nothing to create — plus the success counts actually applied.
func (e *Engine) applyMembership(ctx context.Context, spec *ListSpec, collectionID string, diff MembershipDiff, mediatypes []string) (string, int, int, error) {
	addItemIDs, err := e.emby.GetItemsByIMDbIDs(ctx, diff.MissingIMDbIDs, mediatypes)
	if err != nil {
		return collectionID, 0, 0, fmt.Errorf("library lookup for %q: %w", spec.Name, err)
	}

	logging.Info().
		Str("collection", spec.Name).
		Int("to_add", len(addItemIDs)).
		Int("to_remove", len(diff.RemoveItemIDs)).
		Msg("Membership delta computed")

	createdNow := false
	if collectionID == "" {
		if len(addItemIDs) == 0 {
			// Absent collection and nothing resolvable in the library:
			// stay absent, non-fatal.
			logging.Warn().Str("collection", spec.Name).Msg("No library items to create collection with")
			return "", 0, 0, nil
		}

		collectionID, err = e.emby.CreateCollection(ctx, spec.Name, addItemIDs[0])
		if err != nil {
			return "", 0, 0, fmt.Errorf("create collection %q: %w", spec.Name, err)
		}
		metrics.CollectionsCreated.Inc()
		logging.Info().Str("collection", spec.Name).Str("collection_id", collectionID).Msg("Created collection")
		createdNow = true
		addItemIDs = addItemIDs[1:]
	}

	// Additions and removals are independent operations: a failure of one
	// does not roll back the other, and partial batch success is kept.
	// Whatever did not apply remains in the delta next pass.
	added, addErr := e.emby.AddToCollection(ctx, collectionID, addItemIDs)
	if addErr != nil {
		logging.Error().Err(addErr).Str("collection", spec.Name).Int("applied", added).Msg("Adding items failed part way")
	}
	if createdNow {
		added++ // the creation call itself placed the first item
	}

	removed, removeErr := e.emby.RemoveFromCollection(ctx, collectionID, diff.RemoveItemIDs)
	if removeErr != nil {
		logging.Error().Err(removeErr).Str("collection", spec.Name).Int("applied", removed).Msg("Removing items failed part way")
	}

	metrics.ItemsAdded.Add(float64(added))
	metrics.ItemsRemoved.Add(float64(removed))

	return collectionID, added, removed, nil
}
