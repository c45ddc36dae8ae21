// Curator - Emby Collection Synchronization for MDBList
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package reconcile

import (
	"context"

	"github.com/tomtom215/curator/internal/logging"
	"github.com/tomtom215/curator/internal/metrics"
	"github.com/tomtom215/curator/internal/sync"
)

// itemSortMarker prefixes every forced item sort name written by the
// sorter. It is distinct from the single-bang date-based collection sort
// prefix, so the revert scan only ever matches items the sorter flagged.
const itemSortMarker = "!!!"

// ItemSorter rewrites member items' sort names in collections configured
// with update_items_sort_names, so the most recently added items sort
// first inside the collection, and reverts items that have left every
// such collection back to their default sort.
type ItemSorter struct {
	emby sync.EmbyClientInterface
}

func NewItemSorter(emby sync.EmbyClientInterface) *ItemSorter {
	return &ItemSorter{emby: emby}
}

// ProcessCollection forces each member's sort name to a marker plus a
// decreasing token derived from DateCreated plus the article-stripped
// item name. Items already carrying the exact sort name are skipped, so
// the pass is idempotent. Per-item failures are logged and absorbed.
func (s *ItemSorter) ProcessCollection(ctx context.Context, collectionID string) {
	items, err := s.emby.GetItemsInCollection(ctx, collectionID, []string{"DateCreated", "SortName"})
	if err != nil {
		logging.Error().Err(err).Str("collection_id", collectionID).Msg("Listing collection for item sort names failed")
		return
	}

	for i := range items {
		if ctx.Err() != nil {
			return
		}
		item := &items[i]

		created, err := parseEmbyDate(item.DateCreated)
		if err != nil {
			logging.Debug().Str("item", item.Name).Msg("Item has no usable DateCreated, keeping its sort name")
			continue
		}

		want := itemSortMarker + RecencyToken(created) + " " + StripLeadingArticle(item.Name)
		if item.SortName == want {
			continue
		}

		if err := s.emby.SetItemProperty(ctx, item.ID, "ForcedSortName", want); err != nil {
			logging.Error().Err(err).Str("item", item.Name).Msg("Setting item sort name failed")
			metrics.ItemSortUpdates.WithLabelValues("failed").Inc()
			continue
		}
		logging.Debug().Str("item", item.Name).Str("sort_name", want).Msg("Updated item sort name")
		metrics.ItemSortUpdates.WithLabelValues("applied").Inc()
	}
}

// ResetUntracked reverts the forced sort name on every marked library
// item that is no longer a member of any custom-sort collection. When a
// membership listing fails the revert is skipped entirely rather than
// risk stripping items whose collection could not be read.
func (s *ItemSorter) ResetUntracked(ctx context.Context, trackedCollectionIDs []string) {
	keep := make(map[string]struct{})
	for _, collectionID := range trackedCollectionIDs {
		items, err := s.emby.GetItemsInCollection(ctx, collectionID, nil)
		if err != nil {
			logging.Error().Err(err).Str("collection_id", collectionID).Msg("Listing custom-sort collection failed, skipping sort name revert")
			return
		}
		for i := range items {
			keep[items[i].ID] = struct{}{}
		}
	}

	marked, err := s.emby.GetItemsBySortNamePrefix(ctx, itemSortMarker)
	if err != nil {
		logging.Error().Err(err).Msg("Scanning for marked sort names failed, skipping revert")
		return
	}

	for i := range marked {
		if ctx.Err() != nil {
			return
		}
		if _, tracked := keep[marked[i].ID]; tracked {
			continue
		}
		if err := s.emby.SetItemProperty(ctx, marked[i].ID, "ForcedSortName", ""); err != nil {
			logging.Error().Err(err).Str("item", marked[i].Name).Msg("Reverting item sort name failed")
			metrics.ItemSortUpdates.WithLabelValues("failed").Inc()
			continue
		}
		logging.Info().Str("item", marked[i].Name).Msg("Reverted sort name for item no longer in a custom-sort collection")
		metrics.ItemSortUpdates.WithLabelValues("reverted").Inc()
	}
}
