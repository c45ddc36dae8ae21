// Curator - Emby Collection Synchronization for MDBList
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package reconcile

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/curator/internal/logging"
	"github.com/tomtom215/curator/internal/metrics"
	"github.com/tomtom215/curator/internal/sync"
)

// Refresher re-requests metadata for collection members that are both
// recently added to the library and recently premiered, keeping their
// ratings current while they are still settling.
//
// Each item id is refreshed at most once per process lifetime, success or
// failure: the processed set is marked before any work so repeated
// failures cannot inflate refresh-request volume. The set is never
// persisted; a restart starts fresh.
type Refresher struct {
	emby      sync.EmbyClientInterface
	limiter   *rate.Limiter
	processed map[string]struct{}
	now       func() time.Time
}

// NewRefresher builds a refresher pacing requests at one per second,
// matching the historical request spacing against Emby.
func NewRefresher(emby sync.EmbyClientInterface) *Refresher {
	return &Refresher{
		emby:      emby,
		limiter:   rate.NewLimiter(rate.Every(time.Second), 1),
		processed: make(map[string]struct{}),
		now:       time.Now,
	}
}

// ProcessCollection walks a collection and refreshes qualifying members.
// An item qualifies only when BOTH bounds hold: days since the item was
// added to the library <= maxDaysSinceAdded AND days since it premiered
// <= maxDaysSincePremiered. Items with no premiere date are treated as
// having premiered now, which favors refreshing them.
//
// All failures are item-granular: logged, counted, never propagated.
func (r *Refresher) ProcessCollection(ctx context.Context, collectionID string, maxDaysSinceAdded, maxDaysSincePremiered int, logRatingChanges bool) {
	items, err := r.emby.GetItemsInCollection(ctx, collectionID,
		[]string{"PremiereDate", "DateCreated", "CommunityRating"})
	if err != nil {
		logging.Error().Err(err).Str("collection_id", collectionID).Msg("Refresher: listing collection failed")
		return
	}

	now := r.now()

	for i := range items {
		item := &items[i]

		if _, done := r.processed[item.ID]; done {
			continue
		}
		// Marked before any work: at most one refresh attempt per item
		// per process lifetime, regardless of outcome.
		r.processed[item.ID] = struct{}{}

		created, err := parseEmbyDate(item.DateCreated)
		if err != nil {
			logging.Info().
				Str("item_id", item.ID).
				Str("item", item.Name).
				Str("date_created", item.DateCreated).
				Err(err).
				Msg("Refresher: unparseable DateCreated, skipping")
			metrics.RefreshRequests.WithLabelValues("skipped").Inc()
			continue
		}

		premiered := now
		if item.PremiereDate != "" {
			parsed, err := parseEmbyDate(item.PremiereDate)
			if err == nil {
				premiered = parsed
			}
		} else {
			logging.Debug().
				Str("item_id", item.ID).
				Str("item", item.Name).
				Msg("Refresher: premiere date missing, treating as just premiered")
		}

		daysSinceCreated := int(now.Sub(created).Hours() / 24)
		daysSincePremiered := int(now.Sub(premiered).Hours() / 24)

		if daysSincePremiered > maxDaysSincePremiered || daysSinceCreated > maxDaysSinceAdded {
			metrics.RefreshRequests.WithLabelValues("skipped").Inc()
			continue
		}

		if err := r.limiter.Wait(ctx); err != nil {
			return // context canceled
		}

		if err := r.emby.RefreshItem(ctx, item.ID); err != nil {
			logging.Error().Err(err).Str("item_id", item.ID).Str("item", item.Name).Msg("Refresher: item refresh failed")
			metrics.RefreshRequests.WithLabelValues("failure").Inc()
			continue
		}
		metrics.RefreshRequests.WithLabelValues("success").Inc()
		logging.Info().Str("item", item.Name).Msg("Refresher: refreshed item")

		if logRatingChanges {
			r.logRatingChange(ctx, item.ID, item.Name, item.CommunityRating)
		}
	}
}

// logRatingChange re-fetches the item to report its rating delta. Costs
// one extra request per refreshed item; informational only.
func (r *Refresher) logRatingChange(ctx context.Context, itemID, name string, oldRating float64) {
	updated, err := r.emby.GetItem(ctx, itemID)
	if err != nil {
		logging.Debug().Err(err).Str("item_id", itemID).Msg("Refresher: rating re-fetch failed")
		return
	}
	logging.Info().
		Str("item", name).
		Float64("old_rating", oldRating).
		Float64("new_rating", updated.CommunityRating).
		Msg("Refresher: rating change")
}

// parseEmbyDate parses Emby timestamps, which carry seven fractional
// digits ("2023-11-08T09:27:58.0000000Z").
func parseEmbyDate(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}
