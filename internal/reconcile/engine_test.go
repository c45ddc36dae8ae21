// Curator - Emby Collection Synchronization for MDBList
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package reconcile

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/curator/internal/metrics"
	"github.com/tomtom215/curator/internal/models"
)

// testEngine builds an engine over fakes with a pinned clock and a fixed
// frequency sample.
func testEngine(emby *fakeEmby, mdblist *fakeMDBList, posters *memPosterStore, opts Options) *Engine {
	e := NewEngine(emby, mdblist, posters, opts)
	e.now = func() time.Time { return time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC) }
	e.sample = func() int { return 50 }
	return e
}

func listOpts(specs ...ListSpec) Options {
	return Options{
		Lists:                  specs,
		ProcessConfiguredLists: true,
	}
}

func TestRunCycleCreatesAbsentCollection(t *testing.T) {
	emby := newFakeEmby()
	emby.libraryByIMDb["tt1"] = "e1"
	emby.libraryByIMDb["tt2"] = "e2"

	mdblist := newFakeMDBList()
	mdblist.lists[42] = []models.MDBListItem{
		{IMDbID: "tt1", Mediatype: "movie"},
		{IMDbID: "tt2", Mediatype: "movie"},
	}

	spec := ListSpec{Name: "Trending", Source: ListIDSource{ID: 42}, FrequencyPercent: 100}
	e := testEngine(emby, mdblist, newMemPosterStore(), listOpts(spec))

	checkNoError(t, e.RunCycle(context.Background()))

	checkStringSliceEqual(t, "created collections", emby.createdNames, []string{"Trending"})
	collectionID := emby.collections["Trending"]
	// First item placed at creation, the second via the add batch.
	checkStringSliceEqual(t, "members added", emby.added[collectionID], []string{"e1", "e2"})
}

func TestRunCycleAbsentCollectionWithNoLibraryMatches(t *testing.T) {
	emby := newFakeEmby() // library has none of the desired items

	mdblist := newFakeMDBList()
	mdblist.lists[42] = []models.MDBListItem{{IMDbID: "tt1", Mediatype: "movie"}}

	spec := ListSpec{Name: "Trending", Source: ListIDSource{ID: 42}, FrequencyPercent: 100}
	e := testEngine(emby, mdblist, newMemPosterStore(), listOpts(spec))

	checkNoError(t, e.RunCycle(context.Background()))
	checkSliceLen(t, "created collections", len(emby.createdNames), 0)
}

func TestRunCycleReconcilesExistingCollection(t *testing.T) {
	emby := newFakeEmby()
	emby.collections["Trending"] = "coll-9"
	emby.members["coll-9"] = []models.EmbyItem{
		member("e1", "tt1"),
		member("e9", "tt9"), // no longer desired
	}
	emby.libraryByIMDb["tt2"] = "e2"

	mdblist := newFakeMDBList()
	mdblist.lists[42] = []models.MDBListItem{
		{IMDbID: "tt1", Mediatype: "movie"},
		{IMDbID: "tt2", Mediatype: "movie"},
	}

	spec := ListSpec{Name: "Trending", Source: ListIDSource{ID: 42}, FrequencyPercent: 100}
	e := testEngine(emby, mdblist, newMemPosterStore(), listOpts(spec))

	checkNoError(t, e.RunCycle(context.Background()))

	checkStringSliceEqual(t, "added", emby.added["coll-9"], []string{"e2"})
	checkStringSliceEqual(t, "removed", emby.removed["coll-9"], []string{"e9"})
	checkSliceLen(t, "no collection created", len(emby.createdNames), 0)
}

func TestRunCycleFrequencySampling(t *testing.T) {
	newFixture := func() (*fakeEmby, *fakeMDBList) {
		emby := newFakeEmby()
		emby.collections["Trending"] = "coll-9"
		emby.libraryByIMDb["tt1"] = "e1"
		mdblist := newFakeMDBList()
		mdblist.lists[42] = []models.MDBListItem{{IMDbID: "tt1", Mediatype: "movie"}}
		return emby, mdblist
	}

	t.Run("sample above frequency skips the list", func(t *testing.T) {
		emby, mdblist := newFixture()
		spec := ListSpec{Name: "Trending", Source: ListIDSource{ID: 42}, FrequencyPercent: 30}
		e := testEngine(emby, mdblist, newMemPosterStore(), listOpts(spec))
		e.sample = func() int { return 31 }

		checkNoError(t, e.RunCycle(context.Background()))
		checkSliceLen(t, "no additions", len(emby.added["coll-9"]), 0)
	})

	t.Run("frequency 100 never skips", func(t *testing.T) {
		emby, mdblist := newFixture()
		spec := ListSpec{Name: "Trending", Source: ListIDSource{ID: 42}, FrequencyPercent: 100}
		e := testEngine(emby, mdblist, newMemPosterStore(), listOpts(spec))
		e.sample = func() int { return 100 }

		checkNoError(t, e.RunCycle(context.Background()))
		checkStringSliceEqual(t, "added", emby.added["coll-9"], []string{"e1"})
	})

	t.Run("absent collection overrides sampling", func(t *testing.T) {
		emby, mdblist := newFixture()
		delete(emby.collections, "Trending")
		spec := ListSpec{Name: "Trending", Source: ListIDSource{ID: 42}, FrequencyPercent: 1}
		e := testEngine(emby, mdblist, newMemPosterStore(), listOpts(spec))
		e.sample = func() int { return 99 }

		checkNoError(t, e.RunCycle(context.Background()))
		checkStringSliceEqual(t, "created", emby.createdNames, []string{"Trending"})
	})
}

func TestRunCycleOutOfSeasonTeardown(t *testing.T) {
	window := &ActiveWindow{StartMonth: time.October, StartDay: 1, EndMonth: time.November, EndDay: 15}

	t.Run("existing collection is emptied", func(t *testing.T) {
		emby := newFakeEmby()
		emby.collections["Halloween"] = "coll-h"
		emby.members["coll-h"] = []models.EmbyItem{member("e1", "tt1"), member("e2", "tt2")}

		spec := ListSpec{Name: "Halloween", Source: ListIDSource{ID: 1}, FrequencyPercent: 100, ActiveWindow: window}
		e := testEngine(emby, newFakeMDBList(), newMemPosterStore(), listOpts(spec)) // clock pinned to June

		checkNoError(t, e.RunCycle(context.Background()))
		checkStringSliceEqual(t, "removed all members", emby.removed["coll-h"], []string{"e1", "e2"})
	})

	t.Run("absent collection is a no-op", func(t *testing.T) {
		emby := newFakeEmby()
		spec := ListSpec{Name: "Halloween", Source: ListIDSource{ID: 1}, FrequencyPercent: 100, ActiveWindow: window}
		e := testEngine(emby, newFakeMDBList(), newMemPosterStore(), listOpts(spec))

		checkNoError(t, e.RunCycle(context.Background()))
		checkSliceLen(t, "nothing created", len(emby.createdNames), 0)
		checkSliceLen(t, "nothing removed", len(emby.removed), 0)
	})

	t.Run("inside window processes normally", func(t *testing.T) {
		emby := newFakeEmby()
		emby.collections["Halloween"] = "coll-h"
		emby.libraryByIMDb["tt1"] = "e1"
		mdblist := newFakeMDBList()
		mdblist.lists[1] = []models.MDBListItem{{IMDbID: "tt1", Mediatype: "movie"}}

		spec := ListSpec{Name: "Halloween", Source: ListIDSource{ID: 1}, FrequencyPercent: 100, ActiveWindow: window}
		e := testEngine(emby, mdblist, newMemPosterStore(), listOpts(spec))
		e.now = func() time.Time { return time.Date(2026, time.October, 20, 12, 0, 0, 0, time.UTC) }

		checkNoError(t, e.RunCycle(context.Background()))
		checkStringSliceEqual(t, "added", emby.added["coll-h"], []string{"e1"})
	})
}

func TestRunCyclePosterCache(t *testing.T) {
	emby := newFakeEmby()
	emby.collections["Trending"] = "coll-9"
	emby.libraryByIMDb["tt1"] = "e1"
	mdblist := newFakeMDBList()
	mdblist.lists[42] = []models.MDBListItem{{IMDbID: "tt1", Mediatype: "movie"}}
	posters := newMemPosterStore()

	spec := ListSpec{Name: "Trending", Source: ListIDSource{ID: 42}, FrequencyPercent: 100, PosterPath: "/posters/trending.jpg"}
	e := testEngine(emby, mdblist, posters, listOpts(spec))

	checkNoError(t, e.RunCycle(context.Background()))
	checkIntEqual(t, "uploads after first cycle", emby.setImageCalls, 1)
	checkStringEqual(t, "cached path", posters.paths["coll-9"], "/posters/trending.jpg")

	// Second cycle: path unchanged, upload skipped.
	checkNoError(t, e.RunCycle(context.Background()))
	checkIntEqual(t, "uploads after second cycle", emby.setImageCalls, 1)
}

// A failed upload must not populate the cache; the next pass retries.
func TestRunCyclePosterUploadFailureNotCached(t *testing.T) {
	emby := newFakeEmby()
	emby.collections["Trending"] = "coll-9"
	emby.libraryByIMDb["tt1"] = "e1"
	emby.setImageErr = errors.New("upload failed")
	mdblist := newFakeMDBList()
	mdblist.lists[42] = []models.MDBListItem{{IMDbID: "tt1", Mediatype: "movie"}}
	posters := newMemPosterStore()

	spec := ListSpec{Name: "Trending", Source: ListIDSource{ID: 42}, FrequencyPercent: 100, PosterPath: "/p.jpg"}
	e := testEngine(emby, mdblist, posters, listOpts(spec))

	checkNoError(t, e.RunCycle(context.Background()))
	checkStringEqual(t, "cache stays empty", posters.paths["coll-9"], "")

	emby.setImageErr = nil
	checkNoError(t, e.RunCycle(context.Background()))
	checkIntEqual(t, "upload retried", emby.setImageCalls, 2)
	checkStringEqual(t, "cached after success", posters.paths["coll-9"], "/p.jpg")
}

func TestRunCycleMetadataWrites(t *testing.T) {
	emby := newFakeEmby()
	emby.collections["The Trending"] = "coll-9"
	emby.libraryByIMDb["tt1"] = "e1"
	mdblist := newFakeMDBList()
	mdblist.lists[42] = []models.MDBListItem{{IMDbID: "tt1", Mediatype: "movie"}}

	spec := ListSpec{
		Name:             "The Trending",
		Source:           ListIDSource{ID: 42},
		FrequencyPercent: 100,
		SortPrefix:       "!!",
		Description:      `"Curated weekly"`,
	}
	e := testEngine(emby, mdblist, newMemPosterStore(), listOpts(spec))

	checkNoError(t, e.RunCycle(context.Background()))

	checkStringEqual(t, "forced sort name", emby.properties["coll-9"]["ForcedSortName"], "!! Trending")
	checkStringEqual(t, "overview", emby.properties["coll-9"]["Overview"], "Curated weekly")
}

func TestRunCycleConnectivityFailure(t *testing.T) {
	emby := newFakeEmby()
	emby.pingErr = errors.New("connection refused")

	e := testEngine(emby, newFakeMDBList(), newMemPosterStore(), listOpts())
	err := e.RunCycle(context.Background())
	checkTrue(t, "ErrConnectivity", errors.Is(err, ErrConnectivity))
	checkTrue(t, "not ready", !e.Ready())
}

func TestRunCycleMDBListConnectivityFailure(t *testing.T) {
	mdblist := newFakeMDBList()
	mdblist.userErr = errors.New("quota exceeded")

	e := testEngine(newFakeEmby(), mdblist, newMemPosterStore(), listOpts())
	err := e.RunCycle(context.Background())
	checkTrue(t, "ErrConnectivity", errors.Is(err, ErrConnectivity))
}

func TestRunProcessesMyLists(t *testing.T) {
	emby := newFakeEmby()
	emby.libraryByIMDb["tt1"] = "e1"

	mdblist := newFakeMDBList()
	mdblist.myLists = []models.MDBListInfo{{ID: 5, Name: "My Watchlist", Description: "stuff I like"}}
	mdblist.lists[5] = []models.MDBListItem{{IMDbID: "tt1", Mediatype: "movie"}}

	e := testEngine(emby, mdblist, newMemPosterStore(), Options{
		ProcessMyLists:      true,
		UseListDescriptions: true,
	})

	checkNoError(t, e.RunCycle(context.Background()))
	checkStringSliceEqual(t, "created from account list", emby.createdNames, []string{"My Watchlist"})
	collectionID := emby.collections["My Watchlist"]
	checkStringEqual(t, "source description applied", emby.properties[collectionID]["Overview"], "stuff I like")
}

// One-shot mode: Interval zero runs a single cycle and returns nil.
func TestRunOneShot(t *testing.T) {
	e := testEngine(newFakeEmby(), newFakeMDBList(), newMemPosterStore(), listOpts())
	checkNoError(t, e.Run(context.Background()))
	checkTrue(t, "ready after successful cycle", e.Ready())
}

func TestRunHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	emby := newFakeEmby()
	emby.pingErr = errors.New("down")
	e := testEngine(emby, newFakeMDBList(), newMemPosterStore(), listOpts())
	e.opts.ConnectRetryBackoff = time.Hour

	err := e.Run(ctx)
	checkTrue(t, "context error", errors.Is(err, context.Canceled))
}

func TestRunCycleFrequencyZeroNeverProcessed(t *testing.T) {
	t.Run("existing collection untouched", func(t *testing.T) {
		emby := newFakeEmby()
		emby.collections["Paused"] = "coll-9"
		emby.libraryByIMDb["tt1"] = "e1"
		mdblist := newFakeMDBList()
		mdblist.lists[42] = []models.MDBListItem{{IMDbID: "tt1", Mediatype: "movie"}}

		spec := ListSpec{Name: "Paused", Source: ListIDSource{ID: 42}, FrequencyPercent: 0}
		e := testEngine(emby, mdblist, newMemPosterStore(), listOpts(spec))
		e.sample = func() int { return 0 } // would pass "sample > frequency"

		checkNoError(t, e.RunCycle(context.Background()))
		checkSliceLen(t, "no additions", len(emby.added["coll-9"]), 0)
	})

	t.Run("absent collection not created", func(t *testing.T) {
		emby := newFakeEmby()
		emby.libraryByIMDb["tt1"] = "e1"
		mdblist := newFakeMDBList()
		mdblist.lists[42] = []models.MDBListItem{{IMDbID: "tt1", Mediatype: "movie"}}

		spec := ListSpec{Name: "Paused", Source: ListIDSource{ID: 42}, FrequencyPercent: 0}
		e := testEngine(emby, mdblist, newMemPosterStore(), listOpts(spec))
		e.sample = func() int { return 0 }

		checkNoError(t, e.RunCycle(context.Background()))
		checkSliceLen(t, "nothing created", len(emby.createdNames), 0)
	})
}

func TestRunCycleItemSortSweep(t *testing.T) {
	created := time.Date(2026, time.May, 25, 12, 0, 0, 0, time.UTC)

	emby := newFakeEmby()
	emby.collections["Trending"] = "coll-9"
	emby.members["coll-9"] = []models.EmbyItem{{
		ID:          "e1",
		Name:        "The Thing",
		ProviderIDs: map[string]string{"Imdb": "tt1"},
		DateCreated: embyDate(created),
	}}
	emby.libraryByIMDb["tt1"] = "e1"
	// Marked on an earlier run, no longer in any custom-sort collection.
	emby.itemsByID["zz"] = models.EmbyItem{ID: "zz", Name: "Departed", SortName: itemSortMarker + "000000000001 Departed"}

	mdblist := newFakeMDBList()
	mdblist.lists[42] = []models.MDBListItem{{IMDbID: "tt1", Mediatype: "movie"}}

	spec := ListSpec{Name: "Trending", Source: ListIDSource{ID: 42}, FrequencyPercent: 100, UpdateItemSortNames: true}
	e := testEngine(emby, mdblist, newMemPosterStore(), listOpts(spec))

	checkNoError(t, e.RunCycle(context.Background()))

	checkStringEqual(t, "member sort name", emby.properties["e1"]["ForcedSortName"], itemSortNameFor(created, "The Thing"))
	forced, reverted := emby.properties["zz"]["ForcedSortName"]
	checkTrue(t, "departed item reverted", reverted && forced == "")
}

// A custom-sort list skipped by frequency sampling still counts as
// tracked: the revert pass must not strip its members' sort names.
func TestRunCycleSkippedCustomSortListStillTracked(t *testing.T) {
	created := time.Date(2026, time.May, 25, 12, 0, 0, 0, time.UTC)
	marked := itemSortNameFor(created, "Alien")

	emby := newFakeEmby()
	emby.collections["Trending"] = "coll-9"
	emby.members["coll-9"] = []models.EmbyItem{{ID: "e1", Name: "Alien", DateCreated: embyDate(created), SortName: marked}}
	emby.itemsByID["e1"] = models.EmbyItem{ID: "e1", Name: "Alien", SortName: marked}

	mdblist := newFakeMDBList()
	mdblist.lists[42] = []models.MDBListItem{{IMDbID: "tt1", Mediatype: "movie"}}

	spec := ListSpec{Name: "Trending", Source: ListIDSource{ID: 42}, FrequencyPercent: 30, UpdateItemSortNames: true}
	e := testEngine(emby, mdblist, newMemPosterStore(), listOpts(spec))
	e.sample = func() int { return 99 } // list sits out this pass

	checkNoError(t, e.RunCycle(context.Background()))

	checkSliceLen(t, "no additions", len(emby.added["coll-9"]), 0)
	if forced, wrote := emby.properties["e1"]["ForcedSortName"]; wrote && !strings.HasPrefix(forced, itemSortMarker) {
		t.Errorf("member of a skipped custom-sort list was reverted to %q", forced)
	}
}

func TestRunCycleMutationFailureOutcome(t *testing.T) {
	emby := newFakeEmby()
	emby.collections["Trending"] = "coll-9"
	emby.listErr = errors.New("emby down")
	emby.libraryByIMDb["tt1"] = "e1"
	mdblist := newFakeMDBList()
	mdblist.lists[42] = []models.MDBListItem{{IMDbID: "tt1", Mediatype: "movie"}}

	spec := ListSpec{Name: "Trending", Source: ListIDSource{ID: 42}, FrequencyPercent: 100}
	e := testEngine(emby, mdblist, newMemPosterStore(), listOpts(spec))

	mutationBefore := testutil.ToFloat64(metrics.ListsProcessed.WithLabelValues("mutation_failed"))
	resolutionBefore := testutil.ToFloat64(metrics.ListsProcessed.WithLabelValues("resolution_failed"))

	checkNoError(t, e.RunCycle(context.Background()))

	mutationDelta := testutil.ToFloat64(metrics.ListsProcessed.WithLabelValues("mutation_failed")) - mutationBefore
	resolutionDelta := testutil.ToFloat64(metrics.ListsProcessed.WithLabelValues("resolution_failed")) - resolutionBefore
	checkTrue(t, "counted as mutation failure", mutationDelta == 1)
	checkTrue(t, "not counted as resolution failure", resolutionDelta == 0)
}

func TestRunCycleRefresherSweepCoversTouchedCollections(t *testing.T) {
	now := time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC)

	emby := newFakeEmby()
	emby.collections["Trending"] = "coll-9"
	emby.libraryByIMDb["tt1"] = "e1"
	mdblist := newFakeMDBList()
	mdblist.lists[42] = []models.MDBListItem{{IMDbID: "tt1", Mediatype: "movie"}}

	spec := ListSpec{Name: "Trending", Source: ListIDSource{ID: 42}, FrequencyPercent: 100}
	e := testEngine(emby, mdblist, newMemPosterStore(), Options{
		Lists:                        []ListSpec{spec},
		ProcessConfiguredLists:       true,
		RefreshItems:                 true,
		RefreshMaxDaysSinceAdded:     10,
		RefreshMaxDaysSincePremiered: 30,
	})
	e.refresher = testRefresher(emby, now)

	// Make the collection member fresh so the sweep refreshes it.
	emby.members["coll-9"] = []models.EmbyItem{{
		ID:           "e1",
		DateCreated:  embyDate(now.AddDate(0, 0, -1)),
		PremiereDate: embyDate(now.AddDate(0, 0, -1)),
	}}

	checkNoError(t, e.RunCycle(context.Background()))
	checkStringSliceEqual(t, "refreshed member", emby.refreshed, []string{"e1"})
}
