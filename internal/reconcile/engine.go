// Curator - Emby Collection Synchronization for MDBList
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package reconcile

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/curator/internal/logging"
	"github.com/tomtom215/curator/internal/metrics"
	"github.com/tomtom215/curator/internal/models"
	"github.com/tomtom215/curator/internal/store"
	"github.com/tomtom215/curator/internal/sync"
)

// ErrConnectivity marks a failed pre-cycle reachability check. The cycle
// attempt is abandoned and retried from the start after a backoff; it is
// never partially resumed.
var ErrConnectivity = errors.New("connectivity check failed")

// Options holds the engine's run-wide policy knobs.
type Options struct {
	// Lists are the configured list specs, processed in order.
	Lists []ListSpec

	// ProcessConfiguredLists / ProcessMyLists select which list sources
	// a cycle covers.
	ProcessConfiguredLists bool
	ProcessMyLists         bool

	// SortNamesDefault is the UpdateItemSortNames value applied to lists
	// discovered from the MDBList account (configured lists carry their
	// own flag).
	SortNamesDefault bool

	// UseListDescriptions enables writing source-provided descriptions
	// onto collections that have no configured override.
	UseListDescriptions bool

	// Refresh policy (see Refresher).
	RefreshItems                 bool
	RefreshMaxDaysSinceAdded     int
	RefreshMaxDaysSincePremiered int
	RefreshRatingChanges         bool

	// Interval is the pause between cycles; zero means run exactly one
	// cycle and stop.
	Interval time.Duration

	// ConnectRetryBackoff is the pause after a failed connectivity check
	// before the cycle start is retried.
	ConnectRetryBackoff time.Duration
}

// Engine drives the reconciliation loop. All mutable run state (counters,
// touched-collection sets, the refresher's processed set) is owned by the
// instance; nothing is package-global. Single-writer: two engines against
// the same Emby server would race each other's view of membership.
type Engine struct {
	emby      sync.EmbyClientInterface
	mdblist   sync.MDBListClientInterface
	posters   store.PosterStore
	resolver  *Resolver
	refresher *Refresher
	sorter    *ItemSorter
	opts      Options

	// now and sample are injection points for tests.
	now    func() time.Time
	sample func() int

	ready atomic.Bool
}

// NewEngine builds an engine. Lists are processed strictly sequentially:
// one list is fully reconciled before the next begins, and the refresher
// sweep runs only after all lists complete.
func NewEngine(emby sync.EmbyClientInterface, mdblist sync.MDBListClientInterface, posters store.PosterStore, opts Options) *Engine {
	if opts.ConnectRetryBackoff <= 0 {
		opts.ConnectRetryBackoff = 5 * time.Minute
	}
	return &Engine{
		emby:      emby,
		mdblist:   mdblist,
		posters:   posters,
		resolver:  NewResolver(mdblist),
		refresher: NewRefresher(emby),
		sorter:    NewItemSorter(emby),
		opts:      opts,
		now:       time.Now,
		sample:    func() int { return rand.IntN(101) },
	}
}

// Ready reports whether at least one cycle has completed. Exposed through
// the ops server's readiness endpoint.
func (e *Engine) Ready() bool { return e.ready.Load() }

// Run executes cycles until the context is canceled. Shutdown is honored
// at cycle boundaries and between lists, never mid-list.
func (e *Engine) Run(ctx context.Context) error {
	for {
		err := e.RunCycle(ctx)
		switch {
		case err == nil:
			e.ready.Store(true)
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			return err
		case errors.Is(err, ErrConnectivity):
			logging.Warn().Err(err).Dur("backoff", e.opts.ConnectRetryBackoff).Msg("Connectivity check failed, backing off")
			metrics.CyclesTotal.WithLabelValues("connectivity_failed").Inc()
			if err := sleepCtx(ctx, e.opts.ConnectRetryBackoff); err != nil {
				return err
			}
			continue
		default:
			// RunCycle only fails on connectivity; anything else would be
			// a programming error, surface it.
			return err
		}

		if e.opts.Interval <= 0 {
			return nil
		}
		logging.Info().Dur("interval", e.opts.Interval).Msg("Cycle complete, sleeping until next")
		if err := sleepCtx(ctx, e.opts.Interval); err != nil {
			return err
		}
	}
}

// RunCycle performs one full pass: connectivity gate, every list, summary,
// refresher sweep. List- and item-level failures are logged and absorbed;
// only connectivity failures (and context cancellation) are returned.
func (e *Engine) RunCycle(ctx context.Context) error {
	cycleID := uuid.NewString()[:8]
	cycleLog := logging.With().Str("cycle", cycleID).Logger()
	started := e.now()

	if err := e.checkConnectivity(ctx); err != nil {
		return err
	}

	acc := NewRunAccumulators()

	if e.opts.ProcessConfiguredLists {
		for i := range e.opts.Lists {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			e.processList(ctx, &e.opts.Lists[i], acc)
		}
	}

	if e.opts.ProcessMyLists {
		e.processMyLists(ctx, acc)
	}

	cycleLog.Info().
		Int("added", acc.Added).
		Int("removed", acc.Removed).
		Int("collections", len(acc.TouchedCollectionIDs())).
		Msg("SUMMARY: cycle reconciliation finished")

	if ids := acc.SortRefreshCollectionIDs(); len(ids) > 0 {
		cycleLog.Info().
			Int("collections", len(ids)).
			Msg("Updating item sort names in custom-sort collections")
		for _, collectionID := range ids {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			e.sorter.ProcessCollection(ctx, collectionID)
		}
	}
	// Runs even with no custom-sort collections this cycle: items marked
	// on earlier runs still get reverted once they leave every tracked
	// collection.
	e.sorter.ResetUntracked(ctx, acc.SortRefreshCollectionIDs())

	if e.opts.RefreshItems {
		cycleLog.Info().
			Int("max_days_since_added", e.opts.RefreshMaxDaysSinceAdded).
			Int("max_days_since_premiered", e.opts.RefreshMaxDaysSincePremiered).
			Msg("Refreshing metadata for recently added, recently premiered items")
		for _, collectionID := range acc.TouchedCollectionIDs() {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			e.refresher.ProcessCollection(ctx, collectionID,
				e.opts.RefreshMaxDaysSinceAdded, e.opts.RefreshMaxDaysSincePremiered,
				e.opts.RefreshRatingChanges)
		}
	}

	metrics.CyclesTotal.WithLabelValues("completed").Inc()
	metrics.CycleDuration.Observe(e.now().Sub(started).Seconds())
	return nil
}

// checkConnectivity probes both upstream services before any work. Either
// failing aborts the cycle attempt.
func (e *Engine) checkConnectivity(ctx context.Context) error {
	if err := e.emby.Ping(ctx); err != nil {
		return fmt.Errorf("%w: emby: %w", ErrConnectivity, err)
	}
	userInfo, err := e.mdblist.GetUserInfo(ctx)
	if err != nil {
		return fmt.Errorf("%w: mdblist: %w", ErrConnectivity, err)
	}
	logging.Debug().Str("mdblist_user", userInfo.Username).Msg("Connectivity checks passed")
	return nil
}

// processMyLists discovers the account's own MDBList lists and processes
// each as a generated spec (frequency 100, defaults for policy flags).
func (e *Engine) processMyLists(ctx context.Context, acc *RunAccumulators) {
	myLists, err := e.mdblist.GetMyLists(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("Fetching account lists failed, skipping")
		return
	}
	if len(myLists) == 0 {
		logging.Warn().Msg("No lists returned for the MDBList account")
		return
	}

	for i := range myLists {
		if ctx.Err() != nil {
			return
		}
		spec := e.specFromAccountList(&myLists[i])
		e.processList(ctx, &spec, acc)
	}
}

func (e *Engine) specFromAccountList(info *models.MDBListInfo) ListSpec {
	return ListSpec{
		Name:                info.Name,
		Source:              ListIDSource{ID: info.ID},
		FrequencyPercent:    100,
		UpdateItemSortNames: e.opts.SortNamesDefault,
		SourceDescription:   info.Description,
	}
}

// processList reconciles a single list end to end. Every failure mode in
// here is list-granular: log, count, return.
func (e *Engine) processList(ctx context.Context, spec *ListSpec, acc *RunAccumulators) {
	listLog := logging.With().Str("collection", spec.Name).Logger()

	collectionID, err := e.emby.GetCollectionID(ctx, spec.Name)
	if err != nil {
		listLog.Error().Err(err).Msg("Collection lookup failed, skipping list")
		metrics.ListsProcessed.WithLabelValues("resolution_failed").Inc()
		return
	}

	// Seasonal gate runs before any resolution work.
	if spec.ActiveWindow != nil && !spec.ActiveWindow.Contains(e.now()) {
		e.teardownOutOfSeason(ctx, spec, collectionID, acc)
		return
	}

	// Marked before any skip path: the revert sweep must never strip
	// items from a custom-sort collection that merely sat out this pass.
	if spec.UpdateItemSortNames && collectionID != "" {
		acc.MarkSortRefresh(collectionID)
	}

	if spec.FrequencyPercent <= 0 {
		// sample() can draw 0, which would otherwise pass the comparison
		// below about once per hundred cycles.
		listLog.Info().Msg("List frequency is 0, never processed")
		metrics.ListsProcessed.WithLabelValues("skipped").Inc()
		return
	}

	frequency := spec.FrequencyPercent
	if collectionID == "" {
		listLog.Info().Msg("Collection does not exist yet, will create it")
		frequency = 100 // first population is never skipped by sampling
	}
	if e.sample() > frequency {
		listLog.Info().Int("frequency", frequency).Msg("Skipping list this pass by frequency sampling")
		metrics.ListsProcessed.WithLabelValues("skipped").Inc()
		return
	}

	resolved, err := e.resolver.Resolve(ctx, spec)
	switch {
	case err == nil:
	case errors.Is(err, ErrEmptyList):
		listLog.Warn().Msg("List has no items, skipping; perhaps it has not populated yet")
		metrics.ListsProcessed.WithLabelValues("empty").Inc()
		return
	case errors.Is(err, ErrNoSource):
		listLog.Error().Msg("List has no id, name+owner, or source urls; skipping")
		metrics.ListsProcessed.WithLabelValues("resolution_failed").Inc()
		return
	default:
		listLog.Error().Err(err).Msg("List resolution failed, skipping")
		metrics.ListsProcessed.WithLabelValues("resolution_failed").Inc()
		return
	}

	listLog.Info().Int("desired", len(resolved.IMDbIDs)).Msg("Processing list")

	diff := MembershipDiff{MissingIMDbIDs: resolved.IMDbIDs}
	if collectionID != "" {
		members, err := e.emby.GetItemsInCollection(ctx, collectionID, []string{"ProviderIds"})
		if err != nil {
			listLog.Error().Err(err).Msg("Listing collection members failed, skipping")
			metrics.ListsProcessed.WithLabelValues("mutation_failed").Inc()
			return
		}
		diff = DiffMembership(resolved.IMDbIDs, members)
	}

	collectionID, added, removed, err := e.applyMembership(ctx, spec, collectionID, diff, resolved.Mediatypes)
	if err != nil {
		listLog.Error().Err(err).Msg("Membership mutation failed, skipping")
		metrics.ListsProcessed.WithLabelValues("mutation_failed").Inc()
		return
	}
	if collectionID == "" {
		// Nothing to create; the list stays absent until it resolves to
		// at least one library item.
		metrics.ListsProcessed.WithLabelValues("empty").Inc()
		return
	}

	acc.Added += added
	acc.Removed += removed
	acc.Touch(collectionID)
	if spec.UpdateItemSortNames {
		acc.MarkSortRefresh(collectionID)
	}

	e.applyMetadata(ctx, spec, collectionID, added > 0 || removed > 0)
	metrics.ListsProcessed.WithLabelValues("reconciled").Inc()
}

// teardownOutOfSeason empties (but never deletes) an existing collection
// whose list is outside its active window.
func (e *Engine) teardownOutOfSeason(ctx context.Context, spec *ListSpec, collectionID string, acc *RunAccumulators) {
	listLog := logging.With().Str("collection", spec.Name).Str("window", spec.ActiveWindow.String()).Logger()

	if collectionID == "" {
		listLog.Info().Msg("Seasonal collection does not exist, nothing to do")
		metrics.ListsProcessed.WithLabelValues("out_of_season").Inc()
		return
	}

	members, err := e.emby.GetItemsInCollection(ctx, collectionID, nil)
	if err != nil {
		listLog.Error().Err(err).Msg("Listing seasonal collection failed")
		metrics.ListsProcessed.WithLabelValues("resolution_failed").Inc()
		return
	}

	itemIDs := make([]string, 0, len(members))
	for i := range members {
		itemIDs = append(itemIDs, members[i].ID)
	}

	removed, err := e.emby.RemoveFromCollection(ctx, collectionID, itemIDs)
	if err != nil {
		listLog.Error().Err(err).Int("removed", removed).Msg("Seasonal teardown failed part way")
	}
	acc.Removed += removed
	metrics.ItemsRemoved.Add(float64(removed))

	if removed > 0 {
		listLog.Info().Int("removed", removed).Msg("Collection out of season, removed all items")
	} else {
		listLog.Info().Msg("Collection out of season, no items to remove")
	}
	metrics.ListsProcessed.WithLabelValues("out_of_season").Inc()
}

// applyMetadata enforces the poster, sort-name and description policies
// after membership mutation. Each is independent and non-fatal.
func (e *Engine) applyMetadata(ctx context.Context, spec *ListSpec, collectionID string, membershipChanged bool) {
	e.applyPoster(ctx, spec, collectionID)

	if sortName, write := ComputeSortName(spec, membershipChanged, e.now()); write {
		if err := e.emby.SetItemProperty(ctx, collectionID, "ForcedSortName", sortName); err != nil {
			logging.Error().Err(err).Str("collection", spec.Name).Msg("Setting sort name failed")
		} else {
			logging.Info().Str("collection", spec.Name).Str("sort_name", sortName).Msg("Updated collection sort name")
		}
	} else {
		logging.Debug().Str("collection", spec.Name).Msg("Collection inherits default sort name")
	}

	if description, write := ComputeDescription(spec, e.opts.UseListDescriptions); write {
		if err := e.emby.SetItemProperty(ctx, collectionID, "Overview", description); err != nil {
			logging.Error().Err(err).Str("collection", spec.Name).Msg("Setting description failed")
		}
	}
}

// applyPoster uploads the configured poster only when it differs from the
// last successfully applied path. The cache updates only on success so a
// failed upload is retried next pass.
func (e *Engine) applyPoster(ctx context.Context, spec *ListSpec, collectionID string) {
	if spec.PosterPath == "" {
		return
	}

	cached, err := e.posters.Get(collectionID)
	if err != nil {
		logging.Error().Err(err).Str("collection", spec.Name).Msg("Poster cache read failed")
		// Fall through: worst case is a redundant upload.
	}
	if cached == spec.PosterPath {
		logging.Debug().Str("collection", spec.Name).Msg("Poster already applied, skipping upload")
		metrics.PosterUpdates.WithLabelValues("cached").Inc()
		return
	}

	if err := e.emby.SetImage(ctx, collectionID, spec.PosterPath); err != nil {
		logging.Error().Err(err).Str("collection", spec.Name).Msg("Poster upload failed")
		metrics.PosterUpdates.WithLabelValues("failed").Inc()
		return
	}

	if err := e.posters.Set(collectionID, spec.PosterPath); err != nil {
		logging.Error().Err(err).Str("collection", spec.Name).Msg("Poster cache write failed")
	}
	metrics.PosterUpdates.WithLabelValues("applied").Inc()
	logging.Info().Str("collection", spec.Name).Msg("Poster applied")
}

// sleepCtx sleeps for d or until ctx is canceled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
