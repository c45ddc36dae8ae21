// Curator - Emby Collection Synchronization for MDBList
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/curator/internal/models"
	"github.com/tomtom215/curator/internal/sync"
)

// ErrEmptyList is reported when a list resolves successfully but contains
// zero identifiers. Distinct from a resolution failure: the list is
// skipped without touching the collection, and logged as "perhaps the list
// has not populated yet" rather than as an error.
var ErrEmptyList = errors.New("list resolved to zero identifiers")

// ResolvedList is the resolver output: a deduplicated desired IMDb-id set
// and the media-type hints gathered in discovery order (before
// deduplication, used only to narrow library lookups).
type ResolvedList struct {
	IMDbIDs    []string
	Mediatypes []string
}

// Resolver turns a ListSpec's identifier source into a ResolvedList.
type Resolver struct {
	mdblist sync.MDBListClientInterface
}

// NewResolver builds a resolver on the given MDBList client.
func NewResolver(mdblist sync.MDBListClientInterface) *Resolver {
	return &Resolver{mdblist: mdblist}
}

// Resolve fetches the desired identifier set for spec. Failure modes:
// ErrNoSource (misconfigured spec), sync.ErrListNotFound (name+owner
// lookup missed), ErrEmptyList (valid but empty), or an upstream fetch
// error. All are list-granular; the caller skips the list and continues.
func (r *Resolver) Resolve(ctx context.Context, spec *ListSpec) (*ResolvedList, error) {
	var (
		items []models.MDBListItem
		err   error
	)

	switch source := spec.Source.(type) {
	case ListIDSource:
		items, err = r.mdblist.GetList(ctx, source.ID)
	case NameOwnerSource:
		var listID int
		listID, err = r.mdblist.FindListID(ctx, source.Name, source.Owner)
		if err == nil {
			items, err = r.mdblist.GetList(ctx, listID)
		}
	case URLSource:
		items, err = r.resolveSourceURLs(ctx, source.URLs)
	case nil:
		return nil, ErrNoSource
	default:
		return nil, fmt.Errorf("unsupported identifier source %T", spec.Source)
	}
	if err != nil {
		return nil, err
	}

	resolved := collectItems(items)
	if len(resolved.IMDbIDs) == 0 {
		return nil, ErrEmptyList
	}
	return resolved, nil
}

// resolveSourceURLs fetches every URL independently and concatenates the
// results. One failed URL fails the whole list: applying a partially
// resolved desired set would silently shrink the collection, so nothing is
// mutated until every source answered (decision recorded in DESIGN.md).
func (r *Resolver) resolveSourceURLs(ctx context.Context, urls []string) ([]models.MDBListItem, error) {
	var items []models.MDBListItem
	for _, u := range urls {
		part, err := r.mdblist.GetListByURL(ctx, u)
		if err != nil {
			return nil, fmt.Errorf("source url %q: %w", u, err)
		}
		items = append(items, part...)
	}
	return items, nil
}

// collectItems deduplicates IMDb ids (identifier sets have no meaningful
// order) while keeping all media-type hints in discovery order. Items
// without an IMDb id cannot be matched in the library and are dropped.
func collectItems(items []models.MDBListItem) *ResolvedList {
	resolved := &ResolvedList{}
	seen := make(map[string]struct{}, len(items))

	for i := range items {
		if items[i].Mediatype != "" {
			resolved.Mediatypes = append(resolved.Mediatypes, items[i].Mediatype)
		}
		id := items[i].IMDbID
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		resolved.IMDbIDs = append(resolved.IMDbIDs, id)
	}

	return resolved
}
