// Curator - Emby Collection Synchronization for MDBList
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

// Package reconcile implements the collection reconciliation engine: it
// resolves each configured list to a desired set of IMDb ids, diffs that
// set against the live collection membership, applies the minimal add and
// remove mutations, enforces the poster/sort-name/description policies,
// and finally re-requests metadata for recently added, recently premiered
// items.
package reconcile

import (
	"errors"
	"fmt"
	"strings"
)

// IdentifierSource is the tagged union over the three ways a list's
// membership can be resolved. Exactly one concrete type backs each
// ListSpec; validation happens at construction, not during processing.
type IdentifierSource interface {
	isIdentifierSource()
	String() string
}

// ListIDSource resolves membership by explicit MDBList list id.
type ListIDSource struct {
	ID int
}

func (ListIDSource) isIdentifierSource() {}

func (s ListIDSource) String() string { return fmt.Sprintf("list id %d", s.ID) }

// NameOwnerSource resolves membership by list name and owner username.
type NameOwnerSource struct {
	Name  string
	Owner string
}

func (NameOwnerSource) isIdentifierSource() {}

func (s NameOwnerSource) String() string { return fmt.Sprintf("list %q by %q", s.Name, s.Owner) }

// URLSource resolves membership from one or more list share URLs, with
// per-URL results concatenated.
type URLSource struct {
	URLs []string
}

func (URLSource) isIdentifierSource() {}

func (s URLSource) String() string { return fmt.Sprintf("%d source url(s)", len(s.URLs)) }

// ListSpec is one desired collection's definition. Name doubles as the key
// for locating the corresponding Emby collection; it must be stable across
// runs. The collection id itself is re-resolved from the name at the start
// of every pass and never cached.
type ListSpec struct {
	Name             string
	Source           IdentifierSource
	FrequencyPercent int

	// ActiveWindow, when non-nil, restricts the list to a recurring
	// calendar period; outside it the collection is emptied, not deleted.
	ActiveWindow *ActiveWindow

	// UpdateItemSortNames registers the collection for the per-item
	// sort-name refresh pass.
	UpdateItemSortNames bool

	// SortName, SortPrefix and SortDateBased drive the collection
	// sort-name policy, evaluated in fixed precedence order.
	SortName      string
	SortPrefix    string
	SortDateBased bool

	// Description, when set, overrides any source-provided description.
	Description string

	// SourceDescription is the description carried by the list source
	// itself (populated for lists discovered via the MDBList account).
	SourceDescription string

	PosterPath string
}

// ErrNoSource is reported when a list spec has no resolvable identifier
// source. The list is skipped; the cycle continues.
var ErrNoSource = errors.New("no list source specified: need an id, a name and owner, or source urls")

// NewListSpec validates and builds a ListSpec from raw configuration
// values. Exactly one identifier source must be derivable from (listID,
// listName+listOwner, sourceField); precedence follows the order above
// when more than one is present, matching how lists have historically
// been configured.
func NewListSpec(name string, listID int, listName, listOwner, sourceField string, frequency int) (ListSpec, error) {
	if strings.TrimSpace(name) == "" {
		return ListSpec{}, errors.New("list name must not be empty")
	}
	if frequency < 0 || frequency > 100 {
		return ListSpec{}, fmt.Errorf("list %q: frequency %d outside [0,100]", name, frequency)
	}

	source, err := buildSource(listID, listName, listOwner, sourceField)
	if err != nil {
		return ListSpec{}, fmt.Errorf("list %q: %w", name, err)
	}

	return ListSpec{
		Name:             name,
		Source:           source,
		FrequencyPercent: frequency,
	}, nil
}

func buildSource(listID int, listName, listOwner, sourceField string) (IdentifierSource, error) {
	if listID > 0 {
		return ListIDSource{ID: listID}, nil
	}
	if listName != "" && listOwner != "" {
		return NameOwnerSource{Name: listName, Owner: listOwner}, nil
	}
	if strings.TrimSpace(sourceField) != "" {
		urls, err := SplitSourceURLs(sourceField)
		if err != nil {
			return nil, err
		}
		return URLSource{URLs: urls}, nil
	}
	return nil, ErrNoSource
}
