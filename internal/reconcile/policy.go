// Curator - Emby Collection Synchronization for MDBList
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package reconcile

import (
	"strings"
	"time"
)

// sortArticles is the closed set of leading "noise" words stripped from
// sort names, matched case-insensitively as a whole leading word. Mirrors
// the sort-name removal defaults Emby itself ships in system.xml, so the
// computed value does not fight the server's own normalization.
var sortArticles = []string{"the", "a", "an", "das", "der", "el", "la"}

// StripLeadingArticle removes a single leading article token from name.
// Only whole-word matches count: "A Collection" becomes "Collection" but
// "Alien Collection" is untouched.
func StripLeadingArticle(name string) string {
	lower := strings.ToLower(name)
	for _, article := range sortArticles {
		if strings.HasPrefix(lower, article+" ") {
			return name[len(article)+1:]
		}
	}
	return name
}

// ComputeSortName evaluates the sort-name policy in strict precedence:
//
//  1. The base is the explicit sort name if configured, else the
//     collection's display name, with one leading article stripped.
//  2. Date-based sorting, when requested and this pass changed membership,
//     prefixes a decreasing recency token ("!<token> <base>") so recently
//     changed collections sort first.
//  3. Otherwise a configured literal prefix is prepended.
//  4. Otherwise no sort name is written and the collection inherits the
//     server's default derivation.
//
// The second return value reports whether a write should happen at all.
func ComputeSortName(spec *ListSpec, membershipChanged bool, now time.Time) (string, bool) {
	base := spec.SortName
	if base == "" {
		base = spec.Name
	}
	base = StripLeadingArticle(base)

	if spec.SortDateBased && membershipChanged {
		return "!" + RecencyToken(now) + " " + base, true
	}
	if spec.SortPrefix != "" {
		return spec.SortPrefix + " " + base, true
	}
	return "", false
}

// ComputeDescription evaluates the description policy. useSourceFlag is
// the global "use list descriptions" switch. Returns the text to write and
// whether to write at all; the description is left untouched when neither
// source applies.
func ComputeDescription(spec *ListSpec, useSourceFlag bool) (string, bool) {
	if useSourceFlag && spec.SourceDescription != "" && spec.Description == "" {
		return StripOuterQuotes(spec.SourceDescription), true
	}
	if spec.Description != "" {
		return StripOuterQuotes(spec.Description), true
	}
	return "", false
}

// StripOuterQuotes removes one matching pair of leading/trailing single or
// double quotes. Inner quotes and unmatched quotes are preserved.
func StripOuterQuotes(s string) string {
	if len(s) < 2 {
		return s
	}
	first, last := s[0], s[len(s)-1]
	if first == last && (first == '"' || first == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}
