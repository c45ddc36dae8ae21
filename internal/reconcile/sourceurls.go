// Curator - Emby Collection Synchronization for MDBList
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package reconcile

import (
	"errors"
	"fmt"
	"strings"
)

// SplitSourceURLs parses a comma-joined multi-URL source field into
// distinct URLs. Configurations may omit the repeated scheme after the
// first URL:
//
//	https://mdblist.com/lists/a/one,https://mdblist.com/lists/a/two
//	https://mdblist.com/lists/a/one, //mdblist.com/lists/a/two
//
// Splitting happens on ",http" boundaries so commas inside a URL path do
// not break it apart; the scheme is reconstructed on every entry after
// the first. Whitespace inside the field is discarded.
func SplitSourceURLs(field string) ([]string, error) {
	compact := strings.Join(strings.Fields(field), "")
	if compact == "" {
		return nil, errors.New("empty source field")
	}

	parts := strings.Split(compact, ",http")
	urls := make([]string, 0, len(parts))

	for i, part := range parts {
		if i > 0 {
			part = "http" + part
		}
		part = strings.TrimSuffix(part, ",")
		if part == "" {
			continue
		}
		if !strings.HasPrefix(part, "http://") && !strings.HasPrefix(part, "https://") {
			return nil, fmt.Errorf("source url %q does not start with http:// or https://", part)
		}
		urls = append(urls, part)
	}

	if len(urls) == 0 {
		return nil, errors.New("no urls in source field")
	}
	return urls, nil
}
