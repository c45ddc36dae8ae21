// Curator - Emby Collection Synchronization for MDBList
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package reconcile

import (
	"fmt"
	"time"
)

// recencyEpochCeiling is the Unix second the recency encoding counts down
// toward: 100_000_000_000 (~year 5138). Collections whose membership
// changed more recently get a smaller remaining-seconds value and so sort
// lexicographically first under Emby's ascending sort-name order. The
// value is clamped at zero past the ceiling rather than going negative.
const recencyEpochCeiling int64 = 100_000_000_000

// recencyTokenWidth is the fixed digit width keeping tokens
// lexicographically comparable. 100_000_000_000 - 1 has 12 digits.
const recencyTokenWidth = 12

// RecencyToken encodes "now" as a fixed-width decreasing numeric string
// for sort-name prefixing.
func RecencyToken(now time.Time) string {
	remaining := recencyEpochCeiling - now.Unix()
	if remaining < 0 {
		remaining = 0
	}
	return fmt.Sprintf("%0*d", recencyTokenWidth, remaining)
}
