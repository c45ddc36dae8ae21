// Curator - Emby Collection Synchronization for MDBList
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package reconcile

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ActiveWindow is a recurring month/day range during which a seasonal list
// is active. The range may wrap the year boundary (e.g. Dec 1 - Jan 7).
// Boundaries are inclusive.
type ActiveWindow struct {
	StartMonth time.Month
	StartDay   int
	EndMonth   time.Month
	EndDay     int
}

var monthsByName = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

// ParseActiveWindow parses an "active between" expression of the form
// "<start> - <end>" or "<start> to <end>", where each endpoint is either
// a month name and day ("Oct 1", "december 24") or month/day digits
// ("10/1"). Returns nil for an empty expression (always active).
func ParseActiveWindow(expr string) (*ActiveWindow, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}

	var parts []string
	if strings.Contains(strings.ToLower(expr), " to ") {
		parts = strings.SplitN(strings.ToLower(expr), " to ", 2)
	} else {
		parts = strings.SplitN(expr, "-", 2)
	}
	if len(parts) != 2 {
		return nil, fmt.Errorf("active window %q: expected two endpoints", expr)
	}

	startMonth, startDay, err := parseMonthDay(parts[0])
	if err != nil {
		return nil, fmt.Errorf("active window %q: %w", expr, err)
	}
	endMonth, endDay, err := parseMonthDay(parts[1])
	if err != nil {
		return nil, fmt.Errorf("active window %q: %w", expr, err)
	}

	return &ActiveWindow{
		StartMonth: startMonth,
		StartDay:   startDay,
		EndMonth:   endMonth,
		EndDay:     endDay,
	}, nil
}

func parseMonthDay(s string) (time.Month, int, error) {
	s = strings.ToLower(strings.TrimSpace(s))

	if before, after, found := strings.Cut(s, "/"); found {
		monthNum, err := strconv.Atoi(strings.TrimSpace(before))
		if err != nil || monthNum < 1 || monthNum > 12 {
			return 0, 0, fmt.Errorf("invalid month in %q", s)
		}
		day, err := parseDay(after)
		if err != nil {
			return 0, 0, err
		}
		return time.Month(monthNum), day, nil
	}

	fields := strings.Fields(s)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("invalid endpoint %q: expected month and day", s)
	}
	month, ok := monthsByName[fields[0]]
	if !ok {
		return 0, 0, fmt.Errorf("unknown month %q", fields[0])
	}
	day, err := parseDay(fields[1])
	if err != nil {
		return 0, 0, err
	}
	return month, day, nil
}

func parseDay(s string) (int, error) {
	day, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || day < 1 || day > 31 {
		return 0, fmt.Errorf("invalid day %q", s)
	}
	return day, nil
}

// Contains reports whether the given moment falls inside the window,
// comparing month/day only. A wrapping window (start after end) covers the
// year boundary.
func (w *ActiveWindow) Contains(now time.Time) bool {
	point := monthDayOrdinal(now.Month(), now.Day())
	start := monthDayOrdinal(w.StartMonth, w.StartDay)
	end := monthDayOrdinal(w.EndMonth, w.EndDay)

	if start <= end {
		return point >= start && point <= end
	}
	// Wraps the year boundary.
	return point >= start || point <= end
}

func monthDayOrdinal(month time.Month, day int) int {
	return int(month)*100 + day
}

// String renders the window for logs.
func (w *ActiveWindow) String() string {
	return fmt.Sprintf("%s %d - %s %d", w.StartMonth, w.StartDay, w.EndMonth, w.EndDay)
}
