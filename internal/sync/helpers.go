// Curator - Emby Collection Synchronization for MDBList
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package sync

import "io"

// maxErrorBodyBytes bounds how much of an error response body is read for
// inclusion in error messages.
const maxErrorBodyBytes = 2048

// readBodyForError reads a truncated response body for error reporting.
// Read failures are swallowed; the status code is the primary signal.
func readBodyForError(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, maxErrorBodyBytes))
	if err != nil {
		return ""
	}
	return string(data)
}
