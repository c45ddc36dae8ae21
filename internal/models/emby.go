// Curator - Emby Collection Synchronization for MDBList
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

// Package models holds the wire types exchanged with the Emby and MDBList
// APIs. Field names and JSON tags follow each API's own casing (PascalCase
// for Emby, snake_case for MDBList).
package models

// EmbySystemInfo represents Emby server system information.
type EmbySystemInfo struct {
	ServerName      string `json:"ServerName"`
	Version         string `json:"Version"`
	ID              string `json:"Id"`
	OperatingSystem string `json:"OperatingSystem"`
}

// EmbyItem is a single library item as returned by the /Items endpoints.
// Only the fields requested via the Fields query parameter are populated.
type EmbyItem struct {
	ID              string            `json:"Id"`
	Name            string            `json:"Name"`
	Type            string            `json:"Type"`
	ProviderIDs     map[string]string `json:"ProviderIds,omitempty"`
	SortName        string            `json:"SortName,omitempty"`
	PremiereDate    string            `json:"PremiereDate,omitempty"`
	DateCreated     string            `json:"DateCreated,omitempty"`
	CommunityRating float64           `json:"CommunityRating,omitempty"`
}

// IMDbID returns the item's IMDb cross-reference id, if any.
// Emby is inconsistent about provider key casing across versions.
func (i *EmbyItem) IMDbID() string {
	for _, key := range []string{"Imdb", "IMDB", "imdb"} {
		if id, ok := i.ProviderIDs[key]; ok {
			return id
		}
	}
	return ""
}

// EmbyItemsPage is the envelope around item listings.
type EmbyItemsPage struct {
	Items            []EmbyItem `json:"Items"`
	TotalRecordCount int        `json:"TotalRecordCount"`
}

// EmbyCollection is the response from collection creation.
type EmbyCollection struct {
	ID string `json:"Id"`
}
