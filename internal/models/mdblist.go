// Curator - Emby Collection Synchronization for MDBList
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package models

// MDBListUserInfo is the response from the /user endpoint, used only as a
// connectivity probe and for logging the API quota.
type MDBListUserInfo struct {
	Username    string `json:"username"`
	APIRequests int    `json:"api_requests"`
	APILimits   int    `json:"api_requests_count"`
}

// MDBListInfo describes a list as returned by /lists/user and list lookups.
type MDBListInfo struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Mediatype   string `json:"mediatype"`
	Items       int    `json:"items"`
}

// MDBListItem is a single list member. Mediatype is "movie" or "show".
type MDBListItem struct {
	ID        int    `json:"id"`
	Rank      int    `json:"rank"`
	Title     string `json:"title"`
	IMDbID    string `json:"imdb_id"`
	Mediatype string `json:"mediatype"`
}
