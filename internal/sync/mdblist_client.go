// Curator - Emby Collection Synchronization for MDBList
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

/*
mdblist_client.go - MDBList REST API Client

Implements the list-reading subset of the MDBList API: user info (used as
a connectivity probe), list items by id, list lookup by name and owner,
list items by share URL, and the caller's own lists.

API Reference: https://docs.mdblist.com/docs/api
*/

package sync

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/curator/internal/models"
)

// DefaultMDBListBaseURL is the public MDBList API endpoint.
const DefaultMDBListBaseURL = "https://api.mdblist.com"

// MDBListClientInterface defines the MDBList API operations the engine
// consumes. Both MDBListClient and MDBListCircuitBreakerClient implement
// this interface.
type MDBListClientInterface interface {
	GetUserInfo(ctx context.Context) (*models.MDBListUserInfo, error)
	GetList(ctx context.Context, listID int) ([]models.MDBListItem, error)
	FindListID(ctx context.Context, name, owner string) (int, error)
	GetListByURL(ctx context.Context, listURL string) ([]models.MDBListItem, error)
	GetMyLists(ctx context.Context) ([]models.MDBListInfo, error)
}

// Ensure MDBListClient implements MDBListClientInterface
var _ MDBListClientInterface = (*MDBListClient)(nil)

// ErrListNotFound is returned when a name+owner lookup matches no list.
var ErrListNotFound = fmt.Errorf("mdblist: list not found")

// MDBListClient provides access to the MDBList REST API.
type MDBListClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewMDBListClient creates a new MDBList API client. baseURL is normally
// DefaultMDBListBaseURL; tests point it at a local server. A zero timeout
// means 30s.
func NewMDBListClient(baseURL, apiKey string, timeout time.Duration) *MDBListClient {
	baseURL = strings.TrimSuffix(baseURL, "/")
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &MDBListClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// GetUserInfo retrieves the API user record. Used as the connectivity
// pre-check at the start of each cycle.
func (c *MDBListClient) GetUserInfo(ctx context.Context) (*models.MDBListUserInfo, error) {
	var info models.MDBListUserInfo
	if err := c.getJSON(ctx, c.baseURL+"/user", &info); err != nil {
		return nil, fmt.Errorf("mdblist user info: %w", err)
	}
	return &info, nil
}

// GetList retrieves the items of a list by its numeric id.
func (c *MDBListClient) GetList(ctx context.Context, listID int) ([]models.MDBListItem, error) {
	endpoint := fmt.Sprintf("%s/lists/%d/items", c.baseURL, listID)

	var items []models.MDBListItem
	if err := c.getJSON(ctx, endpoint, &items); err != nil {
		return nil, fmt.Errorf("mdblist list %d items: %w", listID, err)
	}
	return items, nil
}

// FindListID resolves a list name and owner username to a list id.
// Returns ErrListNotFound when the owner has no list with that name
// (matched against both the display name and the URL slug).
func (c *MDBListClient) FindListID(ctx context.Context, name, owner string) (int, error) {
	endpoint := fmt.Sprintf("%s/lists/user/%s", c.baseURL, url.PathEscape(owner))

	var lists []models.MDBListInfo
	if err := c.getJSON(ctx, endpoint, &lists); err != nil {
		return 0, fmt.Errorf("mdblist lists for user %q: %w", owner, err)
	}

	for i := range lists {
		if strings.EqualFold(lists[i].Name, name) || strings.EqualFold(lists[i].Slug, name) {
			return lists[i].ID, nil
		}
	}
	return 0, fmt.Errorf("%w: %q by %q", ErrListNotFound, name, owner)
}

// GetListByURL retrieves the items of a list by its public share URL,
// using the /json suffix MDBList exposes on list pages.
func (c *MDBListClient) GetListByURL(ctx context.Context, listURL string) ([]models.MDBListItem, error) {
	endpoint := strings.TrimSuffix(listURL, "/") + "/json"

	var items []models.MDBListItem
	if err := c.getJSON(ctx, endpoint, &items); err != nil {
		return nil, fmt.Errorf("mdblist list at %q: %w", listURL, err)
	}
	return items, nil
}

// GetMyLists retrieves the API user's own lists.
func (c *MDBListClient) GetMyLists(ctx context.Context) ([]models.MDBListInfo, error) {
	var lists []models.MDBListInfo
	if err := c.getJSON(ctx, c.baseURL+"/lists/user", &lists); err != nil {
		return nil, fmt.Errorf("mdblist my lists: %w", err)
	}
	return lists, nil
}

// getJSON performs a GET request with the apikey query parameter appended
// and decodes the JSON response.
func (c *MDBListClient) getJSON(ctx context.Context, rawURL string, out any) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	query := parsed.Query()
	query.Set("apikey", c.apiKey)
	parsed.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w (status 404)", ErrListNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, readBodyForError(resp.Body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
