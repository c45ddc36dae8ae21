// Curator - Emby Collection Synchronization for MDBList
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

/*
emby_client.go - Emby REST API Client

Implements the collection-management subset of the Emby REST API: locating
and creating collections, listing and mutating their members, item property
writes, primary image upload, and metadata refresh requests.

API Reference: https://dev.emby.media/doc/restapi/index.html
*/

package sync

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/curator/internal/models"
)

// addBatchSize bounds how many item ids are sent per collection mutation
// or provider-id lookup request, keeping URLs well under server limits.
const addBatchSize = 50

// EmbyClientInterface defines the Emby API operations the engine consumes.
// Both EmbyClient and EmbyCircuitBreakerClient implement this interface.
type EmbyClientInterface interface {
	Ping(ctx context.Context) error
	GetSystemInfo(ctx context.Context) (*models.EmbySystemInfo, error)
	GetCollectionID(ctx context.Context, name string) (string, error)
	GetItemsInCollection(ctx context.Context, collectionID string, fields []string) ([]models.EmbyItem, error)
	GetItemsByIMDbIDs(ctx context.Context, imdbIDs, mediatypes []string) ([]string, error)
	GetItemsBySortNamePrefix(ctx context.Context, prefix string) ([]models.EmbyItem, error)
	CreateCollection(ctx context.Context, name string, firstItemID string) (string, error)
	AddToCollection(ctx context.Context, collectionID string, itemIDs []string) (int, error)
	RemoveFromCollection(ctx context.Context, collectionID string, itemIDs []string) (int, error)
	SetItemProperty(ctx context.Context, itemID, property, value string) error
	SetImage(ctx context.Context, itemID, posterPath string) error
	RefreshItem(ctx context.Context, itemID string) error
	GetItem(ctx context.Context, itemID string) (*models.EmbyItem, error)
}

// Ensure EmbyClient implements EmbyClientInterface
var _ EmbyClientInterface = (*EmbyClient)(nil)

// EmbyClient provides access to the Emby REST API.
type EmbyClient struct {
	baseURL    string
	apiKey     string
	userID     string // user scope for item metadata reads
	httpClient *http.Client
}

// NewEmbyClient creates a new Emby API client.
//
// Parameters:
//   - baseURL: Emby server URL (e.g., http://localhost:8096)
//   - apiKey: Emby API key from Admin Dashboard > API Keys
//   - userID: user ID for user-scoped metadata reads
//   - timeout: per-request HTTP timeout; zero means 30s
func NewEmbyClient(baseURL, apiKey, userID string, timeout time.Duration) *EmbyClient {
	// Normalize URL (remove trailing slash)
	baseURL = strings.TrimSuffix(baseURL, "/")
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &EmbyClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		userID:  userID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Ping tests connectivity to the Emby server.
func (c *EmbyClient) Ping(ctx context.Context) error {
	resp, err := c.doRequest(ctx, http.MethodGet, "/System/Ping", nil, nil)
	if err != nil {
		return fmt.Errorf("emby ping failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("emby ping returned status %d", resp.StatusCode)
	}
	return nil
}

// GetSystemInfo retrieves Emby server system information.
func (c *EmbyClient) GetSystemInfo(ctx context.Context) (*models.EmbySystemInfo, error) {
	var info models.EmbySystemInfo
	if err := c.getJSON(ctx, "/System/Info", nil, &info); err != nil {
		return nil, fmt.Errorf("emby system info: %w", err)
	}
	return &info, nil
}

// GetCollectionID resolves a collection (BoxSet) display name to its
// server-assigned id. Returns an empty id when no collection with that
// exact name exists; collection ids are never cached across passes.
func (c *EmbyClient) GetCollectionID(ctx context.Context, name string) (string, error) {
	params := url.Values{}
	params.Set("IncludeItemTypes", "BoxSet")
	params.Set("Recursive", "true")
	params.Set("SearchTerm", name)

	var page models.EmbyItemsPage
	if err := c.getJSON(ctx, "/Items", params, &page); err != nil {
		return "", fmt.Errorf("emby collection lookup for %q: %w", name, err)
	}

	// SearchTerm matches loosely; require the exact display name.
	for i := range page.Items {
		if page.Items[i].Name == name {
			return page.Items[i].ID, nil
		}
	}
	return "", nil
}

// GetItemsInCollection lists the members of a collection. The fields
// parameter selects which optional attributes are populated (e.g.
// ProviderIds, PremiereDate, DateCreated, CommunityRating).
func (c *EmbyClient) GetItemsInCollection(ctx context.Context, collectionID string, fields []string) ([]models.EmbyItem, error) {
	params := url.Values{}
	params.Set("ParentId", collectionID)
	if len(fields) > 0 {
		params.Set("Fields", strings.Join(fields, ","))
	}

	var page models.EmbyItemsPage
	if err := c.getJSON(ctx, "/Items", params, &page); err != nil {
		return nil, fmt.Errorf("emby items in collection %s: %w", collectionID, err)
	}
	return page.Items, nil
}

// GetItemsByIMDbIDs translates IMDb ids to Emby item ids, batched. Items
// not present in the library are silently absent from the result; the
// mediatypes hints (aligned with imdbIDs where available) narrow the item
// types searched.
func (c *EmbyClient) GetItemsByIMDbIDs(ctx context.Context, imdbIDs, mediatypes []string) ([]string, error) {
	if len(imdbIDs) == 0 {
		return nil, nil
	}

	itemTypes := embyItemTypes(mediatypes)

	var localIDs []string
	seen := make(map[string]struct{}, len(imdbIDs))

	for start := 0; start < len(imdbIDs); start += addBatchSize {
		end := min(start+addBatchSize, len(imdbIDs))

		providerIDs := make([]string, 0, end-start)
		for _, id := range imdbIDs[start:end] {
			providerIDs = append(providerIDs, "imdb."+id)
		}

		params := url.Values{}
		params.Set("Recursive", "true")
		params.Set("IncludeItemTypes", itemTypes)
		params.Set("AnyProviderIdEquals", strings.Join(providerIDs, ","))

		var page models.EmbyItemsPage
		if err := c.getJSON(ctx, "/Items", params, &page); err != nil {
			return localIDs, fmt.Errorf("emby provider id lookup: %w", err)
		}

		for i := range page.Items {
			if _, dup := seen[page.Items[i].ID]; dup {
				continue
			}
			seen[page.Items[i].ID] = struct{}{}
			localIDs = append(localIDs, page.Items[i].ID)
		}
	}

	return localIDs, nil
}

// GetItemsBySortNamePrefix lists library movies and series whose sort name
// starts with prefix. The /Items endpoint has no sort-name filter, so the
// library is listed with the SortName field and filtered here.
func (c *EmbyClient) GetItemsBySortNamePrefix(ctx context.Context, prefix string) ([]models.EmbyItem, error) {
	params := url.Values{}
	params.Set("Recursive", "true")
	params.Set("IncludeItemTypes", "Movie,Series")
	params.Set("Fields", "SortName")

	var page models.EmbyItemsPage
	if err := c.getJSON(ctx, "/Items", params, &page); err != nil {
		return nil, fmt.Errorf("emby sort name scan: %w", err)
	}

	var matched []models.EmbyItem
	for i := range page.Items {
		if strings.HasPrefix(page.Items[i].SortName, prefix) {
			matched = append(matched, page.Items[i])
		}
	}
	return matched, nil
}

// CreateCollection creates a new collection containing firstItemID and
// returns the new collection id. The Emby API requires at least one member
// at creation time.
func (c *EmbyClient) CreateCollection(ctx context.Context, name, firstItemID string) (string, error) {
	params := url.Values{}
	params.Set("Name", name)
	params.Set("Ids", firstItemID)

	resp, err := c.doRequest(ctx, http.MethodPost, "/Collections", params, nil)
	if err != nil {
		return "", fmt.Errorf("emby create collection %q: %w", name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("emby create collection %q returned status %d: %s", name, resp.StatusCode, readBodyForError(resp.Body))
	}

	var created models.EmbyCollection
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("failed to decode emby create collection response: %w", err)
	}
	return created.ID, nil
}

// AddToCollection adds items to a collection in batches and returns the
// number of items successfully added. A failed batch stops processing and
// is reported alongside the count accumulated so far; the next pass will
// retry whatever is still missing.
func (c *EmbyClient) AddToCollection(ctx context.Context, collectionID string, itemIDs []string) (int, error) {
	return c.mutateCollection(ctx, collectionID, itemIDs, http.MethodPost)
}

// RemoveFromCollection removes items from a collection in batches and
// returns the number of items successfully removed.
func (c *EmbyClient) RemoveFromCollection(ctx context.Context, collectionID string, itemIDs []string) (int, error) {
	return c.mutateCollection(ctx, collectionID, itemIDs, http.MethodDelete)
}

func (c *EmbyClient) mutateCollection(ctx context.Context, collectionID string, itemIDs []string, method string) (int, error) {
	if len(itemIDs) == 0 {
		return 0, nil
	}

	endpoint := fmt.Sprintf("/Collections/%s/Items", collectionID)
	applied := 0

	for start := 0; start < len(itemIDs); start += addBatchSize {
		end := min(start+addBatchSize, len(itemIDs))
		batch := itemIDs[start:end]

		params := url.Values{}
		params.Set("Ids", strings.Join(batch, ","))

		resp, err := c.doRequest(ctx, method, endpoint, params, nil)
		if err != nil {
			return applied, fmt.Errorf("emby collection %s %s: %w", collectionID, method, err)
		}
		status := resp.StatusCode
		body := ""
		if status != http.StatusNoContent && status != http.StatusOK {
			body = readBodyForError(resp.Body)
		}
		_ = resp.Body.Close()

		if status != http.StatusNoContent && status != http.StatusOK {
			return applied, fmt.Errorf("emby collection %s %s returned status %d: %s", collectionID, method, status, body)
		}
		applied += len(batch)
	}

	return applied, nil
}

// GetItem fetches a single item with its user-scoped metadata.
func (c *EmbyClient) GetItem(ctx context.Context, itemID string) (*models.EmbyItem, error) {
	var item models.EmbyItem
	endpoint := fmt.Sprintf("/Users/%s/Items/%s", c.userID, itemID)
	if err := c.getJSON(ctx, endpoint, nil, &item); err != nil {
		return nil, fmt.Errorf("emby item %s: %w", itemID, err)
	}
	return &item, nil
}

// SetItemProperty writes one metadata property on an item. The Emby update
// endpoint replaces the whole metadata document, so the current document is
// fetched, the single property replaced, and the result posted back.
func (c *EmbyClient) SetItemProperty(ctx context.Context, itemID, property, value string) error {
	endpoint := fmt.Sprintf("/Users/%s/Items/%s", c.userID, itemID)

	resp, err := c.doRequest(ctx, http.MethodGet, endpoint, nil, nil)
	if err != nil {
		return fmt.Errorf("emby fetch item %s for update: %w", itemID, err)
	}

	var document map[string]any
	if resp.StatusCode != http.StatusOK {
		body := readBodyForError(resp.Body)
		_ = resp.Body.Close()
		return fmt.Errorf("emby fetch item %s returned status %d: %s", itemID, resp.StatusCode, body)
	}
	err = json.NewDecoder(resp.Body).Decode(&document)
	_ = resp.Body.Close()
	if err != nil {
		return fmt.Errorf("failed to decode emby item %s: %w", itemID, err)
	}

	document[property] = value

	payload, err := json.Marshal(document)
	if err != nil {
		return fmt.Errorf("failed to encode emby item %s: %w", itemID, err)
	}

	updateEndpoint := fmt.Sprintf("/Items/%s", itemID)
	resp, err = c.doRequest(ctx, http.MethodPost, updateEndpoint, nil, &jsonBody{data: payload})
	if err != nil {
		return fmt.Errorf("emby update item %s: %w", itemID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("emby update item %s returned status %d: %s", itemID, resp.StatusCode, readBodyForError(resp.Body))
	}
	return nil
}

// SetImage uploads the primary image for an item. posterPath is either an
// http(s) URL or a local file path; the image bytes are base64-encoded in
// the request body as the Emby image upload endpoint requires.
func (c *EmbyClient) SetImage(ctx context.Context, itemID, posterPath string) error {
	data, contentType, err := c.loadImage(ctx, posterPath)
	if err != nil {
		return fmt.Errorf("emby load poster %q: %w", posterPath, err)
	}

	encoded := base64.StdEncoding.EncodeToString(data)
	endpoint := fmt.Sprintf("/Items/%s/Images/Primary", itemID)

	resp, err := c.doRequest(ctx, http.MethodPost, endpoint, nil, &jsonBody{
		data:        []byte(encoded),
		contentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("emby set image for %s: %w", itemID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("emby set image for %s returned status %d: %s", itemID, resp.StatusCode, readBodyForError(resp.Body))
	}
	return nil
}

// RefreshItem requests a full metadata refresh for an item.
func (c *EmbyClient) RefreshItem(ctx context.Context, itemID string) error {
	params := url.Values{}
	params.Set("MetadataRefreshMode", "FullRefresh")
	params.Set("ImageRefreshMode", "FullRefresh")
	params.Set("ReplaceAllMetadata", "true")
	params.Set("ReplaceAllImages", "false")

	endpoint := fmt.Sprintf("/Items/%s/Refresh", itemID)
	resp, err := c.doRequest(ctx, http.MethodPost, endpoint, params, nil)
	if err != nil {
		return fmt.Errorf("emby refresh item %s: %w", itemID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("emby refresh item %s returned status %d: %s", itemID, resp.StatusCode, readBodyForError(resp.Body))
	}
	return nil
}

// loadImage fetches poster bytes from a URL or reads a local file.
func (c *EmbyClient) loadImage(ctx context.Context, posterPath string) ([]byte, string, error) {
	if strings.HasPrefix(posterPath, "http://") || strings.HasPrefix(posterPath, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, posterPath, http.NoBody)
		if err != nil {
			return nil, "", fmt.Errorf("create image request: %w", err)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, "", fmt.Errorf("image download failed: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			return nil, "", fmt.Errorf("image download returned status %d", resp.StatusCode)
		}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, "", fmt.Errorf("image download read failed: %w", err)
		}
		contentType := resp.Header.Get("Content-Type")
		if contentType == "" {
			contentType = imageContentType(posterPath)
		}
		return data, contentType, nil
	}

	data, err := os.ReadFile(posterPath)
	if err != nil {
		return nil, "", fmt.Errorf("image file read failed: %w", err)
	}
	return data, imageContentType(posterPath), nil
}

// imageContentType guesses a content type from the file extension.
func imageContentType(path string) string {
	switch {
	case strings.HasSuffix(strings.ToLower(path), ".png"):
		return "image/png"
	case strings.HasSuffix(strings.ToLower(path), ".webp"):
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

// embyItemTypes maps MDBList mediatype hints to Emby IncludeItemTypes.
func embyItemTypes(mediatypes []string) string {
	var movie, series bool
	for _, mt := range mediatypes {
		switch strings.ToLower(mt) {
		case "movie":
			movie = true
		case "show", "series":
			series = true
		}
	}

	switch {
	case movie && !series:
		return "Movie"
	case series && !movie:
		return "Series"
	default:
		// No usable hints: search both types.
		return "Movie,Series"
	}
}

// getJSON performs a GET request and decodes a JSON response body.
func (c *EmbyClient) getJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	resp, err := c.doRequest(ctx, http.MethodGet, endpoint, params, nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, readBodyForError(resp.Body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// jsonBody carries an optional request body and content type.
type jsonBody struct {
	data        []byte
	contentType string
}

// doRequest performs an HTTP request against the Emby API with the API key
// header set.
func (c *EmbyClient) doRequest(ctx context.Context, method, endpoint string, params url.Values, body *jsonBody) (*http.Response, error) {
	fullURL := c.baseURL + endpoint
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		reader = strings.NewReader(string(body.data))
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Emby-Token", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		contentType := body.contentType
		if contentType == "" {
			contentType = "application/json"
		}
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}
