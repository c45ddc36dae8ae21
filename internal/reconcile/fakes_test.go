// Curator - Emby Collection Synchronization for MDBList
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tomtom215/curator/internal/models"
	"github.com/tomtom215/curator/internal/sync"
)

// fakeEmby is an in-memory EmbyClientInterface. Collections, membership
// and the IMDb-id library index are plain maps; every mutation is recorded
// so tests can assert on the exact calls made.
type fakeEmby struct {
	collections   map[string]string            // name -> collection id
	members       map[string][]models.EmbyItem // collection id -> items
	libraryByIMDb map[string]string            // imdb id -> library item id
	itemsByID     map[string]models.EmbyItem

	createdNames []string
	added        map[string][]string
	removed      map[string][]string
	properties   map[string]map[string]string // item id -> property -> value
	images       map[string]string
	refreshed    []string

	pingErr       error
	setImageErr   error
	listErr       error
	setImageCalls int
}

var _ sync.EmbyClientInterface = (*fakeEmby)(nil)

func newFakeEmby() *fakeEmby {
	return &fakeEmby{
		collections:   make(map[string]string),
		members:       make(map[string][]models.EmbyItem),
		libraryByIMDb: make(map[string]string),
		itemsByID:     make(map[string]models.EmbyItem),
		added:         make(map[string][]string),
		removed:       make(map[string][]string),
		properties:    make(map[string]map[string]string),
		images:        make(map[string]string),
	}
}

func (f *fakeEmby) Ping(context.Context) error { return f.pingErr }

func (f *fakeEmby) GetSystemInfo(context.Context) (*models.EmbySystemInfo, error) {
	return &models.EmbySystemInfo{ServerName: "fake"}, nil
}

func (f *fakeEmby) GetCollectionID(_ context.Context, name string) (string, error) {
	return f.collections[name], nil
}

func (f *fakeEmby) GetItemsInCollection(_ context.Context, collectionID string, _ []string) ([]models.EmbyItem, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.members[collectionID], nil
}

func (f *fakeEmby) GetItemsByIMDbIDs(_ context.Context, imdbIDs, _ []string) ([]string, error) {
	var ids []string
	for _, imdb := range imdbIDs {
		if itemID, ok := f.libraryByIMDb[imdb]; ok {
			ids = append(ids, itemID)
		}
	}
	return ids, nil
}

// GetItemsBySortNamePrefix scans itemsByID, honoring any ForcedSortName
// written through SetItemProperty over the item's original sort name.
func (f *fakeEmby) GetItemsBySortNamePrefix(_ context.Context, prefix string) ([]models.EmbyItem, error) {
	var matched []models.EmbyItem
	for id, item := range f.itemsByID {
		sortName := item.SortName
		if forced, ok := f.properties[id]["ForcedSortName"]; ok {
			sortName = forced
		}
		if strings.HasPrefix(sortName, prefix) {
			item.SortName = sortName
			matched = append(matched, item)
		}
	}
	return matched, nil
}

func (f *fakeEmby) CreateCollection(_ context.Context, name, firstItemID string) (string, error) {
	id := fmt.Sprintf("coll-%d", len(f.createdNames)+1)
	f.collections[name] = id
	f.createdNames = append(f.createdNames, name)
	f.added[id] = append(f.added[id], firstItemID)
	return id, nil
}

func (f *fakeEmby) AddToCollection(_ context.Context, collectionID string, itemIDs []string) (int, error) {
	f.added[collectionID] = append(f.added[collectionID], itemIDs...)
	return len(itemIDs), nil
}

func (f *fakeEmby) RemoveFromCollection(_ context.Context, collectionID string, itemIDs []string) (int, error) {
	f.removed[collectionID] = append(f.removed[collectionID], itemIDs...)
	return len(itemIDs), nil
}

func (f *fakeEmby) SetItemProperty(_ context.Context, itemID, property, value string) error {
	if f.properties[itemID] == nil {
		f.properties[itemID] = make(map[string]string)
	}
	f.properties[itemID][property] = value
	return nil
}

func (f *fakeEmby) SetImage(_ context.Context, itemID, posterPath string) error {
	f.setImageCalls++
	if f.setImageErr != nil {
		return f.setImageErr
	}
	f.images[itemID] = posterPath
	return nil
}

func (f *fakeEmby) RefreshItem(_ context.Context, itemID string) error {
	f.refreshed = append(f.refreshed, itemID)
	return nil
}

func (f *fakeEmby) GetItem(_ context.Context, itemID string) (*models.EmbyItem, error) {
	item, ok := f.itemsByID[itemID]
	if !ok {
		return nil, errors.New("item not found")
	}
	return &item, nil
}

// fakeMDBList is an in-memory MDBListClientInterface.
type fakeMDBList struct {
	lists      map[int][]models.MDBListItem
	listsByURL map[string][]models.MDBListItem
	ownerLists map[string][]models.MDBListInfo
	myLists    []models.MDBListInfo
	userErr    error
}

var _ sync.MDBListClientInterface = (*fakeMDBList)(nil)

func newFakeMDBList() *fakeMDBList {
	return &fakeMDBList{
		lists:      make(map[int][]models.MDBListItem),
		listsByURL: make(map[string][]models.MDBListItem),
		ownerLists: make(map[string][]models.MDBListInfo),
	}
}

func (f *fakeMDBList) GetUserInfo(context.Context) (*models.MDBListUserInfo, error) {
	if f.userErr != nil {
		return nil, f.userErr
	}
	return &models.MDBListUserInfo{Username: "fake"}, nil
}

func (f *fakeMDBList) GetList(_ context.Context, listID int) ([]models.MDBListItem, error) {
	items, ok := f.lists[listID]
	if !ok {
		return nil, fmt.Errorf("no such list %d", listID)
	}
	return items, nil
}

func (f *fakeMDBList) FindListID(_ context.Context, name, owner string) (int, error) {
	for _, info := range f.ownerLists[owner] {
		if info.Name == name || info.Slug == name {
			return info.ID, nil
		}
	}
	return 0, sync.ErrListNotFound
}

func (f *fakeMDBList) GetListByURL(_ context.Context, listURL string) ([]models.MDBListItem, error) {
	items, ok := f.listsByURL[listURL]
	if !ok {
		return nil, fmt.Errorf("no list at %q", listURL)
	}
	return items, nil
}

func (f *fakeMDBList) GetMyLists(context.Context) ([]models.MDBListInfo, error) {
	return f.myLists, nil
}

// memPosterStore is a map-backed PosterStore.
type memPosterStore struct {
	paths  map[string]string
	getErr error
}

func newMemPosterStore() *memPosterStore {
	return &memPosterStore{paths: make(map[string]string)}
}

func (s *memPosterStore) Get(collectionID string) (string, error) {
	if s.getErr != nil {
		return "", s.getErr
	}
	return s.paths[collectionID], nil
}

func (s *memPosterStore) Set(collectionID, posterPath string) error {
	s.paths[collectionID] = posterPath
	return nil
}
