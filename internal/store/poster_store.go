// Curator - Emby Collection Synchronization for MDBList
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

// Package store provides the poster-path cache, the only state Curator
// persists across restarts. It remembers the last poster path applied per
// collection so unchanged posters are never re-uploaded.
package store

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// posterKeyPrefix namespaces poster entries in the shared BadgerDB.
const posterKeyPrefix = "poster:"

// PosterStore is the engine-facing cache interface. Satisfied by
// *BadgerPosterStore.
type PosterStore interface {
	// Get returns the last applied poster path for a collection, or ""
	// when none has been recorded.
	Get(collectionID string) (string, error)

	// Set records the poster path applied to a collection.
	Set(collectionID, posterPath string) error
}

// Ensure BadgerPosterStore implements PosterStore
var _ PosterStore = (*BadgerPosterStore)(nil)

// BadgerPosterStore implements PosterStore on BadgerDB.
type BadgerPosterStore struct {
	db *badger.DB
}

// NewBadgerPosterStore wraps an open BadgerDB handle. The caller owns the
// handle's lifecycle.
func NewBadgerPosterStore(db *badger.DB) *BadgerPosterStore {
	return &BadgerPosterStore{db: db}
}

// OpenBadger opens (creating if necessary) the BadgerDB at dir with
// logging disabled; badger's default logger writes unstructured lines
// that would interleave with zerolog output.
func OpenBadger(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", dir, err)
	}
	return db, nil
}

// Get returns the cached poster path for a collection id.
func (s *BadgerPosterStore) Get(collectionID string) (string, error) {
	var path string

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(posterKeyPrefix + collectionID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil // no entry: path stays ""
		}
		if err != nil {
			return fmt.Errorf("get poster entry: %w", err)
		}
		return item.Value(func(val []byte) error {
			path = string(val)
			return nil
		})
	})
	if err != nil {
		return "", err
	}
	return path, nil
}

// Set records the poster path applied to a collection id.
func (s *BadgerPosterStore) Set(collectionID, posterPath string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		key := []byte(posterKeyPrefix + collectionID)
		if err := txn.Set(key, []byte(posterPath)); err != nil {
			return fmt.Errorf("set poster entry: %w", err)
		}
		return nil
	})
}
