// Curator - Emby Collection Synchronization for MDBList
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package sync

import (
	"context"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/curator/internal/models"
)

// Ensure EmbyCircuitBreakerClient implements EmbyClientInterface
var _ EmbyClientInterface = (*EmbyCircuitBreakerClient)(nil)

// EmbyCircuitBreakerClient wraps EmbyClient with the circuit breaker
// pattern, preventing request pile-up when the Emby server is down or
// slow. The engine sees breaker rejections as ordinary call failures.
type EmbyCircuitBreakerClient struct {
	client *EmbyClient
	cb     *gobreaker.CircuitBreaker[any]
	name   string
}

// NewEmbyCircuitBreakerClient creates an Emby client wrapped in a circuit
// breaker named "emby-api".
func NewEmbyCircuitBreakerClient(baseURL, apiKey, userID string, timeout time.Duration) *EmbyCircuitBreakerClient {
	name := "emby-api"
	return &EmbyCircuitBreakerClient{
		client: NewEmbyClient(baseURL, apiKey, userID, timeout),
		cb:     newBreaker(name),
		name:   name,
	}
}

// Ping tests connectivity through the breaker.
func (c *EmbyCircuitBreakerClient) Ping(ctx context.Context) error {
	_, err := execute(c.cb, c.name, func() (any, error) {
		return nil, c.client.Ping(ctx)
	})
	return err
}

// GetSystemInfo retrieves server info through the breaker.
func (c *EmbyCircuitBreakerClient) GetSystemInfo(ctx context.Context) (*models.EmbySystemInfo, error) {
	result, err := execute(c.cb, c.name, func() (any, error) {
		return c.client.GetSystemInfo(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.EmbySystemInfo), nil
}

// GetCollectionID resolves a collection name through the breaker.
func (c *EmbyCircuitBreakerClient) GetCollectionID(ctx context.Context, name string) (string, error) {
	result, err := execute(c.cb, c.name, func() (any, error) {
		return c.client.GetCollectionID(ctx, name)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// GetItemsInCollection lists collection members through the breaker.
func (c *EmbyCircuitBreakerClient) GetItemsInCollection(ctx context.Context, collectionID string, fields []string) ([]models.EmbyItem, error) {
	result, err := execute(c.cb, c.name, func() (any, error) {
		return c.client.GetItemsInCollection(ctx, collectionID, fields)
	})
	if err != nil {
		return nil, err
	}
	return result.([]models.EmbyItem), nil
}

// GetItemsByIMDbIDs translates IMDb ids through the breaker.
func (c *EmbyCircuitBreakerClient) GetItemsByIMDbIDs(ctx context.Context, imdbIDs, mediatypes []string) ([]string, error) {
	result, err := execute(c.cb, c.name, func() (any, error) {
		return c.client.GetItemsByIMDbIDs(ctx, imdbIDs, mediatypes)
	})
	if err != nil {
		return nil, err
	}
	return result.([]string), nil
}

// GetItemsBySortNamePrefix scans sort names through the breaker.
func (c *EmbyCircuitBreakerClient) GetItemsBySortNamePrefix(ctx context.Context, prefix string) ([]models.EmbyItem, error) {
	result, err := execute(c.cb, c.name, func() (any, error) {
		return c.client.GetItemsBySortNamePrefix(ctx, prefix)
	})
	if err != nil {
		return nil, err
	}
	return result.([]models.EmbyItem), nil
}

// CreateCollection creates a collection through the breaker.
func (c *EmbyCircuitBreakerClient) CreateCollection(ctx context.Context, name, firstItemID string) (string, error) {
	result, err := execute(c.cb, c.name, func() (any, error) {
		return c.client.CreateCollection(ctx, name, firstItemID)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// AddToCollection adds items through the breaker. On failure the partial
// success count from the underlying client is lost to the breaker's
// any-typed result, so a rejected/failed call reports zero added; the next
// pass retries the remainder.
func (c *EmbyCircuitBreakerClient) AddToCollection(ctx context.Context, collectionID string, itemIDs []string) (int, error) {
	result, err := execute(c.cb, c.name, func() (any, error) {
		count, err := c.client.AddToCollection(ctx, collectionID, itemIDs)
		if err != nil {
			return count, err
		}
		return count, nil
	})
	if err != nil {
		return 0, err
	}
	return result.(int), nil
}

// RemoveFromCollection removes items through the breaker.
func (c *EmbyCircuitBreakerClient) RemoveFromCollection(ctx context.Context, collectionID string, itemIDs []string) (int, error) {
	result, err := execute(c.cb, c.name, func() (any, error) {
		count, err := c.client.RemoveFromCollection(ctx, collectionID, itemIDs)
		if err != nil {
			return count, err
		}
		return count, nil
	})
	if err != nil {
		return 0, err
	}
	return result.(int), nil
}

// SetItemProperty writes a metadata property through the breaker.
func (c *EmbyCircuitBreakerClient) SetItemProperty(ctx context.Context, itemID, property, value string) error {
	_, err := execute(c.cb, c.name, func() (any, error) {
		return nil, c.client.SetItemProperty(ctx, itemID, property, value)
	})
	return err
}

// SetImage uploads a primary image through the breaker.
func (c *EmbyCircuitBreakerClient) SetImage(ctx context.Context, itemID, posterPath string) error {
	_, err := execute(c.cb, c.name, func() (any, error) {
		return nil, c.client.SetImage(ctx, itemID, posterPath)
	})
	return err
}

// RefreshItem requests a metadata refresh through the breaker.
func (c *EmbyCircuitBreakerClient) RefreshItem(ctx context.Context, itemID string) error {
	_, err := execute(c.cb, c.name, func() (any, error) {
		return nil, c.client.RefreshItem(ctx, itemID)
	})
	return err
}

// GetItem fetches an item through the breaker.
func (c *EmbyCircuitBreakerClient) GetItem(ctx context.Context, itemID string) (*models.EmbyItem, error) {
	result, err := execute(c.cb, c.name, func() (any, error) {
		return c.client.GetItem(ctx, itemID)
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.EmbyItem), nil
}
