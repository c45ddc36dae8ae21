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

// Ensure MDBListCircuitBreakerClient implements MDBListClientInterface
var _ MDBListClientInterface = (*MDBListCircuitBreakerClient)(nil)

// MDBListCircuitBreakerClient wraps MDBListClient with the circuit breaker
// pattern. MDBList enforces daily API quotas, so backing off hard when the
// service degrades also protects the quota from being burned on failures.
type MDBListCircuitBreakerClient struct {
	client *MDBListClient
	cb     *gobreaker.CircuitBreaker[any]
	name   string
}

// NewMDBListCircuitBreakerClient creates an MDBList client wrapped in a
// circuit breaker named "mdblist-api".
func NewMDBListCircuitBreakerClient(baseURL, apiKey string, timeout time.Duration) *MDBListCircuitBreakerClient {
	name := "mdblist-api"
	return &MDBListCircuitBreakerClient{
		client: NewMDBListClient(baseURL, apiKey, timeout),
		cb:     newBreaker(name),
		name:   name,
	}
}

// GetUserInfo retrieves the API user record through the breaker.
func (c *MDBListCircuitBreakerClient) GetUserInfo(ctx context.Context) (*models.MDBListUserInfo, error) {
	result, err := execute(c.cb, c.name, func() (any, error) {
		return c.client.GetUserInfo(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.MDBListUserInfo), nil
}

// GetList retrieves list items through the breaker.
func (c *MDBListCircuitBreakerClient) GetList(ctx context.Context, listID int) ([]models.MDBListItem, error) {
	result, err := execute(c.cb, c.name, func() (any, error) {
		return c.client.GetList(ctx, listID)
	})
	if err != nil {
		return nil, err
	}
	return result.([]models.MDBListItem), nil
}

// FindListID resolves a list by name and owner through the breaker.
func (c *MDBListCircuitBreakerClient) FindListID(ctx context.Context, name, owner string) (int, error) {
	result, err := execute(c.cb, c.name, func() (any, error) {
		return c.client.FindListID(ctx, name, owner)
	})
	if err != nil {
		return 0, err
	}
	return result.(int), nil
}

// GetListByURL retrieves list items by share URL through the breaker.
func (c *MDBListCircuitBreakerClient) GetListByURL(ctx context.Context, listURL string) ([]models.MDBListItem, error) {
	result, err := execute(c.cb, c.name, func() (any, error) {
		return c.client.GetListByURL(ctx, listURL)
	})
	if err != nil {
		return nil, err
	}
	return result.([]models.MDBListItem), nil
}

// GetMyLists retrieves the user's own lists through the breaker.
func (c *MDBListCircuitBreakerClient) GetMyLists(ctx context.Context) ([]models.MDBListInfo, error) {
	result, err := execute(c.cb, c.name, func() (any, error) {
		return c.client.GetMyLists(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.([]models.MDBListInfo), nil
}
