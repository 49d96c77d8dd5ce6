// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

package places

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
)

// RepositoryCache holds at most one Repository for its whole lifetime. The
// zero value is ready to use. The application's composition root owns one and
// hands the repository to whoever needs it.
type RepositoryCache struct {
	mu   sync.Mutex
	repo atomic.Pointer[Repository]
	// constructor, replaceable in tests
	newRepository func(Client) (Repository, error)
}

// GetRepository returns the shared repository, creating it from client on the
// first successful call. Later calls ignore client (but still reject nil,
// including a nil pointer wrapped in the interface).
func (c *RepositoryCache) GetRepository(client Client) (Repository, error) {
	if isNil(client) {
		return nil, fmt.Errorf("places client is required: %w", ErrInvalidArgument)
	}

	if r := c.repo.Load(); r != nil {
		return *r, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring the lock
	if r := c.repo.Load(); r != nil {
		return *r, nil
	}

	build := c.newRepository
	if build == nil {
		build = NewRepository
	}

	repo, err := build(client)
	if err != nil {
		return nil, fmt.Errorf("creating repository: %w", err)
	}

	c.repo.Store(&repo)

	return repo, nil
}

var shared RepositoryCache

// Shared returns the process-wide repository, creating it from client on the
// first call.
func Shared(client Client) (Repository, error) {
	return shared.GetRepository(client)
}

func isNil(client Client) bool {
	if client == nil {
		return true
	}

	switch v := reflect.ValueOf(client); v.Kind() {
	case reflect.Pointer, reflect.Func, reflect.Map, reflect.Slice, reflect.Chan, reflect.Interface:
		return v.IsNil()
	default:
		return false
	}
}
