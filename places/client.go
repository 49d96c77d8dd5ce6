// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

package places

import "context"

// Client is a data source able to look up places around a position.
// Implementations own their transport details, including timeouts.
type Client interface {
	QueryNearby(ctx context.Context, q Query) (*SearchResult, error)
}

// ClientFunc adapts a function to the Client interface.
type ClientFunc func(ctx context.Context, q Query) (*SearchResult, error)

// QueryNearby calls f.
func (f ClientFunc) QueryNearby(ctx context.Context, q Query) (*SearchResult, error) {
	return f(ctx, q)
}
