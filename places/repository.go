// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

package places

import (
	"context"
	"errors"
	"fmt"

	"github.com/jcodagnone/nearby/spatial"
)

// Repository fetches nearby places. Every error it returns is a
// *RepositoryError.
type Repository interface {
	// Nearby returns every place within radius meters of pos.
	Nearby(ctx context.Context, pos *spatial.Point, radius float64) (*SearchResult, error)

	// Filtered returns the places within radius meters of pos whose category
	// is part of criteria. Empty criteria behaves like Nearby.
	Filtered(ctx context.Context, pos *spatial.Point, radius float64, criteria FilterCriteria) (*SearchResult, error)
}

// clientRepository keeps no state across calls, so it is safe for concurrent
// use as long as the client is.
type clientRepository struct {
	client Client
}

// NewRepository creates a repository backed by client.
func NewRepository(client Client) (Repository, error) {
	if isNil(client) {
		return nil, fmt.Errorf("places client is nil: %w", ErrInvalidArgument)
	}

	return &clientRepository{client: client}, nil
}

func (r *clientRepository) Nearby(ctx context.Context, pos *spatial.Point, radius float64) (*SearchResult, error) {
	return r.Filtered(ctx, pos, radius, FilterCriteria{})
}

func (r *clientRepository) Filtered(
	ctx context.Context,
	pos *spatial.Point,
	radius float64,
	criteria FilterCriteria,
) (*SearchResult, error) {
	if pos == nil {
		return nil, &RepositoryError{Kind: KindNoLocation, Message: "no position supplied"}
	}

	if !pos.Valid() {
		return nil, &RepositoryError{Kind: KindNoLocation, Message: fmt.Sprintf("position out of range: %s", pos)}
	}

	if radius <= 0 {
		radius = DefaultRadius
	}

	center := *pos

	res, err := r.client.QueryNearby(ctx, Query{Position: &center, Radius: radius, Filter: criteria})
	if err != nil {
		var repoErr *RepositoryError
		if errors.As(err, &repoErr) {
			return nil, repoErr
		}

		return nil, unavailable("querying places", err)
	}

	if res == nil {
		return newResult(make([]*Place, 0), nil), nil
	}

	// Clients may ignore the filter, apply it again.
	ps := make([]*Place, 0, len(res.Places))

	for _, p := range res.Places {
		if p == nil || !criteria.Matches(p) {
			continue
		}

		cp := *p
		cp.Distance = center.HaversineDistance(&cp.Point)

		ps = append(ps, &cp)
	}

	return newResult(ps, res.Attributions), nil
}
