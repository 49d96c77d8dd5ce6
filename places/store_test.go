// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

package places

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/jcodagnone/nearby/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := sql.Open("duckdb", "")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := NewStore(db)
	require.NoError(t, s.CreateSchema(context.Background()))

	return s
}

func TestStore_CreateSchemaIsIdempotent(t *testing.T) {
	s := setupTestStore(t)
	require.NoError(t, s.CreateSchema(context.Background()))

	n, err := s.CountPlaces(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStore_SaveAndQueryNearby(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	require.NoError(t, s.SavePlaces(ctx, fixturePlaces()))
	require.NoError(t, s.SavePlaces(ctx, []*Place{
		{ID: "pta", Name: "Punta Carretas", Point: spatial.Point{Lat: -34.9240, Lng: -56.1590}, Category: "mall"},
	}))

	n, err := s.CountPlaces(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	// 1.5 km around Plaza Independencia reaches the old town, not Punta Carretas
	res, err := s.QueryNearby(ctx, Query{Position: &spatial.Point{Lat: -34.9066, Lng: -56.1989}, Radius: 1500})
	require.NoError(t, err)

	ids := make([]string, 0, len(res.Places))
	for _, p := range res.Places {
		ids = append(ids, p.ID)
	}

	assert.ElementsMatch(t, []string{"far", "near", "here"}, ids)

	for _, p := range res.Places {
		if p.ID == "near" {
			assert.Equal(t, "cafe", p.Category)
			assert.InDelta(t, -34.9069, p.Point.Lat, 1e-9)
			assert.InDelta(t, -56.2036, p.Point.Lng, 1e-9)
		}
	}
}

func TestStore_QueryNearbyFiltersCategory(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	require.NoError(t, s.SavePlaces(ctx, fixturePlaces()))

	res, err := s.QueryNearby(ctx, Query{
		Position: &spatial.Point{Lat: -34.9066, Lng: -56.1989},
		Radius:   1500,
		Filter:   NewFilterCriteria("Theater", "Café"),
	})
	require.NoError(t, err)

	ids := make([]string, 0, len(res.Places))
	for _, p := range res.Places {
		ids = append(ids, p.ID)
	}

	assert.ElementsMatch(t, []string{"near", "here"}, ids)
}

func TestStore_LargeRadiusUsesBoundingBox(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	require.NoError(t, s.SavePlaces(ctx, []*Place{
		{ID: "mvd", Name: "Montevideo", Point: spatial.Point{Lat: -34.9058, Lng: -56.1913}, Category: "city"},
		{ID: "pde", Name: "Punta del Este", Point: spatial.Point{Lat: -34.9627, Lng: -54.9451}, Category: "city"},
	}))

	_, _, ok := ringFor(150_000)
	require.False(t, ok)

	res, err := s.QueryNearby(ctx, Query{Position: &spatial.Point{Lat: -34.9058, Lng: -56.1913}, Radius: 150_000})
	require.NoError(t, err)
	assert.Len(t, res.Places, 2)

	res, err = s.QueryNearby(ctx, Query{Position: &spatial.Point{Lat: -34.9058, Lng: -56.1913}, Radius: 50_000})
	require.NoError(t, err)
	require.Len(t, res.Places, 1)
	assert.Equal(t, "mvd", res.Places[0].ID)
}

func TestStore_SaveRejectsInvalidPlaces(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	err := s.SavePlaces(ctx, []*Place{{Name: "nameless"}})
	require.ErrorIs(t, err, ErrInvalidArgument)

	err = s.SavePlaces(ctx, []*Place{
		{ID: "ok", Name: "ok", Point: spatial.Point{Lat: 1, Lng: 1}},
		{ID: "bad", Name: "bad", Point: spatial.Point{Lat: 100, Lng: 1}},
	})
	require.ErrorIs(t, err, ErrInvalidArgument)

	n, err := s.CountPlaces(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "a failed batch must be rolled back")
}

func TestRingFor(t *testing.T) {
	res, k, ok := ringFor(500)
	require.True(t, ok)
	assert.Equal(t, 8, res)
	assert.Equal(t, 2, k)

	res, _, ok = ringFor(20_000)
	require.True(t, ok)
	assert.Equal(t, 7, res)
}

func TestStore_RepositoryIntegration(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	require.NoError(t, s.SavePlaces(ctx, fixturePlaces()))

	repo, err := NewRepository(s)
	require.NoError(t, err)

	res, err := repo.Nearby(ctx, &spatial.Point{Lat: -34.9073, Lng: -56.2003}, 1500)
	require.NoError(t, err)
	require.Len(t, res.Places, 3)
	assert.Equal(t, "here", res.Places[0].ID)
	assert.NotNil(t, res.Extent)
}
