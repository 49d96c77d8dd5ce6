// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

package places

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/jcodagnone/nearby/spatial"
	"github.com/jcodagnone/nearby/utils/textutils"
	"github.com/uber/h3-go/v4"
)

// H3 resolutions indexed by the store, finest last.
var h3Resolutions = []int{6, 7, 8}

// average hexagon edge length in meters per resolution
var h3EdgeLength = map[int]float64{
	6: 3724.532667,
	7: 1406.475763,
	8: 531.414010,
}

// maxRing bounds the grid disk size; larger radii fall back to a bounding box
// scan.
const maxRing = 12

// Store is an embedded DuckDB places source. Every place is indexed by its
// H3 cell at several resolutions so nearby lookups only scan candidate cells.
type Store struct {
	db *sql.DB
}

// NewStore creates a store over db. Call CreateSchema before using it.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateSchema loads the spatial extension and creates the places table.
func (s *Store) CreateSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `INSTALL spatial; LOAD spatial;`); err != nil {
		return fmt.Errorf("loading spatial extension: %w", err)
	}

	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS places (
			id VARCHAR PRIMARY KEY,
			name VARCHAR NOT NULL,
			category VARCHAR NOT NULL,
			address VARCHAR,
			point POINT_2D NOT NULL,
			h3_res6 UBIGINT,
			h3_res7 UBIGINT,
			h3_res8 UBIGINT
		);
	`)
	if err != nil {
		return fmt.Errorf("creating places table: %w", err)
	}

	return nil
}

func cellsOf(p spatial.Point) ([]int64, error) {
	latLng := h3.NewLatLng(p.Lat, p.Lng)
	ret := make([]int64, 0, len(h3Resolutions))

	for _, res := range h3Resolutions {
		cell, err := h3.LatLngToCell(latLng, res)
		if err != nil {
			return nil, fmt.Errorf("error converting to h3 cell at res %d: %w", res, err)
		}

		ret = append(ret, int64(cell))
	}

	return ret, nil
}

// SavePlaces inserts or replaces places in a single transaction. Categories
// are stored normalized.
func (s *Store) SavePlaces(ctx context.Context, ps []*Place) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}

	defer func() {
		if err != nil {
			err = errors.Join(err, tx.Rollback())
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO places(id, name, category, address, point, h3_res6, h3_res7, h3_res8)
		VALUES (?, ?, ?, ?, ST_Point(?, ?), ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range ps {
		if p.ID == "" {
			return fmt.Errorf("place %q has no id: %w", p.Name, ErrInvalidArgument)
		}

		if !p.Point.Valid() {
			return fmt.Errorf("place %s has an invalid point %s: %w", p.ID, p.Point, ErrInvalidArgument)
		}

		cells, err := cellsOf(p.Point)
		if err != nil {
			return err
		}

		var address *string
		if p.Address != "" {
			address = &p.Address
		}

		if _, err := stmt.ExecContext(ctx,
			p.ID,
			p.Name,
			textutils.NormalizeTag(p.Category),
			address,
			p.Point.Lng,
			p.Point.Lat,
			cells[0],
			cells[1],
			cells[2],
		); err != nil {
			return fmt.Errorf("inserting place %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing places: %w", err)
	}

	return nil
}

// CountPlaces returns the number of stored places.
func (s *Store) CountPlaces(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM places").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting places: %w", err)
	}

	return count, nil
}

// ringFor picks the finest resolution whose grid disk covering radius stays
// within maxRing. ok is false when no resolution qualifies.
func ringFor(radius float64) (res, k int, ok bool) {
	for i := len(h3Resolutions) - 1; i >= 0; i-- {
		res = h3Resolutions[i]
		// neighbour centers are edge*sqrt(3) apart; one extra ring for the
		// origin offset inside its own cell
		k = int(math.Ceil(radius/(h3EdgeLength[res]*math.Sqrt(3)))) + 1
		if k <= maxRing {
			return res, k, true
		}
	}

	return 0, 0, false
}

// candidateFilter returns the SQL condition and arguments selecting the rows
// that may lie within radius of center.
func candidateFilter(center spatial.Point, radius float64) (string, []any, error) {
	res, k, ok := ringFor(radius)
	if !ok {
		e := spatial.BoundsAround(center, radius)

		return "ST_X(point) BETWEEN ? AND ? AND ST_Y(point) BETWEEN ? AND ?",
			[]any{e.MinX, e.MaxX, e.MinY, e.MaxY}, nil
	}

	origin, err := h3.LatLngToCell(h3.NewLatLng(center.Lat, center.Lng), res)
	if err != nil {
		return "", nil, fmt.Errorf("error converting to h3 cell at res %d: %w", res, err)
	}

	disk, err := h3.GridDisk(origin, k)
	if err != nil {
		return "", nil, fmt.Errorf("computing grid disk: %w", err)
	}

	args := make([]any, len(disk))
	for i, c := range disk {
		args[i] = int64(c)
	}

	return fmt.Sprintf("h3_res%d IN (%s)", res, placeholders(len(disk))), args, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// QueryNearby implements Client.
func (s *Store) QueryNearby(ctx context.Context, q Query) (*SearchResult, error) {
	if q.Position == nil {
		return nil, &RepositoryError{Kind: KindNoLocation, Message: "no position supplied"}
	}

	center := *q.Position

	cond, args, err := candidateFilter(center, q.Radius)
	if err != nil {
		return nil, err
	}

	query := "SELECT id, name, category, COALESCE(address, ''), point FROM places WHERE " + cond

	if tags := q.Filter.Tags(); len(tags) > 0 {
		query += fmt.Sprintf(" AND category IN (%s)", placeholders(len(tags)))
		for _, t := range tags {
			args = append(args, t)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying places: %w", err)
	}
	defer rows.Close()

	ret := make([]*Place, 0)

	for rows.Next() {
		p := &Place{}
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Address, &p.Point); err != nil {
			return nil, fmt.Errorf("scanning place: %w", err)
		}

		if center.HaversineDistance(&p.Point) > q.Radius {
			continue
		}

		ret = append(ret, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating places: %w", err)
	}

	return &SearchResult{Places: ret}, nil
}
