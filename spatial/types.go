// Copyright 2025 The Nearby Authors
//
// SPDX-License-Identifier: Apache-2.0
package spatial

import (
	"database/sql/driver"
	"fmt"
	"math"
)

const earthRadius = 6371e3 // meters

// WGS84 is the well-known text of the spatial reference every Point is
// expressed in.
const WGS84 = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`

// Point represents a geographical point with latitude and longitude.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// String returns a string representation of the Point.
func (p Point) String() string {
	return fmt.Sprintf("POINT(%f %f)", p.Lng, p.Lat)
}

// Valid reports whether the point lies within the WGS84 coordinate ranges.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) {
		return false
	}

	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Value implements the driver.Valuer interface for database serialization.
func (p Point) Value() (driver.Value, error) {
	return p.String(), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (p *Point) Scan(value interface{}) error {
	if value == nil {
		p.Lat, p.Lng = 0, 0

		return nil
	}

	switch v := value.(type) {
	case []byte:
		// The format from DuckDB is "POINT (lng lat)"
		_, err := fmt.Sscanf(string(v), "POINT (%f %f)", &p.Lng, &p.Lat)

		return err
	case string:
		_, err := fmt.Sscanf(v, "POINT (%f %f)", &p.Lng, &p.Lat)

		return err
	case map[string]interface{}:
		x, okX := v["x"].(float64)
		y, okY := v["y"].(float64)

		if !okX || !okY {
			return fmt.Errorf("spatial: invalid map for point: expected 'x' and 'y' float64 fields, got %+v", v)
		}

		p.Lng = x
		p.Lat = y

		return nil
	default:
		return fmt.Errorf("spatial: unsupported type for Point scan: %T", value)
	}
}

// HaversineDistance calculates the distance between two points on Earth in meters.
func (p *Point) HaversineDistance(other *Point) float64 {
	lat1 := p.Lat * math.Pi / 180
	lat2 := other.Lat * math.Pi / 180
	dLat := (other.Lat - p.Lat) * math.Pi / 180
	dLng := (other.Lng - p.Lng) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}

// Extent is an axis-aligned bounding box. X is longitude and Y latitude.
type Extent struct {
	MinX             float64 `json:"min_x"`
	MinY             float64 `json:"min_y"`
	MaxX             float64 `json:"max_x"`
	MaxY             float64 `json:"max_y"`
	SpatialReference string  `json:"spatial_reference"`
}

// ExtentOf returns the bounding extent covering every point, or nil when
// there are no points.
func ExtentOf(points ...Point) *Extent {
	if len(points) == 0 {
		return nil
	}

	e := &Extent{
		MinX:             points[0].Lng,
		MinY:             points[0].Lat,
		MaxX:             points[0].Lng,
		MaxY:             points[0].Lat,
		SpatialReference: WGS84,
	}

	for _, p := range points[1:] {
		e.MinX = math.Min(e.MinX, p.Lng)
		e.MinY = math.Min(e.MinY, p.Lat)
		e.MaxX = math.Max(e.MaxX, p.Lng)
		e.MaxY = math.Max(e.MaxY, p.Lat)
	}

	return e
}

// Contains reports whether p lies inside the extent, borders included.
func (e *Extent) Contains(p Point) bool {
	return p.Lng >= e.MinX && p.Lng <= e.MaxX && p.Lat >= e.MinY && p.Lat <= e.MaxY
}

// Center returns the middle point of the extent.
func (e *Extent) Center() Point {
	return Point{Lat: (e.MinY + e.MaxY) / 2, Lng: (e.MinX + e.MaxX) / 2}
}

// BoundsAround returns the extent enclosing a circle of radius meters
// centered at p. Longitudes are clamped at the antimeridian.
func BoundsAround(p Point, radius float64) *Extent {
	dLat := radius / earthRadius * 180 / math.Pi

	cos := math.Cos(p.Lat * math.Pi / 180)

	dLng := 180.0
	if cos > 1e-9 {
		dLng = math.Min(180, dLat/cos)
	}

	return &Extent{
		MinX:             math.Max(-180, p.Lng-dLng),
		MinY:             math.Max(-90, p.Lat-dLat),
		MaxX:             math.Min(180, p.Lng+dLng),
		MaxY:             math.Min(90, p.Lat+dLat),
		SpatialReference: WGS84,
	}
}
