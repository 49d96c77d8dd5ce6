// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

package places

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strconv"

	"github.com/google/uuid"
	"github.com/jcodagnone/nearby/spatial"
)

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	ID       json.RawMessage `json:"id"`
	Geometry *struct {
		Type        string    `json:"type"`
		Coordinates []float64 `json:"coordinates"`
	} `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// property returns the first non empty string property among keys.
func (f *feature) property(keys ...string) string {
	for _, k := range keys {
		if s, ok := f.Properties[k].(string); ok && s != "" {
			return s
		}
	}

	return ""
}

func (f *feature) id() string {
	if len(f.ID) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(f.ID, &s); err == nil {
		return s
	}

	var n float64
	if err := json.Unmarshal(f.ID, &n); err == nil {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}

	return ""
}

// ReadGeoJSON decodes a FeatureCollection of points into places. Features
// that are not valid points are skipped. Features without an id get a random
// one.
func ReadGeoJSON(r io.Reader) ([]*Place, error) {
	var fc featureCollection
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return nil, fmt.Errorf("decoding GeoJSON: %w", err)
	}

	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("expected a FeatureCollection, got %q", fc.Type)
	}

	ret := make([]*Place, 0, len(fc.Features))
	skipped := 0

	for i := range fc.Features {
		f := &fc.Features[i]
		if f.Geometry == nil || f.Geometry.Type != "Point" || len(f.Geometry.Coordinates) < 2 {
			skipped++

			continue
		}

		p := &Place{
			ID:       f.id(),
			Name:     f.property("name"),
			Category: f.property("category", "amenity", "type"),
			Address:  f.property("address", "addr:street"),
			Point:    spatial.Point{Lat: f.Geometry.Coordinates[1], Lng: f.Geometry.Coordinates[0]},
		}

		if !p.Point.Valid() {
			skipped++

			continue
		}

		if p.ID == "" {
			p.ID = uuid.NewString()
		}

		ret = append(ret, p)
	}

	if skipped > 0 {
		log.Printf("GeoJSON: skipped %d features that are not valid points", skipped)
	}

	return ret, nil
}
