// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

package presenter

import (
	"strconv"

	"github.com/jcodagnone/nearby/spatial"
)

// Keys of MapRequest.Values.
const (
	KeyMinX = "MIN_X"
	KeyMinY = "MIN_Y"
	KeyMaxX = "MAX_X"
	KeyMaxY = "MAX_Y"
	KeySR   = "SR"
)

// MapRequest is the viewport hint handed to the map view. When HasExtent is
// false the map falls back to its default view.
type MapRequest struct {
	HasExtent        bool    `json:"has_extent"`
	MinX             float64 `json:"min_x"`
	MinY             float64 `json:"min_y"`
	MaxX             float64 `json:"max_x"`
	MaxY             float64 `json:"max_y"`
	SpatialReference string  `json:"spatial_reference,omitempty"`
}

// NewMapRequest builds a request from e, which may be nil.
func NewMapRequest(e *spatial.Extent) MapRequest {
	if e == nil {
		return MapRequest{}
	}

	return MapRequest{
		HasExtent:        true,
		MinX:             e.MinX,
		MinY:             e.MinY,
		MaxX:             e.MaxX,
		MaxY:             e.MaxY,
		SpatialReference: e.SpatialReference,
	}
}

// Values flattens the request into string extras. It is empty without an
// extent.
func (r MapRequest) Values() map[string]string {
	if !r.HasExtent {
		return map[string]string{}
	}

	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

	return map[string]string{
		KeyMinX: f(r.MinX),
		KeyMinY: f(r.MinY),
		KeyMaxX: f(r.MaxX),
		KeyMaxY: f(r.MaxY),
		KeySR:   r.SpatialReference,
	}
}
