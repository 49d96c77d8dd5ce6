// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

// Package presenter coordinates the view, the places repository, the filter
// dialog and the permission gate. Every exported method runs on the dispatch
// loop unless stated otherwise.
package presenter

import (
	"github.com/jcodagnone/nearby/permission"
	"github.com/jcodagnone/nearby/places"
	"github.com/jcodagnone/nearby/spatial"
)

// Messages shown to the user.
const (
	MsgUnavailable = "Unable to search for places right now."
	MsgNoLocation  = "Current location is not available."
)

// View is the presentation surface.
type View interface {
	RenderPlaces(ps []*places.Place)
	ShowMessage(msg string)
}

// StateReader exposes the permission state without the ability to change it.
type StateReader interface {
	State() permission.State
}

// LocationProvider supplies the device position. LastKnownLocation returns
// nil when no fix is available.
type LocationProvider interface {
	LastKnownLocation() *spatial.Point
}

// FixedLocation is a LocationProvider that always reports the same position.
type FixedLocation struct {
	Point *spatial.Point
}

// LastKnownLocation implements LocationProvider.
func (l FixedLocation) LastKnownLocation() *spatial.Point {
	if l.Point == nil {
		return nil
	}

	p := *l.Point

	return &p
}
