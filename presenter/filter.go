// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

package presenter

import (
	"log"

	"github.com/jcodagnone/nearby/places"
)

// DefaultCategories are offered by the filter dialog.
var DefaultCategories = []string{"bar", "cafe", "restaurant", "lodging", "pharmacy", "gas_station"}

// FilterListener receives the selection of an applied dialog.
type FilterListener interface {
	OnFilterApplied(criteria places.FilterCriteria)
}

// FilterPresenter opens filter dialogs.
type FilterPresenter struct {
	listener   FilterListener
	categories []string
}

// NewFilterPresenter creates a presenter offering categories, or
// DefaultCategories when empty.
func NewFilterPresenter(listener FilterListener, categories []string) *FilterPresenter {
	if len(categories) == 0 {
		categories = DefaultCategories
	}

	return &FilterPresenter{listener: listener, categories: categories}
}

// Categories returns the offered categories.
func (f *FilterPresenter) Categories() []string {
	return append([]string(nil), f.categories...)
}

// Open returns a new dialog whose selection starts as seed. Nothing carries
// over from previous dialogs.
func (f *FilterPresenter) Open(seed places.FilterCriteria) *Dialog {
	return &Dialog{listener: f.listener, selection: seed}
}

// Dialog is one filter dialog session.
type Dialog struct {
	listener  FilterListener
	selection places.FilterCriteria
	closed    bool
}

// Toggle flips tag and reports whether it is now selected. Closed dialogs
// ignore it.
func (d *Dialog) Toggle(tag string) bool {
	selected := !d.selection.Has(tag)
	d.Set(tag, selected)

	return d.selection.Has(tag)
}

// Set selects or deselects tag.
func (d *Dialog) Set(tag string, selected bool) {
	if d.closed {
		return
	}

	d.selection = d.selection.With(tag, selected)
}

// Selection returns the current selection.
func (d *Dialog) Selection() places.FilterCriteria {
	return d.selection
}

// Closed reports whether Close was called.
func (d *Dialog) Closed() bool {
	return d.closed
}

// Close ends the dialog. When applied the listener gets the selection;
// otherwise nothing happens. Only the first call counts.
func (d *Dialog) Close(applied bool) {
	if d.closed {
		return
	}

	d.closed = true

	if !applied {
		log.Printf("filter dialog cancelled")

		return
	}

	d.listener.OnFilterApplied(d.selection)
}
