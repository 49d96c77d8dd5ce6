// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

// Package places fetches points of interest around a position through a
// pluggable data-source Client, and shares a single Repository across the
// application.
package places

import (
	"slices"
	"sort"
	"strings"

	"github.com/jcodagnone/nearby/spatial"
	"github.com/jcodagnone/nearby/utils/textutils"
)

// DefaultRadius is used when a query does not specify a positive radius.
const DefaultRadius = 1000.0 // meters

// Place is a point of interest. Places are treated as immutable once a
// client hands them over.
type Place struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Point    spatial.Point `json:"point"`
	Category string        `json:"category"`
	Address  string        `json:"address,omitempty"`
	// Distance in meters from the query position. Filled by the Repository.
	Distance float64 `json:"distance"`
}

// SearchResult is the ordered outcome of a query. Extent is nil only when
// Places is empty.
type SearchResult struct {
	Places []*Place        `json:"places"`
	Extent *spatial.Extent `json:"extent"`
	// Attributions the data source requires to be displayed with the results.
	Attributions []string `json:"attributions,omitempty"`
}

// Query describes a nearby lookup for a data-source client.
type Query struct {
	Position *spatial.Point
	Radius   float64
	Filter   FilterCriteria
}

// FilterCriteria is a set of normalized category tags. The zero value means
// no filtering.
type FilterCriteria struct {
	tags map[string]struct{}
}

// NewFilterCriteria builds criteria from raw tags, normalizing them.
func NewFilterCriteria(tags ...string) FilterCriteria {
	f := FilterCriteria{}

	for _, t := range tags {
		n := textutils.NormalizeTag(t)
		if n == "" {
			continue
		}

		if f.tags == nil {
			f.tags = make(map[string]struct{})
		}

		f.tags[n] = struct{}{}
	}

	return f
}

// IsEmpty reports whether no category is selected.
func (f FilterCriteria) IsEmpty() bool {
	return len(f.tags) == 0
}

// Has reports whether category, once normalized, is part of the criteria.
func (f FilterCriteria) Has(category string) bool {
	_, ok := f.tags[textutils.NormalizeTag(category)]

	return ok
}

// Matches reports whether a place passes the filter. Everything matches
// empty criteria.
func (f FilterCriteria) Matches(p *Place) bool {
	return f.IsEmpty() || f.Has(p.Category)
}

// Tags returns the selected tags sorted alphabetically.
func (f FilterCriteria) Tags() []string {
	ret := make([]string, 0, len(f.tags))
	for t := range f.tags {
		ret = append(ret, t)
	}

	slices.Sort(ret)

	return ret
}

// With returns a copy of the criteria with tag toggled on or off.
func (f FilterCriteria) With(tag string, selected bool) FilterCriteria {
	tags := f.Tags()
	n := textutils.NormalizeTag(tag)

	if selected {
		tags = append(tags, n)
	} else {
		tags = slices.DeleteFunc(tags, func(s string) bool { return s == n })
	}

	return NewFilterCriteria(tags...)
}

// String renders the criteria as a comma separated list.
func (f FilterCriteria) String() string {
	return strings.Join(f.Tags(), ",")
}

// newResult sorts places by distance and computes their extent.
func newResult(ps []*Place, attributions []string) *SearchResult {
	sort.SliceStable(ps, func(i, j int) bool {
		return ps[i].Distance < ps[j].Distance
	})

	points := make([]spatial.Point, len(ps))
	for i, p := range ps {
		points[i] = p.Point
	}

	return &SearchResult{
		Places:       ps,
		Extent:       spatial.ExtentOf(points...),
		Attributions: attributions,
	}
}
