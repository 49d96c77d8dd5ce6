// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

package presenter

import (
	"context"
	"log"
	"sync"

	"github.com/jcodagnone/nearby/dispatch"
	"github.com/jcodagnone/nearby/places"
	"github.com/jcodagnone/nearby/spatial"
)

// SearchPresenter issues place searches and applies their results. Queries
// run off the loop; completions are posted back and only the most recently
// issued one is applied.
type SearchPresenter struct {
	ctx      context.Context
	loop     *dispatch.Loop
	repo     places.Repository
	gate     StateReader
	view     View
	location LocationProvider
	radius   float64

	criteria places.FilterCriteria
	last     *places.SearchResult
	issued   uint64

	mu       sync.Mutex
	inflight int
	idle     chan struct{}
}

// NewSearchPresenter creates a presenter. ctx bounds every query it issues. A
// non positive radius means places.DefaultRadius.
func NewSearchPresenter(
	ctx context.Context,
	loop *dispatch.Loop,
	repo places.Repository,
	gate StateReader,
	view View,
	location LocationProvider,
	radius float64,
) *SearchPresenter {
	return &SearchPresenter{
		ctx:      ctx,
		loop:     loop,
		repo:     repo,
		gate:     gate,
		view:     view,
		location: location,
		radius:   radius,
	}
}

// Start issues a search with the current criteria. It does nothing unless
// the location permission is granted.
func (p *SearchPresenter) Start() {
	if err := p.gate.State().Err(); err != nil {
		log.Printf("search not started: %v", err)

		return
	}

	p.issued++
	seq := p.issued
	pos := p.location.LastKnownLocation()
	criteria := p.criteria

	log.Printf("search #%d issued (filter %q)", seq, criteria)

	p.track()

	go func() {
		res, err := p.repo.Filtered(p.ctx, pos, p.radius, criteria)

		if !p.loop.Post(func() {
			defer p.release()
			p.complete(seq, res, err)
		}) {
			p.release()
		}
	}()
}

func (p *SearchPresenter) track() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.inflight == 0 {
		p.idle = make(chan struct{})
	}

	p.inflight++
}

func (p *SearchPresenter) release() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.inflight--
	if p.inflight == 0 {
		close(p.idle)
	}
}

func (p *SearchPresenter) complete(seq uint64, res *places.SearchResult, err error) {
	if seq != p.issued {
		log.Printf("search #%d discarded, #%d is the latest", seq, p.issued)

		return
	}

	if err != nil {
		log.Printf("search #%d failed: %v", seq, err)

		if places.IsNoLocation(err) {
			p.view.ShowMessage(MsgNoLocation)
		} else {
			p.view.ShowMessage(MsgUnavailable)
		}

		return
	}

	log.Printf("search #%d returned %d places", seq, len(res.Places))

	p.last = res
	p.view.RenderPlaces(res.Places)
}

// OnFilterApplied replaces the criteria and searches again. The last applied
// criteria wins.
func (p *SearchPresenter) OnFilterApplied(criteria places.FilterCriteria) {
	p.criteria = criteria
	p.Start()
}

// Criteria returns the criteria the next search will use.
func (p *SearchPresenter) Criteria() places.FilterCriteria {
	return p.criteria
}

// LastResult returns the last applied result, nil before the first success.
func (p *SearchPresenter) LastResult() *places.SearchResult {
	return p.last
}

// ExtentForNearbyPlaces returns a copy of the extent of the last applied
// result, or nil when there is none. It never triggers a search.
func (p *SearchPresenter) ExtentForNearbyPlaces() *spatial.Extent {
	if p.last == nil || p.last.Extent == nil {
		return nil
	}

	e := *p.last.Extent

	return &e
}

// MapRequest builds the hand-off for the map view from the last extent.
func (p *SearchPresenter) MapRequest() MapRequest {
	return NewMapRequest(p.ExtentForNearbyPlaces())
}

// Wait blocks until every search issued so far has been applied or discarded
// on the loop, or until the loop stops. Safe to call from any goroutine but
// the loop's.
func (p *SearchPresenter) Wait() {
	p.mu.Lock()
	if p.inflight == 0 {
		p.mu.Unlock()

		return
	}

	idle := p.idle
	p.mu.Unlock()

	select {
	case <-idle:
	case <-p.loop.Stopped():
	}
}
