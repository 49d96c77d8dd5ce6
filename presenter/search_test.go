// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

package presenter

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jcodagnone/nearby/dispatch"
	"github.com/jcodagnone/nearby/permission"
	"github.com/jcodagnone/nearby/places"
	"github.com/jcodagnone/nearby/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var here = &spatial.Point{Lat: -34.9066, Lng: -56.1989}

var (
	brasilero = &places.Place{ID: "brasilero", Name: "Café Brasilero", Category: "cafe", Point: spatial.Point{Lat: -34.9069, Lng: -56.2036}}
	mercado   = &places.Place{ID: "mercado", Name: "Mercado del Puerto", Category: "restaurant", Point: spatial.Point{Lat: -34.9066, Lng: -56.2130}}
	hacha     = &places.Place{ID: "hacha", Name: "Bar Hacha", Category: "bar", Point: spatial.Point{Lat: -34.9071, Lng: -56.2040}}
)

type clientReply struct {
	res *places.SearchResult
	err error
}

type pendingCall struct {
	query   places.Query
	release chan clientReply
}

func (c *pendingCall) reply(ps ...*places.Place) {
	c.release <- clientReply{res: &places.SearchResult{Places: ps}}
}

func (c *pendingCall) fail(err error) {
	c.release <- clientReply{err: err}
}

// scriptedClient blocks every query until the test replies to it.
type scriptedClient struct {
	calls chan *pendingCall
}

func newScriptedClient() *scriptedClient {
	return &scriptedClient{calls: make(chan *pendingCall, 16)}
}

func (c *scriptedClient) QueryNearby(_ context.Context, q places.Query) (*places.SearchResult, error) {
	call := &pendingCall{query: q, release: make(chan clientReply, 1)}
	c.calls <- call
	r := <-call.release

	return r.res, r.err
}

func (c *scriptedClient) next(t *testing.T) *pendingCall {
	t.Helper()

	select {
	case call := <-c.calls:
		return call
	case <-time.After(2 * time.Second):
		t.Fatal("no query was issued")

		return nil
	}
}

type fixedState permission.State

func (s fixedState) State() permission.State { return permission.State(s) }

// recordingView is only touched on the loop.
type recordingView struct {
	renders  [][]*places.Place
	messages []string
}

func (v *recordingView) RenderPlaces(ps []*places.Place) { v.renders = append(v.renders, ps) }
func (v *recordingView) ShowMessage(msg string)          { v.messages = append(v.messages, msg) }

func (v *recordingView) lastIDs() []string {
	if len(v.renders) == 0 {
		return nil
	}

	ids := []string{}
	for _, p := range v.renders[len(v.renders)-1] {
		ids = append(ids, p.ID)
	}

	return ids
}

type searchFixture struct {
	loop      *dispatch.Loop
	client    *scriptedClient
	view      *recordingView
	presenter *SearchPresenter
}

func newSearchFixture(t *testing.T, state permission.State, location *spatial.Point) *searchFixture {
	t.Helper()

	loop := dispatch.New()
	loop.Start(context.Background())
	t.Cleanup(loop.Stop)

	client := newScriptedClient()
	repo, err := places.NewRepository(client)
	require.NoError(t, err)

	view := &recordingView{}

	return &searchFixture{
		loop:      loop,
		client:    client,
		view:      view,
		presenter: NewSearchPresenter(context.Background(), loop, repo, fixedState(state), view, FixedLocation{Point: location}, 1500),
	}
}

// waitRenders waits until the view rendered n times.
func (f *searchFixture) waitRenders(t *testing.T, n int) {
	t.Helper()

	require.Eventually(t, func() bool {
		var got int

		f.loop.Sync(func() { got = len(f.view.renders) })

		return got == n
	}, 2*time.Second, 5*time.Millisecond)
}

// do runs fn on the loop.
func (f *searchFixture) do(t *testing.T, fn func()) {
	t.Helper()
	require.True(t, f.loop.Sync(fn))
}

func TestSearchPresenter_NotGrantedNeverQueries(t *testing.T) {
	for _, state := range []permission.State{permission.Unrequested, permission.RationaleNeeded, permission.Requested, permission.Denied} {
		t.Run(state.String(), func(t *testing.T) {
			f := newSearchFixture(t, state, here)

			f.do(t, f.presenter.Start)
			f.do(t, func() { f.presenter.OnFilterApplied(places.NewFilterCriteria("cafe")) })
			f.presenter.Wait()

			assert.Empty(t, f.client.calls)
			f.do(t, func() {
				assert.Empty(t, f.view.renders)
				assert.Empty(t, f.view.messages)
				assert.Nil(t, f.presenter.ExtentForNearbyPlaces())
			})
		})
	}
}

func TestSearchPresenter_RendersAndStoresExtent(t *testing.T) {
	f := newSearchFixture(t, permission.Granted, here)

	f.do(t, func() {
		assert.Nil(t, f.presenter.ExtentForNearbyPlaces())
		assert.False(t, f.presenter.MapRequest().HasExtent)
	})

	f.do(t, f.presenter.Start)

	call := f.client.next(t)
	assert.Equal(t, *here, *call.query.Position)
	assert.Equal(t, 1500.0, call.query.Radius)
	call.reply(mercado, brasilero)
	f.presenter.Wait()

	f.do(t, func() {
		assert.Equal(t, []string{"brasilero", "mercado"}, f.view.lastIDs())

		want := &spatial.Extent{MinX: -56.2130, MinY: -34.9069, MaxX: -56.2036, MaxY: -34.9066, SpatialReference: spatial.WGS84}
		if diff := cmp.Diff(want, f.presenter.ExtentForNearbyPlaces()); diff != "" {
			t.Errorf("extent mismatch (-want +got):\n%s", diff)
		}

		req := f.presenter.MapRequest()
		assert.True(t, req.HasExtent)
		assert.Equal(t, "-56.213", req.Values()[KeyMinX])
	})
}

func TestSearchPresenter_LatestIssuedWins(t *testing.T) {
	f := newSearchFixture(t, permission.Granted, here)

	f.do(t, f.presenter.Start)
	first := f.client.next(t)

	f.do(t, f.presenter.Start)
	second := f.client.next(t)

	second.reply(hacha)
	f.waitRenders(t, 1)

	first.reply(mercado)
	f.presenter.Wait()

	f.do(t, func() {
		require.Len(t, f.view.renders, 1, "the stale completion must not render")
		assert.Equal(t, []string{"hacha"}, f.view.lastIDs())
		assert.InDelta(t, hacha.Point.Lng, f.presenter.ExtentForNearbyPlaces().MinX, 1e-12)
	})
}

func TestSearchPresenter_StaleFailureIsDiscarded(t *testing.T) {
	f := newSearchFixture(t, permission.Granted, here)

	f.do(t, f.presenter.Start)
	first := f.client.next(t)

	f.do(t, f.presenter.Start)
	second := f.client.next(t)

	second.reply(hacha)
	first.fail(errors.New("timeout"))
	f.presenter.Wait()

	f.do(t, func() {
		assert.Empty(t, f.view.messages)
		assert.Equal(t, []string{"hacha"}, f.view.lastIDs())
	})
}

func TestSearchPresenter_FailureKeepsPreviousResult(t *testing.T) {
	f := newSearchFixture(t, permission.Granted, here)

	f.do(t, f.presenter.Start)
	f.client.next(t).reply(brasilero)
	f.presenter.Wait()

	var before *spatial.Extent

	f.do(t, func() { before = f.presenter.ExtentForNearbyPlaces() })
	require.NotNil(t, before)

	f.do(t, f.presenter.Start)
	f.client.next(t).fail(errors.New("connection reset"))
	f.presenter.Wait()

	f.do(t, func() {
		assert.Equal(t, []string{MsgUnavailable}, f.view.messages)
		assert.Len(t, f.view.renders, 1)
		assert.Equal(t, before, f.presenter.ExtentForNearbyPlaces())
	})
}

func TestSearchPresenter_NoLocation(t *testing.T) {
	f := newSearchFixture(t, permission.Granted, nil)

	f.do(t, f.presenter.Start)
	f.presenter.Wait()

	assert.Empty(t, f.client.calls)
	f.do(t, func() {
		assert.Equal(t, []string{MsgNoLocation}, f.view.messages)
		assert.Nil(t, f.presenter.ExtentForNearbyPlaces())
	})
}

func TestSearchPresenter_EmptyResultHasNoExtent(t *testing.T) {
	f := newSearchFixture(t, permission.Granted, here)

	f.do(t, f.presenter.Start)
	f.client.next(t).reply()
	f.presenter.Wait()

	f.do(t, func() {
		require.Len(t, f.view.renders, 1)
		assert.Empty(t, f.view.renders[0])
		assert.Nil(t, f.presenter.ExtentForNearbyPlaces())
		assert.Empty(t, f.presenter.MapRequest().Values())
	})
}

// A filter applied while an unfiltered search is in flight shows cafes only,
// whatever order the two completions arrive in.
func TestSearchPresenter_FilterAppliedDuringSearch(t *testing.T) {
	for _, filteredFirst := range []bool{true, false} {
		name := "unfiltered completes last"
		if !filteredFirst {
			name = "filtered completes last"
		}

		t.Run(name, func(t *testing.T) {
			f := newSearchFixture(t, permission.Granted, here)
			filters := NewFilterPresenter(f.presenter, nil)

			f.do(t, f.presenter.Start)
			unfiltered := f.client.next(t)
			assert.True(t, unfiltered.query.Filter.IsEmpty())

			f.do(t, func() {
				d := filters.Open(f.presenter.Criteria())
				d.Toggle("cafe")
				d.Close(true)
			})

			filtered := f.client.next(t)
			assert.Equal(t, []string{"cafe"}, filtered.query.Filter.Tags())

			if filteredFirst {
				filtered.reply(brasilero)
				f.waitRenders(t, 1)
				unfiltered.reply(brasilero, mercado, hacha)
			} else {
				unfiltered.reply(brasilero, mercado, hacha)
				filtered.reply(brasilero)
			}

			f.presenter.Wait()

			f.do(t, func() {
				assert.Equal(t, []string{"brasilero"}, f.view.lastIDs())

				for _, render := range f.view.renders {
					for _, p := range render {
						assert.Equal(t, "cafe", p.Category)
					}
				}
			})
		})
	}
}

func returnsWithin(t *testing.T, d time.Duration, fn func()) {
	t.Helper()

	done := make(chan struct{})

	go func() {
		defer close(done)
		fn()
	}()

	select {
	case <-done:
	case <-time.After(d):
		t.Fatal("call did not return")
	}
}

func TestSearchPresenter_WaitReturnsWhenLoopStops(t *testing.T) {
	loop := dispatch.New()

	client := places.ClientFunc(func(context.Context, places.Query) (*places.SearchResult, error) {
		return &places.SearchResult{Places: []*places.Place{brasilero}}, nil
	})
	repo, err := places.NewRepository(client)
	require.NoError(t, err)

	view := &recordingView{}
	p := NewSearchPresenter(context.Background(), loop, repo, fixedState(permission.Granted), view, FixedLocation{Point: here}, 0)

	// the loop never runs, so the completion is queued and then dropped
	p.Start()
	loop.Stop()

	returnsWithin(t, 2*time.Second, p.Wait)
	assert.Empty(t, view.renders)
}

func TestSearchPresenter_ConcurrentStartAndWait(t *testing.T) {
	loop := dispatch.New()
	loop.Start(context.Background())
	t.Cleanup(loop.Stop)

	client := places.ClientFunc(func(context.Context, places.Query) (*places.SearchResult, error) {
		return &places.SearchResult{Places: []*places.Place{hacha}}, nil
	})
	repo, err := places.NewRepository(client)
	require.NoError(t, err)

	p := NewSearchPresenter(context.Background(), loop, repo, fixedState(permission.Granted), &recordingView{}, FixedLocation{Point: here}, 0)

	const callers = 16

	var wg sync.WaitGroup

	for range callers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for range 20 {
				assert.True(t, loop.Sync(p.Start))
				p.Wait()
			}
		}()
	}

	returnsWithin(t, 5*time.Second, wg.Wait)

	var last *places.SearchResult

	require.True(t, loop.Sync(func() { last = p.LastResult() }))
	require.NotNil(t, last)
	assert.Equal(t, "hacha", last.Places[0].ID)
}
