// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

package permission

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jcodagnone/nearby/dispatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlatform struct {
	mu        sync.Mutex
	rationale bool
	requests  int
	responses chan Response
	failure   error
}

func newFakePlatform(rationale bool) *fakePlatform {
	return &fakePlatform{rationale: rationale, responses: make(chan Response, 1)}
}

func (p *fakePlatform) ShouldShowRationale(context.Context, string) bool {
	return p.rationale
}

func (p *fakePlatform) Request(context.Context, string) (<-chan Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.requests++

	if p.failure != nil {
		return nil, p.failure
	}

	return p.responses, nil
}

func (p *fakePlatform) requestCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.requests
}

// recorder collects the gate's collaborator calls. Only touched on the loop.
type recorder struct {
	rationales int
	messages   []string
	starts     int
}

func (r *recorder) ShowRationale()         { r.rationales++ }
func (r *recorder) ShowMessage(msg string) { r.messages = append(r.messages, msg) }
func (r *recorder) Start()                 { r.starts++ }

type gateFixture struct {
	loop     *dispatch.Loop
	platform *fakePlatform
	rec      *recorder
	gate     *Gate
}

func newGateFixture(t *testing.T, rationale bool) *gateFixture {
	t.Helper()

	loop := dispatch.New()
	loop.Start(context.Background())
	t.Cleanup(loop.Stop)

	f := &gateFixture{loop: loop, platform: newFakePlatform(rationale), rec: &recorder{}}
	f.gate = NewGate(loop, f.platform, f.rec, f.rec)
	f.gate.SetStarter(f.rec)

	return f
}

// onLoop runs fn on the loop and returns its error.
func (f *gateFixture) onLoop(t *testing.T, fn func() error) error {
	t.Helper()

	var err error

	require.True(t, f.loop.Sync(func() { err = fn() }))

	return err
}

// deliver answers the pending request and waits until the gate processed it.
func (f *gateFixture) deliver(t *testing.T, resp Response) {
	t.Helper()

	f.platform.responses <- resp

	assert.Eventually(t, func() bool {
		var s State

		f.loop.Sync(func() { s = f.gate.State() })

		return s != Requested
	}, waitFor, tick)
}

func TestGate_GrantWithoutRationale(t *testing.T) {
	f := newGateFixture(t, false)
	ctx := context.Background()

	require.NoError(t, f.onLoop(t, func() error { return f.gate.Evaluate(ctx) }))
	assert.Equal(t, Requested, f.gate.State())
	assert.Equal(t, 1, f.platform.requestCount())
	assert.Zero(t, f.rec.rationales)

	f.deliver(t, Response{Results: []bool{true}})

	f.loop.Sync(func() {
		assert.Equal(t, Granted, f.gate.State())
		assert.Equal(t, 1, f.rec.starts)
		assert.Empty(t, f.rec.messages)
	})
	assert.Equal(t, 1, f.platform.requestCount())
}

func TestGate_DenialAfterRationale(t *testing.T) {
	f := newGateFixture(t, true)
	ctx := context.Background()

	require.NoError(t, f.onLoop(t, func() error { return f.gate.Evaluate(ctx) }))
	assert.Equal(t, RationaleNeeded, f.gate.State())
	assert.Equal(t, 1, f.rec.rationales)
	assert.Zero(t, f.platform.requestCount())

	require.NoError(t, f.onLoop(t, func() error { return f.gate.AcknowledgeRationale(ctx) }))
	assert.Equal(t, 1, f.platform.requestCount())

	f.deliver(t, Response{Results: []bool{false}})

	f.loop.Sync(func() {
		assert.Equal(t, Denied, f.gate.State())
		assert.Equal(t, []string{DeniedMessage}, f.rec.messages)
		assert.Zero(t, f.rec.starts)
	})
}

func TestGate_AlreadyGrantedStartsDirectly(t *testing.T) {
	f := newGateFixture(t, false)
	ctx := context.Background()

	require.NoError(t, f.onLoop(t, func() error { return f.gate.Evaluate(ctx) }))
	f.deliver(t, Response{Results: []bool{true}})

	require.NoError(t, f.onLoop(t, func() error { return f.gate.Evaluate(ctx) }))

	f.loop.Sync(func() {
		assert.Equal(t, 2, f.rec.starts)
	})
	assert.Equal(t, 1, f.platform.requestCount(), "granted gate must not re-request")
}

func TestGate_EmptyResponseIsDenial(t *testing.T) {
	f := newGateFixture(t, false)

	require.NoError(t, f.onLoop(t, func() error { return f.gate.Evaluate(context.Background()) }))
	f.deliver(t, Response{})

	f.loop.Sync(func() {
		assert.Equal(t, Denied, f.gate.State())
		assert.Zero(t, f.rec.starts)
	})
}

func TestGate_RequestFailureIsDenial(t *testing.T) {
	f := newGateFixture(t, false)
	f.platform.failure = errors.New("no activity")

	require.NoError(t, f.onLoop(t, func() error { return f.gate.Evaluate(context.Background()) }))

	assert.Equal(t, Denied, f.gate.State())
	assert.Equal(t, []string{DeniedMessage}, f.rec.messages)
}

func TestGate_ReevaluateWhilePending(t *testing.T) {
	f := newGateFixture(t, false)
	ctx := context.Background()

	require.NoError(t, f.onLoop(t, func() error { return f.gate.Evaluate(ctx) }))

	err := f.onLoop(t, func() error { return f.gate.Evaluate(ctx) })
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, 1, f.platform.requestCount())
}

func TestGate_RetryAfterDenial(t *testing.T) {
	f := newGateFixture(t, false)
	ctx := context.Background()

	require.NoError(t, f.onLoop(t, func() error { return f.gate.Evaluate(ctx) }))
	f.deliver(t, Response{Results: []bool{false}})

	f.platform.rationale = true

	require.NoError(t, f.onLoop(t, func() error { return f.gate.Evaluate(ctx) }))
	assert.Equal(t, RationaleNeeded, f.gate.State())

	require.NoError(t, f.onLoop(t, func() error { return f.gate.AcknowledgeRationale(ctx) }))
	f.deliver(t, Response{Results: []bool{true}})

	f.loop.Sync(func() {
		assert.Equal(t, Granted, f.gate.State())
		assert.Equal(t, 1, f.rec.starts)
	})
}

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)
