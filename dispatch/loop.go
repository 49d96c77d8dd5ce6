// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

// Package dispatch provides the single event goroutine that every view,
// presenter and permission callback runs on.
package dispatch

import (
	"context"
	"sync"
)

// Loop runs posted functions one at a time, in posting order, on a single
// goroutine. Post never blocks, so it is safe to call from the loop itself.
type Loop struct {
	mu      sync.Mutex
	pending []func()
	stopped bool

	wake        chan struct{}
	doneChan    chan struct{}
	exited      chan struct{}
	stoppedChan chan struct{}
	wg          sync.WaitGroup
	stopOnce    sync.Once
	markOnce    sync.Once
}

// New creates a loop. Nothing runs until Start is called, but functions may
// already be posted.
func New() *Loop {
	return &Loop{
		wake:        make(chan struct{}, 1),
		doneChan:    make(chan struct{}),
		exited:      make(chan struct{}),
		stoppedChan: make(chan struct{}),
	}
}

// Start launches the dispatch goroutine. It exits when ctx is done or Stop is
// called; functions still pending at that point are dropped.
func (l *Loop) Start(ctx context.Context) {
	l.wg.Add(1)

	go func() {
		defer l.wg.Done()
		defer close(l.exited)
		defer l.markStopped()

		for {
			select {
			case <-ctx.Done():
				return
			case <-l.doneChan:
				return
			case <-l.wake:
				l.drain()
			}
		}
	}()
}

func (l *Loop) drain() {
	for {
		l.mu.Lock()
		batch := l.pending
		l.pending = nil
		l.mu.Unlock()

		if len(batch) == 0 {
			return
		}

		for _, fn := range batch {
			select {
			case <-l.doneChan:
				return
			default:
			}

			fn()
		}
	}
}

func (l *Loop) markStopped() {
	l.mu.Lock()
	l.stopped = true
	l.pending = nil
	l.mu.Unlock()
	l.markOnce.Do(func() { close(l.stoppedChan) })
}

// Stopped is closed once the loop stops accepting functions, whether Stop
// was called or the context of Start was cancelled. Functions still queued
// at that point never run.
func (l *Loop) Stopped() <-chan struct{} {
	return l.stoppedChan
}

// Post queues fn for execution on the loop. It reports false when the loop
// has already stopped and fn will never run.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()

		return false
	}

	l.pending = append(l.pending, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}

	return true
}

// Sync runs fn on the loop and waits for it to return. Everything posted
// before Sync has run by then. It must not be called from the loop goroutine,
// nor before Start.
func (l *Loop) Sync(fn func()) bool {
	done := make(chan struct{})

	if !l.Post(func() {
		defer close(done)
		fn()
	}) {
		return false
	}

	select {
	case <-done:
		return true
	case <-l.exited:
		return false
	}
}

// Stop terminates the loop and waits for the running function, if any, to
// return.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		close(l.doneChan)
	})
	l.wg.Wait()
	l.markStopped()
}
