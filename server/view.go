// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"errors"
	"sync"

	"github.com/jcodagnone/nearby/permission"
	"github.com/jcodagnone/nearby/places"
)

// ErrNoPendingRequest is returned when a permission answer arrives with no
// request waiting for it.
var ErrNoPendingRequest = errors.New("no pending permission request")

// View keeps what a remote client has to display. It is only touched on the
// dispatch loop.
type View struct {
	places         []*places.Place
	messages       []string
	rationaleShown bool
}

// RenderPlaces implements presenter.View.
func (v *View) RenderPlaces(ps []*places.Place) {
	v.places = ps
}

// ShowMessage implements presenter.View and permission.Notifier.
func (v *View) ShowMessage(msg string) {
	v.messages = append(v.messages, msg)
}

// ShowRationale implements permission.Prompter.
func (v *View) ShowRationale() {
	v.rationaleShown = true
}

// takeMessages returns and clears the pending messages.
func (v *View) takeMessages() []string {
	ret := v.messages
	v.messages = nil

	if ret == nil {
		ret = []string{}
	}

	return ret
}

// Platform is a permission.Platform answered over HTTP. A denial makes the
// next evaluation show the rationale first.
type Platform struct {
	mu      sync.Mutex
	denials int
	pending chan permission.Response
}

// ShouldShowRationale implements permission.Platform.
func (p *Platform) ShouldShowRationale(context.Context, string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.denials > 0
}

// Request implements permission.Platform. The answer comes from Answer.
func (p *Platform) Request(context.Context, string) (<-chan permission.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch := make(chan permission.Response, 1)
	p.pending = ch

	return ch, nil
}

// Pending reports whether a request waits for an answer.
func (p *Platform) Pending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.pending != nil
}

// Answer delivers resp to the pending request.
func (p *Platform) Answer(resp permission.Response) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pending == nil {
		return ErrNoPendingRequest
	}

	if !resp.Granted() {
		p.denials++
	}

	p.pending <- resp
	p.pending = nil

	return nil
}
