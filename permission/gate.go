// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

package permission

import (
	"context"
	"log"
	"sync/atomic"

	"github.com/jcodagnone/nearby/dispatch"
)

// LocationPermission is the permission identifier the gate asks for.
const LocationPermission = "android.permission.ACCESS_FINE_LOCATION"

// Platform is the runtime permission subsystem.
type Platform interface {
	// ShouldShowRationale reports whether the user should be told why the
	// permission is needed before asking.
	ShouldShowRationale(ctx context.Context, permission string) bool
	// Request asks for the permission. The Response is delivered on the
	// returned channel.
	Request(ctx context.Context, permission string) (<-chan Response, error)
}

// Prompter displays the rationale. The user's acknowledgement must be
// reported back through Gate.AcknowledgeRationale.
type Prompter interface {
	ShowRationale()
}

// Notifier shows a message to the user.
type Notifier interface {
	ShowMessage(msg string)
}

// Starter is what runs once the permission is granted.
type Starter interface {
	Start()
}

// StarterFunc adapts a function to the Starter interface.
type StarterFunc func()

// Start calls f.
func (f StarterFunc) Start() { f() }

// Gate drives the permission flow for one session. Evaluate,
// AcknowledgeRationale and SetStarter must be called on the dispatch loop;
// State may be read from anywhere.
type Gate struct {
	loop       *dispatch.Loop
	platform   Platform
	prompter   Prompter
	notifier   Notifier
	starter    Starter
	permission string

	state atomic.Int32
}

// NewGate creates a gate in the Unrequested state.
func NewGate(loop *dispatch.Loop, platform Platform, prompter Prompter, notifier Notifier) *Gate {
	return &Gate{
		loop:       loop,
		platform:   platform,
		prompter:   prompter,
		notifier:   notifier,
		permission: LocationPermission,
	}
}

// SetStarter sets what runs on grant. The presenter usually depends on the
// gate, hence the late binding.
func (g *Gate) SetStarter(s Starter) {
	g.starter = s
}

// State returns the current state.
func (g *Gate) State() State {
	return State(g.state.Load())
}

// Evaluate (re)triggers the flow. From Granted it starts the search
// directly; from Unrequested or Denied it shows the rationale or requests the
// permission.
func (g *Gate) Evaluate(ctx context.Context) error {
	ev := Event{Kind: Evaluate}

	switch g.State() {
	case Unrequested, Denied:
		ev.ShowRationale = g.platform.ShouldShowRationale(ctx, g.permission)
	}

	return g.fire(ctx, ev)
}

// AcknowledgeRationale moves on from the rationale to the actual request.
func (g *Gate) AcknowledgeRationale(ctx context.Context) error {
	return g.fire(ctx, Event{Kind: AcknowledgeRationale})
}

func (g *Gate) fire(ctx context.Context, ev Event) error {
	from := g.State()

	to, effects, err := Transition(from, ev)
	if err != nil {
		log.Printf("permission: ignoring %v", err)

		return err
	}

	g.state.Store(int32(to))
	log.Printf("permission: %s -> %s on %s", from, to, ev.Kind)

	for _, e := range effects {
		g.apply(ctx, e)
	}

	return nil
}

func (g *Gate) apply(ctx context.Context, e Effect) {
	switch e {
	case ShowRationale:
		g.prompter.ShowRationale()
	case RequestPermission:
		g.request(ctx)
	case StartSearch:
		if g.starter != nil {
			g.starter.Start()
		}
	case NotifyDenied:
		g.notifier.ShowMessage(DeniedMessage)
	}
}

// request asks the platform and waits for the answer off the loop. A failed
// request is delivered as an empty Response, which counts as a denial.
func (g *Gate) request(ctx context.Context) {
	ch, err := g.platform.Request(ctx, g.permission)
	if err != nil {
		log.Printf("permission: request failed: %v", err)

		g.respond(ctx, Response{})

		return
	}

	go func() {
		var resp Response

		select {
		case r, ok := <-ch:
			if ok {
				resp = r
			}
		case <-ctx.Done():
			log.Printf("permission: abandoning request: %v", ctx.Err())

			return
		}

		g.loop.Post(func() { g.respond(ctx, resp) })
	}()
}

func (g *Gate) respond(ctx context.Context, resp Response) {
	// errors are logged by fire
	_ = g.fire(ctx, Event{Kind: Respond, Response: resp})
}
