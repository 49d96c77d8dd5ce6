// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

// Package permission gates location dependent searches behind the platform's
// runtime permission flow.
package permission

import (
	"errors"
	"fmt"
)

var (
	// ErrPermissionDenied is returned when location access is not granted.
	ErrPermissionDenied = errors.New("location permission denied")
	// ErrInvalidTransition is returned for events the current state does not accept.
	ErrInvalidTransition = errors.New("invalid permission transition")
)

// DeniedMessage is shown to the user when the request is denied.
const DeniedMessage = "Location permission request was denied."

// State of the permission flow.
type State int

const (
	Unrequested State = iota
	RationaleNeeded
	Requested
	Granted
	Denied
)

func (s State) String() string {
	switch s {
	case Unrequested:
		return "unrequested"
	case RationaleNeeded:
		return "rationale_needed"
	case Requested:
		return "requested"
	case Granted:
		return "granted"
	case Denied:
		return "denied"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Err returns nil for Granted and an error wrapping ErrPermissionDenied
// otherwise.
func (s State) Err() error {
	if s == Granted {
		return nil
	}

	return fmt.Errorf("permission is %s: %w", s, ErrPermissionDenied)
}

// Response is the outcome of a permission request, one entry per requested
// permission.
type Response struct {
	Results []bool `json:"results"`
}

// Granted reports whether the response carries exactly one entry and it is
// true. Empty or multi entry responses count as denials.
func (r Response) Granted() bool {
	return len(r.Results) == 1 && r.Results[0]
}

// EventKind identifies what happened.
type EventKind int

const (
	// Evaluate is a (re)trigger of the flow by the user or the app.
	Evaluate EventKind = iota
	// AcknowledgeRationale is the user dismissing the rationale.
	AcknowledgeRationale
	// Respond is the platform delivering a Response.
	Respond
)

func (k EventKind) String() string {
	switch k {
	case Evaluate:
		return "evaluate"
	case AcknowledgeRationale:
		return "acknowledge_rationale"
	case Respond:
		return "respond"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is an input to Transition. ShowRationale is only meaningful for
// Evaluate and Response only for Respond.
type Event struct {
	Kind          EventKind
	ShowRationale bool
	Response      Response
}

// Effect is a side effect the Gate performs after a transition.
type Effect int

const (
	ShowRationale Effect = iota
	RequestPermission
	StartSearch
	NotifyDenied
)

func (e Effect) String() string {
	switch e {
	case ShowRationale:
		return "show_rationale"
	case RequestPermission:
		return "request_permission"
	case StartSearch:
		return "start_search"
	case NotifyDenied:
		return "notify_denied"
	default:
		return fmt.Sprintf("Effect(%d)", int(e))
	}
}

// Transition computes the next state and the effects to perform. It has no
// side effects; on error the state is returned unchanged.
func Transition(s State, e Event) (State, []Effect, error) {
	switch e.Kind {
	case Evaluate:
		switch s {
		case Unrequested, Denied:
			if e.ShowRationale {
				return RationaleNeeded, []Effect{ShowRationale}, nil
			}

			return Requested, []Effect{RequestPermission}, nil
		case Granted:
			return Granted, []Effect{StartSearch}, nil
		}
	case AcknowledgeRationale:
		if s == RationaleNeeded {
			return Requested, []Effect{RequestPermission}, nil
		}
	case Respond:
		if s == Requested {
			if e.Response.Granted() {
				return Granted, []Effect{StartSearch}, nil
			}

			return Denied, []Effect{NotifyDenied}, nil
		}
	}

	return s, nil, fmt.Errorf("%s in state %s: %w", e.Kind, s, ErrInvalidTransition)
}
