// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

package permission

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransition(t *testing.T) {
	granted := Response{Results: []bool{true}}

	tests := []struct {
		name    string
		from    State
		event   Event
		to      State
		effects []Effect
	}{
		{"ask directly", Unrequested, Event{Kind: Evaluate}, Requested, []Effect{RequestPermission}},
		{"ask with rationale", Unrequested, Event{Kind: Evaluate, ShowRationale: true}, RationaleNeeded, []Effect{ShowRationale}},
		{"rationale acknowledged", RationaleNeeded, Event{Kind: AcknowledgeRationale}, Requested, []Effect{RequestPermission}},
		{"granted", Requested, Event{Kind: Respond, Response: granted}, Granted, []Effect{StartSearch}},
		{"refused", Requested, Event{Kind: Respond, Response: Response{Results: []bool{false}}}, Denied, []Effect{NotifyDenied}},
		{"empty response", Requested, Event{Kind: Respond}, Denied, []Effect{NotifyDenied}},
		{"two entries", Requested, Event{Kind: Respond, Response: Response{Results: []bool{true, true}}}, Denied, []Effect{NotifyDenied}},
		{"already granted", Granted, Event{Kind: Evaluate, ShowRationale: true}, Granted, []Effect{StartSearch}},
		{"retry after denial", Denied, Event{Kind: Evaluate, ShowRationale: true}, RationaleNeeded, []Effect{ShowRationale}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			to, effects, err := Transition(tt.from, tt.event)
			require.NoError(t, err)
			assert.Equal(t, tt.to, to)

			if diff := cmp.Diff(tt.effects, effects); diff != "" {
				t.Errorf("effects mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTransition_Invalid(t *testing.T) {
	tests := []struct {
		from  State
		event EventKind
	}{
		{Unrequested, AcknowledgeRationale},
		{Unrequested, Respond},
		{RationaleNeeded, Evaluate},
		{RationaleNeeded, Respond},
		{Requested, Evaluate},
		{Requested, AcknowledgeRationale},
		{Granted, Respond},
		{Denied, AcknowledgeRationale},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"/"+tt.event.String(), func(t *testing.T) {
			to, effects, err := Transition(tt.from, Event{Kind: tt.event})
			require.ErrorIs(t, err, ErrInvalidTransition)
			assert.Equal(t, tt.from, to)
			assert.Empty(t, effects)
		})
	}
}

func TestStateErr(t *testing.T) {
	require.NoError(t, Granted.Err())

	for _, s := range []State{Unrequested, RationaleNeeded, Requested, Denied} {
		assert.ErrorIs(t, s.Err(), ErrPermissionDenied)
	}
}
