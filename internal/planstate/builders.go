// Package planstate implements the per-plan lifecycle record's pure
// builders (C5) and the transition applier with legality checking and
// idempotency enforcement (C7).
package planstate

import (
	"time"

	"breakoutengine/pkg/types"
)

// WithBreakSeen returns a new runtime with break_seen set and substate
// advanced to BreakSeen. break_seen is monotone: once true it stays
// true, and a second call is a no-op that still returns a fresh value
// (builders never mutate the receiver).
func WithBreakSeen(r types.PlanRuntimeState, ts time.Time) types.PlanRuntimeState {
	next := clone(r)
	if next.BreakSeen {
		return next
	}
	next.BreakSeen = true
	next.BreakTS = &ts
	next.Substate = types.SubstateBreakSeen
	return next
}

// WithBreakConfirmed returns a new runtime with break_confirmed set and
// transitions to Armed/BreakConfirmed.
func WithBreakConfirmed(r types.PlanRuntimeState, ts time.Time) types.PlanRuntimeState {
	next := withBreakConfirmedFlag(r)
	if next.State == types.StateArmed && next.Substate == types.SubstateBreakConfirmed {
		return next
	}
	next.State = types.StateArmed
	next.Substate = types.SubstateBreakConfirmed
	return next
}

// withBreakConfirmedFlag sets the monotone break_confirmed flag without
// touching state/substate, for callers (retest-mode Armed/RetestArmed)
// that have already settled on a different substate than
// Armed/BreakConfirmed but still passed every confirmation gate — §4.5
// step 4 requires break_confirmed once the gates pass, regardless of
// which substate (BreakConfirmed or RetestArmed) the plan lands in next.
func withBreakConfirmedFlag(r types.PlanRuntimeState) types.PlanRuntimeState {
	next := clone(r)
	next.BreakConfirmed = true
	return next
}

// WithState returns a new runtime transitioned to newState/newSubstate
// at ts. armed_at is stamped only when entering Armed for the first
// time; triggered_at only when entering Triggered for the first time.
func WithState(r types.PlanRuntimeState, newState types.LifecycleState, newSubstate types.Substate, ts time.Time, invalidReason types.InvalidReason) types.PlanRuntimeState {
	next := clone(r)
	next.State = newState
	next.Substate = newSubstate
	if newState == types.StateArmed && next.ArmedAt == nil {
		next.ArmedAt = &ts
	}
	if newState == types.StateTriggered && next.TriggeredAt == nil {
		next.TriggeredAt = &ts
	}
	if newState == types.StateInvalid {
		next.InvalidReason = invalidReason
	}
	return next
}

// WithSignalEmitted returns a new runtime with the in-memory emission
// guard set for the current lifecycle state. Once set for a state it
// is never cleared.
func WithSignalEmitted(r types.PlanRuntimeState) types.PlanRuntimeState {
	next := clone(r)
	next.SignalEmitted = cloneEmitted(r.SignalEmitted)
	next.SignalEmitted[next.State] = true
	return next
}

// clone makes a value copy of r with its own SignalEmitted map so
// builders never alias the caller's map.
func clone(r types.PlanRuntimeState) types.PlanRuntimeState {
	next := r
	next.SignalEmitted = cloneEmitted(r.SignalEmitted)
	return next
}

func cloneEmitted(m map[types.LifecycleState]bool) map[types.LifecycleState]bool {
	out := make(map[types.LifecycleState]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
