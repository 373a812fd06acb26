package planstate

import (
	"breakoutengine/internal/errs"
	"breakoutengine/pkg/types"
)

// legalPendingSubstates and legalArmedSubstates enforce §4.6's substate
// constraints.
var legalPendingSubstates = map[types.Substate]bool{
	types.SubstateNone:      true,
	types.SubstateBreakSeen: true,
}

var legalArmedSubstates = map[types.Substate]bool{
	types.SubstateBreakConfirmed: true,
	types.SubstateRetestArmed:    true,
}

// Apply validates and applies a Transition produced by the evaluator
// (C6) to a plan's runtime state, per §4.6. On an illegal edge it
// returns a SystemFaultError (StateTransitionFault) and the unchanged
// runtime — the caller must not apply any part of the transition.
func Apply(r types.PlanRuntimeState, t types.Transition) (types.PlanRuntimeState, error) {
	if err := checkLegal(r, t); err != nil {
		return r, err
	}

	next := WithState(r, t.NewState, t.NewSubstate, t.Timestamp, t.InvalidReason)

	switch t.NewState {
	case types.StateArmed:
		switch t.NewSubstate {
		case types.SubstateBreakConfirmed:
			next = WithBreakConfirmed(next, t.Timestamp)
		case types.SubstateRetestArmed:
			// Entering retest-armed mode means every confirmation gate
			// already passed (§4.5 step 4), so break_confirmed becomes
			// true here too — without this, Evaluate's
			// !runtime.BreakConfirmed dispatch would keep re-running
			// confirmationGates forever and retestTrigger would never
			// be reached.
			next = withBreakConfirmedFlag(next)
		}
	case types.StatePending:
		if t.NewSubstate == types.SubstateBreakSeen {
			next = WithBreakSeen(next, t.Timestamp)
		}
	}

	if t.EmitSignal {
		next = WithSignalEmitted(next)
	}

	return next, nil
}

func checkLegal(r types.PlanRuntimeState, t types.Transition) error {
	if r.State.Terminal() {
		return errs.NewSystemFaultError(errs.FaultStateTransition, r.PlanID, "no edge out of a terminal state", nil)
	}
	if r.State == types.StateTriggered && (t.NewState == types.StatePending || t.NewState == types.StateArmed) {
		return errs.NewSystemFaultError(errs.FaultStateTransition, r.PlanID, "no edge from Triggered back to Pending/Armed", nil)
	}
	if t.NewState == types.StateArmed && !legalArmedSubstates[t.NewSubstate] {
		return errs.NewSystemFaultError(errs.FaultStateTransition, r.PlanID, "illegal Armed substate", nil)
	}
	if t.NewState == types.StatePending && !legalPendingSubstates[t.NewSubstate] {
		return errs.NewSystemFaultError(errs.FaultStateTransition, r.PlanID, "illegal Pending substate", nil)
	}
	if r.ArmedAt != nil && t.Timestamp.Before(*r.ArmedAt) {
		return errs.NewSystemFaultError(errs.FaultStateTransition, r.PlanID, "timestamp regresses before armed_at", nil)
	}
	if r.TriggeredAt != nil && t.Timestamp.Before(*r.TriggeredAt) {
		return errs.NewSystemFaultError(errs.FaultStateTransition, r.PlanID, "timestamp regresses before triggered_at", nil)
	}
	if r.BreakTS != nil && t.Timestamp.Before(*r.BreakTS) {
		return errs.NewSystemFaultError(errs.FaultStateTransition, r.PlanID, "timestamp regresses before break_ts", nil)
	}
	return nil
}
