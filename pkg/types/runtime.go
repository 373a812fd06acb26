package types

import "time"

// LifecycleState is the top-level plan state.
type LifecycleState string

const (
	StatePending   LifecycleState = "pending"
	StateArmed     LifecycleState = "armed"
	StateTriggered LifecycleState = "triggered"
	StateInvalid   LifecycleState = "invalid"
	StateExpired   LifecycleState = "expired"
)

// Terminal reports whether no further transition is legal from this
// state.
func (s LifecycleState) Terminal() bool {
	return s == StateTriggered || s == StateInvalid || s == StateExpired
}

// Substate refines LifecycleState.
type Substate string

const (
	SubstateNone             Substate = "none"
	SubstateBreakSeen        Substate = "break_seen"
	SubstateBreakConfirmed   Substate = "break_confirmed"
	SubstateRetestArmed      Substate = "retest_armed"
	SubstateRetestTriggered  Substate = "retest_triggered"
)

// InvalidReason names why a plan was invalidated.
type InvalidReason string

const (
	ReasonNone         InvalidReason = ""
	ReasonPriceAbove   InvalidReason = "price_above"
	ReasonPriceBelow   InvalidReason = "price_below"
	ReasonTimeLimit    InvalidReason = "time_limit"
	ReasonStopLoss     InvalidReason = "stop_loss"
	ReasonFakeoutClose InvalidReason = "fakeout_close"
)

// EntryMode distinguishes how a Triggered signal was produced.
type EntryMode string

const (
	EntryModeMomentum EntryMode = "momentum"
	EntryModeRetest   EntryMode = "retest"
)

// PlanRuntimeState is the per-plan lifecycle record. All mutating
// operations are pure builders (see internal/planstate) that return a
// new value; the monotone flags BreakSeen, BreakConfirmed and
// SignalEmitted, once true, can never be cleared.
type PlanRuntimeState struct {
	PlanID string

	State    LifecycleState
	Substate Substate

	BreakTS      *time.Time
	ArmedAt      *time.Time
	TriggeredAt  *time.Time
	InvalidReason InvalidReason

	BreakSeen      bool
	BreakConfirmed bool
	SignalEmitted  map[LifecycleState]bool // per-state emission guard (in-memory idempotency)
}

// NewPlanRuntimeState constructs the initial runtime record for a
// freshly admitted plan: Pending/None, all flags false.
func NewPlanRuntimeState(planID string) PlanRuntimeState {
	return PlanRuntimeState{
		PlanID:        planID,
		State:         StatePending,
		Substate:      SubstateNone,
		SignalEmitted: make(map[LifecycleState]bool),
	}
}

// HasEmitted reports whether a signal was already emitted in-memory for
// the given lifecycle state.
func (r PlanRuntimeState) HasEmitted(state LifecycleState) bool {
	return r.SignalEmitted[state]
}

// Transition is the pure output of the breakout evaluator (C6): zero or
// one state change plus whether it should be emitted as a signal.
type Transition struct {
	NewState      LifecycleState
	NewSubstate   Substate
	Timestamp     time.Time
	EmitSignal    bool
	InvalidReason InvalidReason
	SignalContext SignalContext
}

// SignalContext carries the market/metrics data needed to format a
// signal at the moment a transition is applied, so C8 never has to
// re-derive them.
type SignalContext struct {
	LastPrice float64
	Metrics   MetricsSnapshot
	EntryMode EntryMode
}
