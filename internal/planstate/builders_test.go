package planstate

import (
	"testing"
	"time"

	"breakoutengine/pkg/types"
)

func TestWithBreakSeen_SetsFieldsOnFirstCall(t *testing.T) {
	t.Parallel()
	r := types.NewPlanRuntimeState("p1")
	ts := time.Unix(10, 0)

	next := WithBreakSeen(r, ts)
	if !next.BreakSeen || next.BreakTS == nil || !next.BreakTS.Equal(ts) {
		t.Fatalf("got %+v", next)
	}
	if next.Substate != types.SubstateBreakSeen {
		t.Fatalf("got substate=%v", next.Substate)
	}
	if r.BreakSeen {
		t.Fatal("builder must not mutate the receiver")
	}
}

func TestWithBreakSeen_SecondCallIsMonotoneNoop(t *testing.T) {
	t.Parallel()
	r := types.NewPlanRuntimeState("p1")
	first := WithBreakSeen(r, time.Unix(10, 0))
	second := WithBreakSeen(first, time.Unix(999, 0))

	if !second.BreakTS.Equal(*first.BreakTS) {
		t.Fatalf("break_ts must not move once set: first=%v second=%v", first.BreakTS, second.BreakTS)
	}
}

func TestWithBreakConfirmed_ArmsRuntime(t *testing.T) {
	t.Parallel()
	r := WithBreakSeen(types.NewPlanRuntimeState("p1"), time.Unix(10, 0))
	next := WithBreakConfirmed(r, time.Unix(20, 0))

	if !next.BreakConfirmed || next.State != types.StateArmed || next.Substate != types.SubstateBreakConfirmed {
		t.Fatalf("got %+v", next)
	}
}

func TestWithState_StampsArmedAtOnlyOnce(t *testing.T) {
	t.Parallel()
	r := types.NewPlanRuntimeState("p1")
	first := WithState(r, types.StateArmed, types.SubstateBreakConfirmed, time.Unix(10, 0), types.ReasonNone)
	second := WithState(first, types.StateArmed, types.SubstateRetestArmed, time.Unix(20, 0), types.ReasonNone)

	if first.ArmedAt == nil || !first.ArmedAt.Equal(time.Unix(10, 0)) {
		t.Fatalf("expected armed_at stamped on first entry, got %v", first.ArmedAt)
	}
	if !second.ArmedAt.Equal(*first.ArmedAt) {
		t.Fatalf("armed_at must not move on re-entry, got %v", second.ArmedAt)
	}
}

func TestWithState_SetsInvalidReasonOnlyForInvalidState(t *testing.T) {
	t.Parallel()
	r := types.NewPlanRuntimeState("p1")
	next := WithState(r, types.StateInvalid, types.SubstateNone, time.Unix(10, 0), types.ReasonStopLoss)
	if next.InvalidReason != types.ReasonStopLoss {
		t.Fatalf("got %v", next.InvalidReason)
	}
}

func TestWithSignalEmitted_GuardsPerStateAndDoesNotAliasCallerMap(t *testing.T) {
	t.Parallel()
	r := types.NewPlanRuntimeState("p1")
	next := WithSignalEmitted(r)

	if !next.HasEmitted(types.StatePending) {
		t.Fatal("expected emission guard set for the current state")
	}
	if r.HasEmitted(types.StatePending) {
		t.Fatal("builder must not mutate the original runtime's map")
	}
}
