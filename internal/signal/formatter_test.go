package signal

import (
	"testing"
	"time"

	"breakoutengine/pkg/types"
)

func testPlan() types.Plan {
	return types.Plan{ID: "p1", InstrumentID: "BTC-USD", Direction: types.DirectionLong, EntryPrice: 100}
}

func TestFormat_NonTriggeredScoresBase30(t *testing.T) {
	t.Parallel()
	r := types.NewPlanRuntimeState("p1")
	r.State = types.StateInvalid
	r.InvalidReason = types.ReasonStopLoss

	tr := types.Transition{
		NewState:      types.StateInvalid,
		Timestamp:     time.Unix(10, 0),
		InvalidReason: types.ReasonStopLoss,
		SignalContext: types.SignalContext{LastPrice: 90},
	}

	sig := Format(testPlan(), r, tr)
	if sig.StrengthScore != 30.0 {
		t.Fatalf("got %v, want 30.0", sig.StrengthScore)
	}
	if sig.State != string(types.StateInvalid) {
		t.Fatalf("got state=%v", sig.State)
	}
	if sig.EntryMode != "" {
		t.Fatalf("expected no entry_mode on a non-triggered signal, got %v", sig.EntryMode)
	}
}

func TestFormat_TriggeredAccumulatesScoreAndClipsAt100(t *testing.T) {
	t.Parallel()
	r := types.NewPlanRuntimeState("p1")
	r.State = types.StateTriggered

	rvol := 5.0 // clamps the rvol term at its max contribution
	natr := 2.0 // within [0.5, 5] -> full 25 points
	tr := types.Transition{
		NewState:  types.StateTriggered,
		Timestamp: time.Unix(10, 0),
		SignalContext: types.SignalContext{
			LastPrice: 105,
			EntryMode: types.EntryModeMomentum,
			Metrics: types.MetricsSnapshot{
				RVOL:            &rvol,
				NATRPct:         &natr,
				Pinbar:          types.PinbarBullish,
				OBSweepDetected: true,
			},
		},
	}

	sig := Format(testPlan(), r, tr)
	if sig.StrengthScore != 100.0 {
		t.Fatalf("got %v, want clipped to 100.0", sig.StrengthScore)
	}
	if sig.EntryMode != types.EntryModeMomentum {
		t.Fatalf("got entry_mode=%v", sig.EntryMode)
	}
}

func TestFormat_LastPriceExactMirrorsLastPrice(t *testing.T) {
	t.Parallel()
	r := types.NewPlanRuntimeState("p1")
	r.State = types.StateTriggered
	tr := types.Transition{
		NewState:      types.StateTriggered,
		Timestamp:     time.Unix(10, 0),
		SignalContext: types.SignalContext{LastPrice: 123.45},
	}

	sig := Format(testPlan(), r, tr)
	got, _ := sig.LastPriceExact.Float64()
	if got != 123.45 {
		t.Fatalf("got %v, want 123.45", got)
	}
}

func TestClamp(t *testing.T) {
	t.Parallel()
	if clamp(-1, 0, 1) != 0 {
		t.Fatal("expected clamp to floor at lo")
	}
	if clamp(2, 0, 1) != 1 {
		t.Fatal("expected clamp to ceiling at hi")
	}
	if clamp(0.5, 0, 1) != 0.5 {
		t.Fatal("expected clamp to pass through in-range values")
	}
}
