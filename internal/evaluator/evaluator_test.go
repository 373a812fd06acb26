package evaluator

import (
	"testing"
	"time"

	"breakoutengine/internal/config"
	"breakoutengine/internal/planstate"
	"breakoutengine/pkg/types"
)

func defaultCfg() config.BreakoutParameters {
	return config.BreakoutParameters{
		PenetrationPct:         0.01,
		PenetrationNATRMult:    0,
		MinRVOL:                1.5,
		ConfirmClose:           true,
		ConfirmTimeMS:          0,
		AllowRetestEntry:       false,
		RetestBandPct:          0.03,
		FakeoutCloseInvalidate: true,
		OBSweepCheck:           false,
		MinBreakRangeATR:       0,
	}
}

func longPlan(entry float64) types.Plan {
	return types.Plan{
		ID:           "p1",
		InstrumentID: "BTC-USD",
		Direction:    types.DirectionLong,
		EntryPrice:   entry,
		EntryType:    "breakout",
		CreatedAt:    time.Unix(0, 0),
	}
}

func TestEvaluate_TerminalStateNeverTransitions(t *testing.T) {
	t.Parallel()
	r := types.NewPlanRuntimeState("p1")
	r.State = types.StateInvalid

	_, ok := Evaluate(r, longPlan(100), MarketContext{LastPrice: 200, Timestamp: time.Now()}, types.MetricsSnapshot{}, defaultCfg())
	if ok {
		t.Fatal("expected no transition out of a terminal state")
	}
}

func TestEvaluate_StopLossInvalidatesLong(t *testing.T) {
	t.Parallel()
	plan := longPlan(100)
	sl := 90.0
	plan.StopLoss = &sl

	r := types.NewPlanRuntimeState(plan.ID)
	market := MarketContext{LastPrice: 89, Timestamp: time.Unix(100, 0)}

	tr, ok := Evaluate(r, plan, market, types.MetricsSnapshot{}, defaultCfg())
	if !ok {
		t.Fatal("expected an invalidation transition")
	}
	if tr.NewState != types.StateInvalid || tr.InvalidReason != types.ReasonStopLoss {
		t.Fatalf("got state=%v reason=%v", tr.NewState, tr.InvalidReason)
	}
	if !tr.EmitSignal {
		t.Fatal("invalidation must emit a signal")
	}
}

func TestEvaluate_DetectBreak_BoundaryExactlyAtThreshold(t *testing.T) {
	t.Parallel()
	plan := longPlan(100)
	cfg := defaultCfg() // penetration_pct = 0.01 -> threshold = 101

	r := types.NewPlanRuntimeState(plan.ID)
	market := MarketContext{LastPrice: 101, Timestamp: time.Unix(1, 0)}

	tr, ok := Evaluate(r, plan, market, types.MetricsSnapshot{}, cfg)
	if !ok {
		t.Fatal("expected break detection at exact threshold (non-strict)")
	}
	if tr.NewState != types.StatePending || tr.NewSubstate != types.SubstateBreakSeen {
		t.Fatalf("got state=%v substate=%v", tr.NewState, tr.NewSubstate)
	}
	if tr.EmitSignal {
		t.Fatal("break_seen transition must not emit a signal")
	}
}

func TestEvaluate_DetectBreak_JustBelowThresholdNoBreak(t *testing.T) {
	t.Parallel()
	plan := longPlan(100)
	cfg := defaultCfg()

	r := types.NewPlanRuntimeState(plan.ID)
	market := MarketContext{LastPrice: 100.99, Timestamp: time.Unix(1, 0)}

	_, ok := Evaluate(r, plan, market, types.MetricsSnapshot{}, cfg)
	if ok {
		t.Fatal("expected no transition below the penetration threshold")
	}
}

func TestEvaluate_FakeoutCloseInvalidatesBeforeConfirmation(t *testing.T) {
	t.Parallel()
	plan := longPlan(100)
	cfg := defaultCfg()

	r := types.NewPlanRuntimeState(plan.ID)
	r = withBreakSeen(r, time.Unix(1, 0))

	closed := types.Candle{TS: time.Unix(2, 0), Open: 99, High: 102, Low: 98, Close: 99.5, IsClosed: true}
	market := MarketContext{LastPrice: 101, Timestamp: time.Unix(2, 0), LastClosedBar: &closed}

	tr, ok := Evaluate(r, plan, market, types.MetricsSnapshot{}, cfg)
	if !ok {
		t.Fatal("expected a fakeout invalidation")
	}
	if tr.NewState != types.StateInvalid || tr.InvalidReason != types.ReasonFakeoutClose {
		t.Fatalf("got state=%v reason=%v", tr.NewState, tr.InvalidReason)
	}
}

func TestEvaluate_ConfirmationGates_MissingRVOLFailsClosed(t *testing.T) {
	t.Parallel()
	plan := longPlan(100)
	cfg := defaultCfg() // min_rvol = 1.5

	r := types.NewPlanRuntimeState(plan.ID)
	r = withBreakSeen(r, time.Unix(1, 0))

	closed := types.Candle{TS: time.Unix(2, 0), Open: 99, High: 103, Low: 98, Close: 102, IsClosed: true}
	market := MarketContext{LastPrice: 102, Timestamp: time.Unix(2, 0), LastClosedBar: &closed}

	// RVOL is nil (insufficient history) -> gate must fail closed.
	_, ok := Evaluate(r, plan, market, types.MetricsSnapshot{}, cfg)
	if ok {
		t.Fatal("expected confirmation gates to fail closed on missing rvol")
	}
}

func TestEvaluate_ConfirmationGates_AllPassTriggersImmediateEntry(t *testing.T) {
	t.Parallel()
	plan := longPlan(100)
	cfg := defaultCfg()

	r := types.NewPlanRuntimeState(plan.ID)
	r = withBreakSeen(r, time.Unix(1, 0))

	closed := types.Candle{TS: time.Unix(2, 0), Open: 99, High: 103, Low: 98, Close: 102, IsClosed: true}
	market := MarketContext{LastPrice: 102, Timestamp: time.Unix(2, 0), LastClosedBar: &closed}
	rvol := 2.0
	snap := types.MetricsSnapshot{RVOL: &rvol}

	tr, ok := Evaluate(r, plan, market, snap, cfg)
	if !ok {
		t.Fatal("expected all gates to pass and trigger momentum entry")
	}
	if tr.NewState != types.StateTriggered {
		t.Fatalf("got state=%v", tr.NewState)
	}
	if tr.SignalContext.EntryMode != types.EntryModeMomentum {
		t.Fatalf("got entry_mode=%v", tr.SignalContext.EntryMode)
	}
	if !tr.EmitSignal {
		t.Fatal("triggered transition must emit a signal")
	}
}

func TestEvaluate_VolatilityGate_ZeroRangeBarNeverPasses(t *testing.T) {
	t.Parallel()
	plan := longPlan(100)
	cfg := defaultCfg()
	cfg.MinBreakRangeATR = 0.5

	r := types.NewPlanRuntimeState(plan.ID)
	r = withBreakSeen(r, time.Unix(1, 0))

	closed := types.Candle{TS: time.Unix(2, 0), Open: 100, High: 100, Low: 100, Close: 100, IsClosed: true}
	market := MarketContext{LastPrice: 102, Timestamp: time.Unix(2, 0), LastClosedBar: &closed}
	rvol := 2.0
	atr := 1.0
	snap := types.MetricsSnapshot{RVOL: &rvol, ATR: &atr}

	_, ok := Evaluate(r, plan, market, snap, cfg)
	if ok {
		t.Fatal("a zero-range bar must never pass the volatility gate")
	}
}

func TestEvaluate_RetestTrigger_RequiresTwoRejectionSignals(t *testing.T) {
	t.Parallel()
	plan := longPlan(100)
	cfg := defaultCfg()
	cfg.AllowRetestEntry = true

	r := types.NewPlanRuntimeState(plan.ID)
	r.State = types.StateArmed
	r.Substate = types.SubstateRetestArmed
	r.BreakSeen = true
	r.BreakConfirmed = true

	market := MarketContext{LastPrice: 100.5, Timestamp: time.Unix(3, 0)}

	// Only one qualifying signal (pinbar) -> below threshold.
	snap := types.MetricsSnapshot{Pinbar: types.PinbarBullish}
	if _, ok := Evaluate(r, plan, market, snap, cfg); ok {
		t.Fatal("expected no trigger with only one rejection signal")
	}

	// Two qualifying signals: pinbar + sweep.
	snap = types.MetricsSnapshot{Pinbar: types.PinbarBullish, OBSweepDetected: true}
	tr, ok := Evaluate(r, plan, market, snap, cfg)
	if !ok {
		t.Fatal("expected a retest trigger with two rejection signals")
	}
	if tr.NewState != types.StateTriggered || tr.SignalContext.EntryMode != types.EntryModeRetest {
		t.Fatalf("got state=%v entry_mode=%v", tr.NewState, tr.SignalContext.EntryMode)
	}
}

func TestEvaluate_RetestTrigger_DefendingImbalanceSignalMatchesDirection(t *testing.T) {
	t.Parallel()

	// Long plan: the defending side is bids, so supportive imbalance
	// must be read off OBImbalanceLong (bid-dominant), not Short.
	longP := longPlan(100)
	cfg := defaultCfg()
	cfg.AllowRetestEntry = true

	r := types.NewPlanRuntimeState(longP.ID)
	r.State = types.StateArmed
	r.Substate = types.SubstateRetestArmed
	r.BreakSeen = true
	r.BreakConfirmed = true

	market := MarketContext{LastPrice: 100.5, Timestamp: time.Unix(3, 0)}

	// One pinbar signal plus a supportive long-side imbalance should
	// trigger; if the code were still reading OBImbalanceShort here,
	// this would stay below the 2-signal threshold and never fire.
	snap := types.MetricsSnapshot{Pinbar: types.PinbarBullish, OBImbalanceLong: 2.5, OBImbalanceShort: 0.1}
	if tr, ok := Evaluate(r, longP, market, snap, cfg); !ok || tr.SignalContext.EntryMode != types.EntryModeRetest {
		t.Fatalf("expected long retest trigger off OBImbalanceLong, got tr=%+v ok=%v", tr, ok)
	}

	// Short plan: spec scenario 3 (eth_short, ask imbalance 2.5) —
	// the defending side is asks, read off OBImbalanceShort.
	shortP := types.Plan{
		ID:           "eth_short",
		InstrumentID: "ETH-USD",
		Direction:    types.DirectionShort,
		EntryPrice:   3308,
		EntryType:    "breakout",
		CreatedAt:    time.Unix(0, 0),
	}
	r2 := types.NewPlanRuntimeState(shortP.ID)
	r2.State = types.StateArmed
	r2.Substate = types.SubstateRetestArmed
	r2.BreakSeen = true
	r2.BreakConfirmed = true

	market2 := MarketContext{LastPrice: 3300, Timestamp: time.Unix(3, 0)}
	snap2 := types.MetricsSnapshot{Pinbar: types.PinbarBearish, OBImbalanceShort: 2.5, OBImbalanceLong: 0.1}
	if tr, ok := Evaluate(r2, shortP, market2, snap2, cfg); !ok || tr.SignalContext.EntryMode != types.EntryModeRetest {
		t.Fatalf("expected short retest trigger off OBImbalanceShort, got tr=%+v ok=%v", tr, ok)
	}

	// Sanity: a short plan's retest must NOT count a merely long-side
	// imbalance as its rejection signal — confirms the fix didn't just
	// swap the bug onto the long branch.
	snap3 := types.MetricsSnapshot{Pinbar: types.PinbarBearish, OBImbalanceLong: 2.5, OBImbalanceShort: 0.1}
	if _, ok := Evaluate(r2, shortP, market2, snap3, cfg); ok {
		t.Fatal("short plan must not trigger off a long-side imbalance with only one other signal")
	}
}

// TestEvaluate_RetestMode_ReachesRetestTriggerAfterRealApply drives the
// runtime through planstate.Apply (instead of hand-setting BreakConfirmed
// on a bare struct) to confirm the dispatcher in Evaluate actually leaves
// confirmationGates and reaches retestTrigger once gates pass. Before the
// fix, Apply never set break_confirmed on entry to Armed/RetestArmed, so
// Evaluate's `!runtime.BreakConfirmed` branch kept re-running
// confirmationGates on every later tick and retestTrigger was dead code.
func TestEvaluate_RetestMode_ReachesRetestTriggerAfterRealApply(t *testing.T) {
	t.Parallel()
	plan := longPlan(100)
	cfg := defaultCfg()
	cfg.AllowRetestEntry = true

	r := types.NewPlanRuntimeState(plan.ID)
	r.BreakSeen = true
	breakTS := time.Unix(1, 0)
	r.BreakTS = &breakTS

	gateMarket := MarketContext{
		LastPrice:     102,
		Timestamp:     time.Unix(2, 0),
		LastClosedBar: &types.Candle{TS: time.Unix(2, 0), Open: 100, High: 103, Low: 99, Close: 102, IsClosed: true},
	}
	rvol := 2.0
	gateSnap := types.MetricsSnapshot{RVOL: &rvol}

	tr, ok := Evaluate(r, plan, gateMarket, gateSnap, cfg)
	if !ok || tr.NewState != types.StateArmed || tr.NewSubstate != types.SubstateRetestArmed {
		t.Fatalf("expected gates to pass into Armed/RetestArmed, got tr=%+v ok=%v", tr, ok)
	}

	next, err := planstate.Apply(r, tr)
	if err != nil {
		t.Fatalf("unexpected apply error: %v", err)
	}
	if !next.BreakConfirmed {
		t.Fatal("expected break_confirmed set after a real Apply of the RetestArmed transition")
	}

	retestMarket := MarketContext{LastPrice: 100.5, Timestamp: time.Unix(3, 0)}
	retestSnap := types.MetricsSnapshot{Pinbar: types.PinbarBullish, OBSweepDetected: true}

	tr2, ok := Evaluate(next, plan, retestMarket, retestSnap, cfg)
	if !ok {
		t.Fatal("expected the second tick to reach retestTrigger and fire, not re-run confirmationGates")
	}
	if tr2.NewState != types.StateTriggered || tr2.NewSubstate != types.SubstateRetestTriggered || tr2.SignalContext.EntryMode != types.EntryModeRetest {
		t.Fatalf("got %+v", tr2)
	}
}

func TestEvaluate_RetestTrigger_OutsideBandNeverFires(t *testing.T) {
	t.Parallel()
	plan := longPlan(100)
	cfg := defaultCfg()
	cfg.AllowRetestEntry = true
	cfg.RetestBandPct = 0.01 // band = [99, 101]

	r := types.NewPlanRuntimeState(plan.ID)
	r.State = types.StateArmed
	r.Substate = types.SubstateRetestArmed
	r.BreakSeen = true
	r.BreakConfirmed = true

	market := MarketContext{LastPrice: 110, Timestamp: time.Unix(3, 0)}
	snap := types.MetricsSnapshot{Pinbar: types.PinbarBullish, OBSweepDetected: true}

	if _, ok := Evaluate(r, plan, market, snap, cfg); ok {
		t.Fatal("expected no trigger while price is outside the retest band")
	}
}

func TestEvaluate_InvalidationConditionsWalkedInOrder(t *testing.T) {
	t.Parallel()
	plan := longPlan(100)
	plan.Invalidations = []types.InvalidationCondition{
		{Kind: types.InvalidationPriceBelow, Level: 95},
		{Kind: types.InvalidationTimeLimit, Duration: time.Hour},
	}

	r := types.NewPlanRuntimeState(plan.ID)
	market := MarketContext{LastPrice: 94, Timestamp: time.Unix(10, 0)}

	tr, ok := Evaluate(r, plan, market, types.MetricsSnapshot{}, defaultCfg())
	if !ok || tr.InvalidReason != types.ReasonPriceBelow {
		t.Fatalf("expected price_below to fire first, got ok=%v reason=%v", ok, tr.InvalidReason)
	}
}

// withBreakSeen is a small local helper mirroring planstate.WithBreakSeen
// so this package's tests stay independent of the planstate package.
func withBreakSeen(r types.PlanRuntimeState, ts time.Time) types.PlanRuntimeState {
	r.BreakSeen = true
	r.BreakTS = &ts
	r.Substate = types.SubstateBreakSeen
	r.State = types.StatePending
	return r
}
