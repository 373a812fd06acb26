package evaluator

import (
	"time"

	"breakoutengine/internal/config"
	"breakoutengine/pkg/types"
)

// Evaluate is the pure function at the heart of the system (§4.5).
// It returns (transition, true) when a rule fires, or (zero, false)
// when nothing changes this tick. No I/O, no hidden state: every input
// needed to decide is passed in.
func Evaluate(
	runtime types.PlanRuntimeState,
	plan types.Plan,
	market MarketContext,
	metrics types.MetricsSnapshot,
	cfg config.BreakoutParameters,
) (types.Transition, bool) {
	if runtime.State.Terminal() {
		return types.Transition{}, false
	}

	if t, ok := preInvalidations(runtime, plan, market, metrics); ok {
		return t, true
	}

	if !runtime.BreakSeen {
		return detectBreak(runtime, plan, market, metrics, cfg)
	}

	if !runtime.BreakConfirmed {
		if t, ok := fakeoutCheck(runtime, plan, market, metrics, cfg); ok {
			return t, true
		}
		return confirmationGates(runtime, plan, market, metrics, cfg)
	}

	if runtime.State == types.StateArmed && runtime.Substate == types.SubstateRetestArmed {
		return retestTrigger(runtime, plan, market, metrics, cfg)
	}

	return types.Transition{}, false
}

// preInvalidations walks the plan's invalidation conditions in
// declared order (§4.5 step 1), plus the direction-aware stop-loss
// check. The first hit wins.
func preInvalidations(runtime types.PlanRuntimeState, plan types.Plan, market MarketContext, metrics types.MetricsSnapshot) (types.Transition, bool) {
	for _, ic := range plan.Invalidations {
		switch ic.Kind {
		case types.InvalidationPriceAbove:
			if market.LastPrice > ic.Level {
				return invalidTransition(market.Timestamp, types.ReasonPriceAbove, market, metrics), true
			}
		case types.InvalidationPriceBelow:
			if market.LastPrice < ic.Level {
				return invalidTransition(market.Timestamp, types.ReasonPriceBelow, market, metrics), true
			}
		case types.InvalidationTimeLimit:
			if market.Timestamp.Sub(plan.CreatedAt) > ic.Duration {
				return invalidTransition(market.Timestamp, types.ReasonTimeLimit, market, metrics), true
			}
		}
	}

	if plan.StopLoss != nil {
		hit := false
		switch plan.Direction {
		case types.DirectionLong:
			hit = market.LastPrice <= *plan.StopLoss
		case types.DirectionShort:
			hit = market.LastPrice >= *plan.StopLoss
		}
		if hit {
			return invalidTransition(market.Timestamp, types.ReasonStopLoss, market, metrics), true
		}
	}

	return types.Transition{}, false
}

func invalidTransition(ts time.Time, reason types.InvalidReason, market MarketContext, metrics types.MetricsSnapshot) types.Transition {
	return types.Transition{
		NewState:      types.StateInvalid,
		NewSubstate:   types.SubstateNone,
		Timestamp:     ts,
		EmitSignal:    true,
		InvalidReason: reason,
		SignalContext: types.SignalContext{LastPrice: market.LastPrice, Metrics: metrics},
	}
}

// penetration returns the minimum distance beyond entry required to
// count as a raw break (§4.5 step 2): the larger of a flat percentage
// of entry and an NATR-scaled distance (zero if NATR% is unavailable).
func penetration(entry float64, natrPct *float64, cfg config.BreakoutParameters) float64 {
	pct := cfg.PenetrationPct * entry
	natr := 0.0
	if natrPct != nil {
		natr = cfg.PenetrationNATRMult * (*natrPct / 100) * entry
	}
	return max(pct, natr)
}

// detectBreak implements §4.5 step 2: only reachable when break_seen is
// still false. Penetration distance exactly at the threshold counts as
// a break (non-strict both directions, §8 boundary behavior).
func detectBreak(runtime types.PlanRuntimeState, plan types.Plan, market MarketContext, metrics types.MetricsSnapshot, cfg config.BreakoutParameters) (types.Transition, bool) {
	pen := penetration(plan.EntryPrice, metrics.NATRPct, cfg)

	var broke bool
	switch plan.Direction {
	case types.DirectionLong:
		broke = market.LastPrice >= plan.EntryPrice+pen
	case types.DirectionShort:
		broke = market.LastPrice <= plan.EntryPrice-pen
	}
	if !broke {
		return types.Transition{}, false
	}

	return types.Transition{
		NewState:    types.StatePending,
		NewSubstate: types.SubstateBreakSeen,
		Timestamp:   market.Timestamp,
		EmitSignal:  false,
	}, true
}

// fakeoutCheck implements §4.5 step 3: only reachable while
// break_seen && !break_confirmed && cfg.fakeout_close_invalidate.
func fakeoutCheck(runtime types.PlanRuntimeState, plan types.Plan, market MarketContext, metrics types.MetricsSnapshot, cfg config.BreakoutParameters) (types.Transition, bool) {
	if !cfg.FakeoutCloseInvalidate {
		return types.Transition{}, false
	}
	if market.LastClosedBar == nil {
		return types.Transition{}, false
	}

	closedWrongSide := false
	switch plan.Direction {
	case types.DirectionLong:
		closedWrongSide = market.LastClosedBar.Close < plan.EntryPrice
	case types.DirectionShort:
		closedWrongSide = market.LastClosedBar.Close > plan.EntryPrice
	}
	if !closedWrongSide {
		return types.Transition{}, false
	}

	return types.Transition{
		NewState:      types.StateInvalid,
		NewSubstate:   types.SubstateNone,
		Timestamp:     market.Timestamp,
		EmitSignal:    true,
		InvalidReason: types.ReasonFakeoutClose,
		SignalContext: types.SignalContext{LastPrice: market.LastPrice, Metrics: metrics},
	}, true
}

// confirmationGates implements §4.5 step 4: all four gates must pass;
// any failure aborts this tick without a transition (fail closed —
// missing metrics never count as passing a required gate).
func confirmationGates(runtime types.PlanRuntimeState, plan types.Plan, market MarketContext, metrics types.MetricsSnapshot, cfg config.BreakoutParameters) (types.Transition, bool) {
	if !rvolGate(metrics, cfg) {
		return types.Transition{}, false
	}
	if !volatilityGate(market, metrics, cfg) {
		return types.Transition{}, false
	}
	if !confirmationGate(runtime, plan, market, cfg) {
		return types.Transition{}, false
	}
	if !sweepGate(plan, metrics, cfg) {
		return types.Transition{}, false
	}

	if !cfg.AllowRetestEntry {
		return types.Transition{
			NewState:    types.StateTriggered,
			NewSubstate: types.SubstateNone,
			Timestamp:   market.Timestamp,
			EmitSignal:  true,
			SignalContext: types.SignalContext{
				LastPrice: market.LastPrice,
				Metrics:   metrics,
				EntryMode: types.EntryModeMomentum,
			},
		}, true
	}

	return types.Transition{
		NewState:    types.StateArmed,
		NewSubstate: types.SubstateRetestArmed,
		Timestamp:   market.Timestamp,
		EmitSignal:  false,
	}, true
}

func rvolGate(metrics types.MetricsSnapshot, cfg config.BreakoutParameters) bool {
	if cfg.MinRVOL <= 0 {
		return true
	}
	return metrics.RVOL != nil && *metrics.RVOL >= cfg.MinRVOL
}

// volatilityGate: a zero-range bar never passes (§8 boundary behavior).
func volatilityGate(market MarketContext, metrics types.MetricsSnapshot, cfg config.BreakoutParameters) bool {
	if cfg.MinBreakRangeATR <= 0 {
		return true
	}
	if market.LastClosedBar == nil || metrics.ATR == nil {
		return false
	}
	r := market.LastClosedBar.Range()
	if r <= 0 {
		return false
	}
	return r >= cfg.MinBreakRangeATR*(*metrics.ATR)
}

func confirmationGate(runtime types.PlanRuntimeState, plan types.Plan, market MarketContext, cfg config.BreakoutParameters) bool {
	if cfg.ConfirmClose {
		if market.LastClosedBar == nil {
			return false
		}
		switch plan.Direction {
		case types.DirectionLong:
			return market.LastClosedBar.Close > plan.EntryPrice
		case types.DirectionShort:
			return market.LastClosedBar.Close < plan.EntryPrice
		}
		return false
	}

	if runtime.BreakTS == nil {
		return false
	}
	elapsed := market.Timestamp.Sub(*runtime.BreakTS)
	if elapsed < time.Duration(cfg.ConfirmTimeMS)*time.Millisecond {
		return false
	}
	switch plan.Direction {
	case types.DirectionLong:
		return market.LastPrice >= plan.EntryPrice
	case types.DirectionShort:
		return market.LastPrice <= plan.EntryPrice
	}
	return false
}

func sweepGate(plan types.Plan, metrics types.MetricsSnapshot, cfg config.BreakoutParameters) bool {
	if !cfg.OBSweepCheck {
		return true
	}
	if !metrics.OBSweepDetected {
		return false
	}
	expected := types.SideAsk
	if plan.Direction == types.DirectionShort {
		expected = types.SideBid
	}
	return metrics.OBSweepSide == expected
}

// retestTrigger implements §4.5 step 5: only reachable from
// Armed/RetestArmed. Requires price inside the retest band, then
// accumulates rejection signals; >=2 triggers.
func retestTrigger(runtime types.PlanRuntimeState, plan types.Plan, market MarketContext, metrics types.MetricsSnapshot, cfg config.BreakoutParameters) (types.Transition, bool) {
	band := cfg.RetestBandPct * plan.EntryPrice
	if abs(market.LastPrice-plan.EntryPrice) > band {
		return types.Transition{}, false
	}

	signals := 0

	expectedPinbar := types.PinbarBullish
	if plan.Direction == types.DirectionShort {
		expectedPinbar = types.PinbarBearish
	}
	if metrics.Pinbar == expectedPinbar {
		signals++
	}

	if metrics.OBSweepDetected {
		signals++
	}

	if metrics.RVOL != nil && *metrics.RVOL < 0.8 {
		signals++
	}

	// Rejection candle structure tag: a second, independent +1 next to
	// the pinbar check above (§9 collapses the source's overlapping
	// pinbar/candle_structure flags into two separate signals). It does
	// not reuse the pinbar classification; it looks at wick dominance on
	// the defending side of the last closed bar (see rejectionStructure).
	if market.LastClosedBar != nil && rejectionStructure(plan.Direction, *market.LastClosedBar) {
		signals++
	}

	defendingImbalance := metrics.OBImbalanceLong
	if plan.Direction == types.DirectionShort {
		defendingImbalance = metrics.OBImbalanceShort
	}
	if defendingImbalance > 2.0 {
		signals++
	}

	if signals < 2 {
		return types.Transition{}, false
	}

	return types.Transition{
		NewState:    types.StateTriggered,
		NewSubstate: types.SubstateRetestTriggered,
		Timestamp:   market.Timestamp,
		EmitSignal:  true,
		SignalContext: types.SignalContext{
			LastPrice: market.LastPrice,
			Metrics:   metrics,
			EntryMode: types.EntryModeRetest,
		},
	}, true
}

// rejectionStructure reports a wick dominance on the defending side of
// a bar, independent of the Pinbar classification (a clean pinbar can
// satisfy both): for a short plan defending the entry from above, an
// upper wick of at least half the range; for a long plan defending from
// below, a lower wick of at least half the range.
func rejectionStructure(dir types.Direction, c types.Candle) bool {
	r := c.Range()
	if r <= 0 {
		return false
	}
	if dir == types.DirectionShort {
		return c.UpperWick() >= 0.5*r
	}
	return c.LowerWick() >= 0.5*r
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
