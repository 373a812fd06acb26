// Package signal implements the contract-compliant signal formatter
// (C8): strength scoring, idempotent emission, and delivery to
// configured sinks. Formatting is a pure function of a plan, its
// runtime state, and the transition that produced the emission;
// emission (dedup + delivery) is stateful and owned by the Emitter.
package signal

import (
	"math"

	"github.com/shopspring/decimal"

	"breakoutengine/pkg/types"
)

// Format builds a contract-compliant Signal record for a transition
// that requested emission (§4.7). The caller (engine coordinator) has
// already applied the transition to runtime before calling Format, so
// runtime.State/Substate/ArmedAt/TriggeredAt/InvalidReason reflect the
// post-transition record.
func Format(plan types.Plan, runtime types.PlanRuntimeState, t types.Transition) types.Signal {
	sig := types.Signal{
		PlanID:          plan.ID,
		InstrumentID:    plan.InstrumentID,
		State:           string(runtime.State),
		ProtocolVersion: types.ProtocolVersion,
		Runtime: types.SignalRuntime{
			ArmedAt:       runtime.ArmedAt,
			TriggeredAt:   runtime.TriggeredAt,
			BreakTS:       runtime.BreakTS,
			Substate:      runtime.Substate,
			InvalidReason: runtime.InvalidReason,
		},
		Timestamp:      t.Timestamp,
		LastPrice:      t.SignalContext.LastPrice,
		LastPriceExact: decimal.NewFromFloat(t.SignalContext.LastPrice),
		Metrics:        formatMetrics(t.SignalContext.Metrics),
		StrengthScore: strengthScore(runtime.State, t.SignalContext.Metrics),
	}

	if runtime.State == types.StateTriggered {
		sig.EntryMode = t.SignalContext.EntryMode
	}

	return sig
}

func formatMetrics(m types.MetricsSnapshot) types.SignalMetrics {
	return types.SignalMetrics{
		RVOL:             m.RVOL,
		NATRPct:          m.NATRPct,
		ATR:              m.ATR,
		Pinbar:           m.Pinbar != types.PinbarNone,
		PinbarType:       m.Pinbar,
		OBSweepDetected:  m.OBSweepDetected,
		OBSweepSide:      m.OBSweepSide,
		OBImbalanceLong:  m.OBImbalanceLong,
		OBImbalanceShort: m.OBImbalanceShort,
	}
}

// strengthScore implements §4.7's additive scoring, clipped to 100 and
// rounded to one decimal. Invalid/Expired emissions score to the base
// 30 only.
func strengthScore(state types.LifecycleState, m types.MetricsSnapshot) float64 {
	if state != types.StateTriggered {
		return 30.0
	}

	score := 30.0

	if m.RVOL != nil {
		score += 25 * clamp((*m.RVOL-1)/2, 0, 1)
	}

	if m.NATRPct != nil && *m.NATRPct >= 0.5 && *m.NATRPct <= 5 {
		score += 25
	}

	if m.Pinbar != types.PinbarNone {
		score += 10
	}

	if m.OBSweepDetected {
		score += 10
	}

	if score > 100 {
		score = 100
	}
	return math.Round(score*10) / 10
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
