// Package evaluator implements the breakout evaluator (C6), the pure
// heart of the system: given a plan's runtime state, the plan
// definition, a market context, a metrics snapshot and merged config,
// it produces zero or one Transition. No I/O, no hidden state.
package evaluator

import (
	"time"

	"breakoutengine/pkg/types"
)

// MarketContext is the per-tick, per-instrument view the engine
// coordinator builds before evaluating any plan (§4.8 step 5).
type MarketContext struct {
	LastPrice     float64
	Timestamp     time.Time // authoritative market time (§5)
	LastClosedBar *types.Candle
	BarRange      float64
	CurrBook      *types.BookSnap
	PrevBook      *types.BookSnap
}
