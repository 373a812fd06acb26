package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProtocolVersion is the constant contract version stamped on every
// emitted signal.
const ProtocolVersion = "breakout-v1"

// SignalRuntime is the "runtime" sub-object in the signal contract: a
// closed record of optional ISO-8601 timestamps and the substate /
// invalid reason at the moment of emission.
type SignalRuntime struct {
	ArmedAt       *time.Time    `json:"armed_at,omitempty"`
	TriggeredAt   *time.Time    `json:"triggered_at,omitempty"`
	BreakTS       *time.Time    `json:"break_ts,omitempty"`
	Substate      Substate      `json:"substate"`
	InvalidReason InvalidReason `json:"invalid_reason,omitempty"`
}

// SignalMetrics is the "metrics" sub-object in the signal contract.
type SignalMetrics struct {
	RVOL             *float64   `json:"rvol,omitempty"`
	NATRPct          *float64   `json:"natr_pct,omitempty"`
	ATR              *float64   `json:"atr,omitempty"`
	Pinbar           bool       `json:"pinbar"`
	PinbarType       PinbarType `json:"pinbar_type"`
	OBSweepDetected  bool       `json:"ob_sweep_detected"`
	OBSweepSide      BookSide   `json:"ob_sweep_side"`
	OBImbalanceLong  float64    `json:"ob_imbalance_long"`
	OBImbalanceShort float64    `json:"ob_imbalance_short"`
}

// Signal is the contract-compliant, JSON-serializable record emitted on
// a Triggered/Invalid/Expired transition. Additional keys may be added
// by sinks but MUST NOT alter the semantics of these.
type Signal struct {
	PlanID          string        `json:"plan_id"`
	InstrumentID    string        `json:"instrument_id"`
	State           string        `json:"state"` // triggered | invalid | expired
	ProtocolVersion string        `json:"protocol_version"`
	Runtime         SignalRuntime `json:"runtime"`
	Timestamp       time.Time     `json:"timestamp"`
	LastPrice       float64       `json:"last_price"`
	// LastPriceExact carries the same value as LastPrice through
	// shopspring/decimal so external sinks that parse the JSON payload
	// don't inherit float64 serialization drift on the price a plan
	// fired against.
	LastPriceExact  decimal.Decimal `json:"last_price_exact"`
	Metrics         SignalMetrics `json:"metrics"`
	StrengthScore   float64       `json:"strength_score"`
	EntryMode       EntryMode     `json:"entry_mode,omitempty"`
}

// DedupKey returns the idempotency tuple (plan_id, state, timestamp)
// used to build the 16-char dedup hash (see internal/signal).
func (s Signal) DedupKey() (planID, state string, ts time.Time) {
	return s.PlanID, s.State, s.Timestamp
}
