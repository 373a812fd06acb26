package types

import "time"

// PinbarType classifies the candle-structure signal derived from a
// single closed bar.
type PinbarType string

const (
	PinbarNone    PinbarType = "none"
	PinbarBullish PinbarType = "bullish"
	PinbarBearish PinbarType = "bearish"
)

// MetricsSnapshot is the derived-metrics view for one instrument at one
// tick. Optional fields are nil when undefined (insufficient history,
// zero denominator, etc.) rather than zero-valued, so downstream gates
// can distinguish "failed" from "absent".
type MetricsSnapshot struct {
	TS time.Time

	ATR     *float64
	NATRPct *float64
	RVOL    *float64

	Pinbar PinbarType

	OBSweepDetected bool
	OBSweepSide     BookSide

	OBImbalanceLong  float64
	OBImbalanceShort float64
}

// Sufficient reports whether ATR, NATR% and RVOL are all present, the
// bar required for a plan to be evaluated against confirmation gates.
func (m MetricsSnapshot) Sufficient() bool {
	return m.ATR != nil && m.NATRPct != nil && m.RVOL != nil
}

// FloatPtr is a small helper for constructing optional-float fields.
func FloatPtr(f float64) *float64 {
	return &f
}
