package metrics

import (
	"math"

	"breakoutengine/internal/errs"
	"breakoutengine/pkg/types"
)

// Params bundles every tunable the calculator needs for one Compute
// call, sourced from the merged config (§6).
type Params struct {
	ATRPeriod  int
	RVOLPeriod int
	Orderbook  OrderbookParams
}

// Calculator derives a MetricsSnapshot from a closed-bar series, a
// volume series, and order-book snapshots. It is stateless: all state
// lives in the caller-owned store (§4.3, §9 "omit legacy in-place
// methods that carry internal state").
type Calculator struct {
	params Params
}

// NewCalculator constructs a metrics Calculator.
func NewCalculator(p Params) *Calculator {
	return &Calculator{params: p}
}

// Compute derives the full MetricsSnapshot for one tick. closedCandles
// and volumes must be oldest-first. currentVolume is the most recent
// bar's volume (which may or may not yet be in `volumes`, per the
// ingest policy of only pushing closed bars).
func (c *Calculator) Compute(
	ts types.Candle,
	closedCandles []types.Candle,
	volumes []float64,
	currentVolume float64,
	prevBook, currBook *types.BookSnap,
) (types.MetricsSnapshot, error) {
	atr := ATR(closedCandles, c.params.ATRPeriod)
	natr := NATR(atr, ts.Close)
	rvol := RVOL(currentVolume, volumes, c.params.RVOLPeriod)
	pinbar := Pinbar(ts)

	sweepDetected, sweepSide := Sweep(prevBook, currBook, c.params.Orderbook)
	imbLong, imbShort := Imbalance(currBook, c.params.Orderbook)

	snap := types.MetricsSnapshot{
		TS:               ts.TS,
		ATR:              atr,
		NATRPct:          natr,
		RVOL:             rvol,
		Pinbar:           pinbar,
		OBSweepDetected:  sweepDetected,
		OBSweepSide:      sweepSide,
		OBImbalanceLong:  imbLong,
		OBImbalanceShort: imbShort,
	}

	if err := validate(snap); err != nil {
		return types.MetricsSnapshot{}, err
	}
	return snap, nil
}

// validate enforces §4.3's sanity bounds: any computed value that is
// NaN, infinite (where not semantically meaningful), negative where it
// shouldn't be, or absurdly large is a MetricsFault.
func validate(s types.MetricsSnapshot) error {
	if s.ATR != nil {
		if math.IsNaN(*s.ATR) || *s.ATR < 0 || *s.ATR > 1e6 {
			return errs.NewSystemFaultError(errs.FaultMetrics, "", "atr out of range", nil)
		}
	}
	if s.NATRPct != nil {
		if math.IsNaN(*s.NATRPct) || *s.NATRPct < 0 || *s.NATRPct > 100 {
			return errs.NewSystemFaultError(errs.FaultMetrics, "", "natr_pct out of range", nil)
		}
	}
	if s.RVOL != nil {
		if math.IsNaN(*s.RVOL) || *s.RVOL < 0 || *s.RVOL > 1000 {
			return errs.NewSystemFaultError(errs.FaultMetrics, "", "rvol out of range", nil)
		}
	}
	// Imbalance ratios may legitimately be +Inf (empty opposing side);
	// only a finite-but-absurd or negative value is a fault.
	if !math.IsInf(s.OBImbalanceLong, 1) && (s.OBImbalanceLong < 0 || s.OBImbalanceLong > 1000) {
		return errs.NewSystemFaultError(errs.FaultMetrics, "", "ob_imbalance_long out of range", nil)
	}
	if !math.IsInf(s.OBImbalanceShort, 1) && (s.OBImbalanceShort < 0 || s.OBImbalanceShort > 1000) {
		return errs.NewSystemFaultError(errs.FaultMetrics, "", "ob_imbalance_short out of range", nil)
	}
	return nil
}
