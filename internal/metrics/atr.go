// Package metrics implements the stateless derived-metrics calculator
// (C4): ATR/NATR, RVOL, candle-structure (pinbar) detection, and
// order-book imbalance/sweep detection. Every function here is pure
// given the candle/volume slices and book snapshots it is handed;
// callers (the engine coordinator) own the store.
package metrics

import "breakoutengine/pkg/types"

// TrueRange computes the true range of candle i given the previous
// candle's close, per §4.3. For the first bar in a series (no
// previous close), pass prevClose = candle's own open so the formula
// degenerates to high-low; callers typically use TrueRangeSeries
// instead of calling this directly for i=0.
func TrueRange(c types.Candle, prevClose float64, hasPrev bool) float64 {
	if !hasPrev {
		return c.Range()
	}
	a := c.Range()
	b := abs(c.High - prevClose)
	d := abs(c.Low - prevClose)
	return max(a, max(b, d))
}

// ATR computes the simple mean of the last `period` true ranges over a
// closed-candle series (oldest-first). Returns nil if fewer than
// `period` bars are available.
func ATR(candles []types.Candle, period int) *float64 {
	if period < 1 || len(candles) < period {
		return nil
	}
	trs := trueRangeSeries(candles)
	if len(trs) < period {
		return nil
	}
	window := trs[len(trs)-period:]
	var sum float64
	for _, tr := range window {
		sum += tr
	}
	v := sum / float64(period)
	return &v
}

func trueRangeSeries(candles []types.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		if i == 0 {
			out[i] = c.Range()
			continue
		}
		out[i] = TrueRange(c, candles[i-1].Close, true)
	}
	return out
}

// NATR returns 100*atr/close when atr is defined and close > 0.
func NATR(atr *float64, close float64) *float64 {
	if atr == nil || close <= 0 {
		return nil
	}
	v := 100 * (*atr) / close
	return &v
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
