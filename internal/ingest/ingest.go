// Package ingest implements tick ingest & validation (C2): accepting
// normalized candles and order-book snapshots, rejecting stale,
// out-of-order, or spike-outlier data, and updating the per-instrument
// store on acceptance.
package ingest

import (
	"time"

	"breakoutengine/internal/metrics"
	"breakoutengine/internal/store"
	"breakoutengine/pkg/types"
)

// Config bundles the tunables §4.1 names: the spike filter and the
// staleness/clock-skew window.
type Config struct {
	SpikeFilterEnable  bool
	SpikeATRMultiplier float64
	ATRPeriod          int
	MaxAge             time.Duration // default 5 minutes
	ClockSkewGrace     time.Duration // default 60 seconds
}

// DefaultConfig returns the spec's stated defaults.
func DefaultConfig() Config {
	return Config{
		SpikeFilterEnable:  true,
		SpikeATRMultiplier: 5.0,
		ATRPeriod:          14,
		MaxAge:             5 * time.Minute,
		ClockSkewGrace:     60 * time.Second,
	}
}

// IngestCandle applies the per-candle policy of §4.1 in order:
// duplicate/replace, staleness, spike filter, business validation,
// then commit.
func IngestCandle(s *store.InstrumentStore, timeframe string, c types.Candle, cfg Config, wallClockNow time.Time) types.IngestOutcome {
	replace := false

	if existing, found := s.FindCandleAt(timeframe, c.TS); found {
		if !c.IsClosed && existing.IsClosed {
			return types.Skipped("duplicate")
		}
		replace = true
	} else if last, ok := s.CandleRing(timeframe).Last(); ok && last.IsClosed {
		if c.TS.Before(last.TS) {
			return types.Skipped("stale")
		}
	}

	if cfg.SpikeFilterEnable {
		if lastPrice, _ := s.LastPrice(); lastPrice > 0 {
			if rejected := spikeFilter(s, timeframe, c, lastPrice, cfg); rejected {
				return types.Rejected(types.DataSpikeFiltered)
			}
		}
	}

	if !c.Valid() {
		return types.Rejected(types.DataMalformed)
	}
	if c.TS.Before(wallClockNow.Add(-cfg.MaxAge)) {
		return types.Rejected(types.DataTemporal)
	}
	if c.TS.After(wallClockNow.Add(cfg.ClockSkewGrace)) {
		return types.Rejected(types.DataTemporal)
	}

	s.PushCandle(timeframe, c, replace)
	return commit(s, c)
}

func commit(s *store.InstrumentStore, c types.Candle) types.IngestOutcome {
	s.SetLastPrice(c.Close, c.TS)
	price := c.Close
	return types.Accepted(&price)
}

// spikeFilter applies §4.1 step 3: for each OHLC price, require
// |price - last_price| <= max(atr*multiplier, 0.5*last_price). Falls
// back to the 50% rule alone when the ring doesn't yet have enough
// bars for ATR.
func spikeFilter(s *store.InstrumentStore, timeframe string, c types.Candle, lastPrice float64, cfg Config) bool {
	closed := closedCandles(s, timeframe)
	atr := metrics.ATR(closed, cfg.ATRPeriod)

	bound := 0.5 * lastPrice
	if atr != nil {
		atrBound := *atr * cfg.SpikeATRMultiplier
		if atrBound > bound {
			bound = atrBound
		}
	}

	for _, p := range []float64{c.Open, c.High, c.Low, c.Close} {
		if abs(p-lastPrice) > bound {
			return true
		}
	}
	return false
}

func closedCandles(s *store.InstrumentStore, timeframe string) []types.Candle {
	items := s.CandleRing(timeframe).Items()
	out := make([]types.Candle, 0, len(items))
	for _, c := range items {
		if c.IsClosed {
			out = append(out, c)
		}
	}
	return out
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// IngestBook applies the per-book policy of §4.1: reject out-of-order,
// validate shape, shift prev/curr, update last_price from mid.
func IngestBook(s *store.InstrumentStore, b types.BookSnap) types.IngestOutcome {
	_, curr := s.Books()
	if curr != nil && b.TS.Before(curr.TS) {
		return types.Skipped("out_of_order")
	}
	if len(b.Bids) == 0 || len(b.Asks) == 0 {
		return types.Rejected(types.DataPartial)
	}
	if !b.Valid() {
		return types.Rejected(types.DataPartial)
	}

	s.ApplyBook(b)
	if mid, ok := b.Mid(); ok {
		s.SetLastPrice(mid, b.TS)
		return types.Accepted(&mid)
	}
	return types.Accepted(nil)
}
