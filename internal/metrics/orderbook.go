package metrics

import (
	"math"

	"breakoutengine/pkg/types"
)

// OrderbookParams bundles the tunable thresholds from §6's orderbook.*
// config keys.
type OrderbookParams struct {
	MaxLevels            int
	DepletionThreshold   float64
	ImbalanceThreshold   float64
	MinDepletionNotional float64
}

// Imbalance computes the notional-based long/short imbalance ratios
// over the top MaxLevels of a book snapshot, per §4.3. Returns +Inf on
// the long side when the ask side has zero notional (and symmetrically
// for short); callers must clamp before placing these in a signal
// record's normalized range.
func Imbalance(b *types.BookSnap, p OrderbookParams) (long, short float64) {
	if b == nil {
		return 0, 0
	}
	bidNotional := types.TopNotional(b.Bids, p.MaxLevels)
	askNotional := types.TopNotional(b.Asks, p.MaxLevels)

	if askNotional == 0 {
		long = math.Inf(1)
	} else {
		long = bidNotional / askNotional
	}
	if bidNotional == 0 {
		short = math.Inf(1)
	} else {
		short = askNotional / bidNotional
	}
	return long, short
}

// Sweep detects order-book liquidity consumption between prev and curr
// snapshots, per §4.3. Returns detected=false, side=SideNone when
// either snapshot is absent or has an empty side (§8 boundary
// behavior: empty book side → sweep detection returns none).
func Sweep(prev, curr *types.BookSnap, p OrderbookParams) (detected bool, side types.BookSide) {
	if prev == nil || curr == nil {
		return false, types.SideNone
	}
	if len(prev.Bids) == 0 || len(prev.Asks) == 0 || len(curr.Bids) == 0 || len(curr.Asks) == 0 {
		return false, types.SideNone
	}

	prevBid := types.TopNotional(prev.Bids, p.MaxLevels)
	prevAsk := types.TopNotional(prev.Asks, p.MaxLevels)
	currBid := types.TopNotional(curr.Bids, p.MaxLevels)
	currAsk := types.TopNotional(curr.Asks, p.MaxLevels)

	if prevBid == 0 && prevAsk == 0 {
		return false, types.SideNone
	}

	bidDepletionRatio, bidQualifies := depletes(prevBid, currBid, p)
	askDepletionRatio, askQualifies := depletes(prevAsk, currAsk, p)

	longImbalance, shortImbalance := Imbalance(curr, p)
	// Bids swept -> imbalance shifts toward ask (short favored).
	bidQualifies = bidQualifies || shortImbalance > p.ImbalanceThreshold
	// Asks swept -> imbalance shifts toward bid (long favored).
	askQualifies = askQualifies || longImbalance > p.ImbalanceThreshold

	switch {
	case bidQualifies && askQualifies:
		if bidDepletionRatio >= askDepletionRatio {
			return true, types.SideBid
		}
		return true, types.SideAsk
	case bidQualifies:
		return true, types.SideBid
	case askQualifies:
		return true, types.SideAsk
	default:
		return false, types.SideNone
	}
}

// depletes reports whether a side's notional dropped by at least
// DepletionThreshold (fractionally) AND the absolute drop clears the
// MinDepletionNotional floor.
func depletes(prevNotional, currNotional float64, p OrderbookParams) (ratio float64, qualifies bool) {
	if prevNotional <= 0 {
		return 0, false
	}
	drop := prevNotional - currNotional
	if drop <= 0 {
		return 0, false
	}
	ratio = drop / prevNotional
	qualifies = ratio >= p.DepletionThreshold && drop >= p.MinDepletionNotional
	return ratio, qualifies
}
