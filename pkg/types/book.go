package types

import "time"

// BookSide distinguishes the bid side from the ask side of an order book.
type BookSide string

const (
	SideNone BookSide = "none"
	SideBid  BookSide = "bid"
	SideAsk  BookSide = "ask"
)

// BookLevel is a single price level. It enforces no invariant itself:
// the ingest layer does not drop zero-size levels, it rejects a whole
// snapshot that has any level with a non-positive price or size
// (BookSnap.Valid).
type BookLevel struct {
	Price float64
	Size  float64
}

// Notional returns price * size.
func (l BookLevel) Notional() float64 {
	return l.Price * l.Size
}

// BookSnap is a full order-book snapshot for one instrument at one
// instant. Bids are ordered by price descending, asks by price
// ascending. Immutable once constructed.
type BookSnap struct {
	TS   time.Time
	Bids []BookLevel
	Asks []BookLevel
}

// BestBid returns the highest bid level and true, or the zero value and
// false if there are no bids.
func (b BookSnap) BestBid() (BookLevel, bool) {
	if len(b.Bids) == 0 {
		return BookLevel{}, false
	}
	return b.Bids[0], true
}

// BestAsk returns the lowest ask level and true, or the zero value and
// false if there are no asks.
func (b BookSnap) BestAsk() (BookLevel, bool) {
	if len(b.Asks) == 0 {
		return BookLevel{}, false
	}
	return b.Asks[0], true
}

// Mid returns (best_bid + best_ask) / 2 when both sides are present.
func (b BookSnap) Mid() (float64, bool) {
	bid, okB := b.BestBid()
	ask, okA := b.BestAsk()
	if !okB || !okA {
		return 0, false
	}
	return (bid.Price + ask.Price) / 2, true
}

// Spread returns best_ask - best_bid when both sides are present.
func (b BookSnap) Spread() (float64, bool) {
	bid, okB := b.BestBid()
	ask, okA := b.BestAsk()
	if !okB || !okA {
		return 0, false
	}
	return ask.Price - bid.Price, true
}

// Valid reports whether the book satisfies best_bid < best_ask when both
// sides are non-empty, and that each side is sorted and strictly
// positive (price, size).
func (b BookSnap) Valid() bool {
	for i, l := range b.Bids {
		if l.Price <= 0 || l.Size <= 0 {
			return false
		}
		if i > 0 && b.Bids[i-1].Price < l.Price {
			return false
		}
	}
	for i, l := range b.Asks {
		if l.Price <= 0 || l.Size <= 0 {
			return false
		}
		if i > 0 && b.Asks[i-1].Price > l.Price {
			return false
		}
	}
	if bid, okB := b.BestBid(); okB {
		if ask, okA := b.BestAsk(); okA {
			return bid.Price < ask.Price
		}
	}
	return true
}

// TopNotional sums price*size over the top n levels of a side.
func TopNotional(levels []BookLevel, n int) float64 {
	var total float64
	for i, l := range levels {
		if i >= n {
			break
		}
		total += l.Notional()
	}
	return total
}
