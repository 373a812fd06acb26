package metrics

import (
	"math"
	"testing"
	"time"

	"breakoutengine/pkg/types"
)

func testOBParams() OrderbookParams {
	return OrderbookParams{
		MaxLevels:            5,
		DepletionThreshold:   0.2,
		ImbalanceThreshold:   1.5,
		MinDepletionNotional: 100,
	}
}

func TestImbalance_NilBookReturnsZero(t *testing.T) {
	t.Parallel()
	long, short := Imbalance(nil, testOBParams())
	if long != 0 || short != 0 {
		t.Fatalf("got long=%v short=%v", long, short)
	}
}

func TestImbalance_EmptyAskSideIsPositiveInfinityLong(t *testing.T) {
	t.Parallel()
	b := &types.BookSnap{
		Bids: []types.BookLevel{{Price: 10, Size: 5}},
		Asks: nil,
	}
	long, short := Imbalance(b, testOBParams())
	if !math.IsInf(long, 1) {
		t.Fatalf("expected +Inf long, got %v", long)
	}
	if short != 0 {
		t.Fatalf("expected 0 short, got %v", short)
	}
}

func TestSweep_NoPriorSnapshotReturnsNone(t *testing.T) {
	t.Parallel()
	curr := &types.BookSnap{Bids: []types.BookLevel{{Price: 10, Size: 1}}, Asks: []types.BookLevel{{Price: 11, Size: 1}}}
	detected, side := Sweep(nil, curr, testOBParams())
	if detected || side != types.SideNone {
		t.Fatalf("got detected=%v side=%v", detected, side)
	}
}

func TestSweep_BidDepletionDetectsBidSide(t *testing.T) {
	t.Parallel()
	prev := &types.BookSnap{
		TS:   time.Unix(0, 0),
		Bids: []types.BookLevel{{Price: 10, Size: 100}},
		Asks: []types.BookLevel{{Price: 11, Size: 100}},
	}
	curr := &types.BookSnap{
		TS:   time.Unix(1, 0),
		Bids: []types.BookLevel{{Price: 10, Size: 5}}, // notional dropped from 1000 to 50
		Asks: []types.BookLevel{{Price: 11, Size: 100}},
	}
	detected, side := Sweep(prev, curr, testOBParams())
	if !detected || side != types.SideBid {
		t.Fatalf("got detected=%v side=%v", detected, side)
	}
}

func TestSweep_NoQualifyingDepletionOrImbalanceReturnsNone(t *testing.T) {
	t.Parallel()
	prev := &types.BookSnap{
		Bids: []types.BookLevel{{Price: 10, Size: 100}},
		Asks: []types.BookLevel{{Price: 11, Size: 100}},
	}
	curr := &types.BookSnap{
		Bids: []types.BookLevel{{Price: 10, Size: 99}},
		Asks: []types.BookLevel{{Price: 11, Size: 99}},
	}
	detected, side := Sweep(prev, curr, testOBParams())
	if detected || side != types.SideNone {
		t.Fatalf("got detected=%v side=%v", detected, side)
	}
}

func TestDepletes_NonPositivePrevNeverQualifies(t *testing.T) {
	t.Parallel()
	ratio, qualifies := depletes(0, 0, testOBParams())
	if qualifies || ratio != 0 {
		t.Fatalf("got ratio=%v qualifies=%v", ratio, qualifies)
	}
}

func TestDepletes_RequiresBothFractionalAndAbsoluteFloor(t *testing.T) {
	t.Parallel()
	p := testOBParams()
	// 50% drop but only 10 notional absolute -> below the 100 floor.
	if _, qualifies := depletes(20, 10, p); qualifies {
		t.Fatal("expected floor to block qualification")
	}
	// 50% drop, 500 notional absolute -> qualifies.
	if _, qualifies := depletes(1000, 500, p); !qualifies {
		t.Fatal("expected qualification")
	}
}
