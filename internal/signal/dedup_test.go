package signal

import (
	"testing"
	"time"

	"breakoutengine/pkg/types"
)

func TestDedupKey_StableForIdenticalTuple(t *testing.T) {
	t.Parallel()
	s1 := types.Signal{PlanID: "p1", State: "triggered", Timestamp: time.Unix(10, 0)}
	s2 := types.Signal{PlanID: "p1", State: "triggered", Timestamp: time.Unix(10, 0)}

	if DedupKey(s1) != DedupKey(s2) {
		t.Fatal("expected identical dedup keys for an identical tuple")
	}
	if len(DedupKey(s1)) != 16 {
		t.Fatalf("got key length %d, want 16", len(DedupKey(s1)))
	}
}

func TestDedupKey_DiffersOnAnyTupleField(t *testing.T) {
	t.Parallel()
	base := types.Signal{PlanID: "p1", State: "triggered", Timestamp: time.Unix(10, 0)}
	diffPlan := base
	diffPlan.PlanID = "p2"
	diffState := base
	diffState.State = "invalid"
	diffTS := base
	diffTS.Timestamp = time.Unix(11, 0)

	key := DedupKey(base)
	if DedupKey(diffPlan) == key || DedupKey(diffState) == key || DedupKey(diffTS) == key {
		t.Fatal("expected a differing tuple field to change the dedup key")
	}
}

func TestMemoryGuard_SecondCheckReportsAlreadySeen(t *testing.T) {
	t.Parallel()
	g := NewMemoryGuard()
	if g.CheckAndMark("k1") {
		t.Fatal("expected the first check to report unseen")
	}
	if !g.CheckAndMark("k1") {
		t.Fatal("expected the second check of the same key to report seen")
	}
}

func TestMemoryGuard_DistinctKeysAreIndependent(t *testing.T) {
	t.Parallel()
	g := NewMemoryGuard()
	g.CheckAndMark("k1")
	if g.CheckAndMark("k2") {
		t.Fatal("expected a different key to be unseen")
	}
}
