package stats

import (
	"testing"

	"breakoutengine/internal/errs"
	"breakoutengine/pkg/types"
)

func TestCounters_TickIncrements(t *testing.T) {
	t.Parallel()
	c := New()
	c.Tick()
	c.Tick()
	if got := c.Snapshot().TicksProcessed; got != 2 {
		t.Fatalf("got %d, want 2", got)
	}
}

func TestCounters_RecordCandleOutcome_TalliesByKind(t *testing.T) {
	t.Parallel()
	c := New()
	c.RecordCandleOutcome(types.Accepted(nil))
	c.RecordCandleOutcome(types.Skipped("stale"))
	c.RecordCandleOutcome(types.Rejected(types.DataSpikeFiltered))
	c.RecordCandleOutcome(types.Rejected(types.DataSpikeFiltered))

	snap := c.Snapshot()
	if snap.CandlesAccepted != 1 || snap.CandlesSkipped != 1 {
		t.Fatalf("got accepted=%d skipped=%d", snap.CandlesAccepted, snap.CandlesSkipped)
	}
	if snap.CandlesRejected[types.DataSpikeFiltered] != 2 {
		t.Fatalf("got rejected[spike_filtered]=%d, want 2", snap.CandlesRejected[types.DataSpikeFiltered])
	}
}

func TestCounters_RecordSignal_TalliesByLifecycleState(t *testing.T) {
	t.Parallel()
	c := New()
	c.RecordSignal(types.StateTriggered)
	c.RecordSignal(types.StateTriggered)
	c.RecordSignal(types.StateInvalid)

	snap := c.Snapshot()
	if snap.SignalsEmitted[types.StateTriggered] != 2 || snap.SignalsEmitted[types.StateInvalid] != 1 {
		t.Fatalf("got %+v", snap.SignalsEmitted)
	}
}

func TestCounters_RecordFault_TalliesByKind(t *testing.T) {
	t.Parallel()
	c := New()
	c.RecordFault(errs.FaultMetrics)
	c.RecordFault(errs.FaultPersistence)
	c.RecordFault(errs.FaultPersistence)

	snap := c.Snapshot()
	if snap.MetricsFaults != 1 || snap.PersistenceFaults != 2 {
		t.Fatalf("got metrics=%d persistence=%d", snap.MetricsFaults, snap.PersistenceFaults)
	}
}

func TestCounters_Snapshot_IsIndependentCopy(t *testing.T) {
	t.Parallel()
	c := New()
	c.RecordCandleOutcome(types.Rejected(types.DataMalformed))

	snap := c.Snapshot()
	snap.CandlesRejected[types.DataMalformed] = 999

	if c.Snapshot().CandlesRejected[types.DataMalformed] != 1 {
		t.Fatal("mutating a snapshot must not affect the live counters")
	}
}
