// Package stats implements the runtime counters named but left
// unspecified by get_runtime_stats() (§6): ticks processed, ingest
// outcomes per data-quality kind, signals emitted per lifecycle state,
// and fault counts per fault kind. Grounded in the reference risk
// manager's mutex-guarded aggregation shape, repurposed here as a
// plain counters store (no kill-switch domain applies to this engine).
package stats

import (
	"sync"

	"breakoutengine/internal/errs"
	"breakoutengine/pkg/types"
)

// Counters aggregates engine-wide runtime statistics. All operations
// are mutex-guarded; a snapshot is a value copy so callers (the
// dashboard) never race with the engine's writes.
type Counters struct {
	mu sync.Mutex

	TicksProcessed int64

	CandlesAccepted int64
	CandlesSkipped  int64
	CandlesRejected map[types.DataQualityKind]int64

	BooksAccepted int64
	BooksSkipped  int64
	BooksRejected map[types.DataQualityKind]int64

	SignalsEmitted map[types.LifecycleState]int64

	MetricsFaults         int64
	StateTransitionFaults int64
	PersistenceFaults     int64
	DeliveryFaults        int64
}

// New constructs an empty Counters.
func New() *Counters {
	return &Counters{
		CandlesRejected: make(map[types.DataQualityKind]int64),
		BooksRejected:   make(map[types.DataQualityKind]int64),
		SignalsEmitted:  make(map[types.LifecycleState]int64),
	}
}

// Tick increments the processed-tick counter.
func (c *Counters) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.TicksProcessed++
}

// RecordCandleOutcome tallies a candle ingest outcome.
func (c *Counters) RecordCandleOutcome(o types.IngestOutcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch o.Kind {
	case types.OutcomeAccepted:
		c.CandlesAccepted++
	case types.OutcomeSkipped:
		c.CandlesSkipped++
	case types.OutcomeRejected:
		c.CandlesRejected[o.RejectKind]++
	}
}

// RecordBookOutcome tallies a book ingest outcome.
func (c *Counters) RecordBookOutcome(o types.IngestOutcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch o.Kind {
	case types.OutcomeAccepted:
		c.BooksAccepted++
	case types.OutcomeSkipped:
		c.BooksSkipped++
	case types.OutcomeRejected:
		c.BooksRejected[o.RejectKind]++
	}
}

// RecordSignal tallies an emitted signal by its lifecycle state.
func (c *Counters) RecordSignal(state types.LifecycleState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SignalsEmitted[state]++
}

// RecordFault tallies a system fault by kind.
func (c *Counters) RecordFault(kind errs.SystemFaultKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch kind {
	case errs.FaultMetrics:
		c.MetricsFaults++
	case errs.FaultStateTransition:
		c.StateTransitionFaults++
	case errs.FaultPersistence:
		c.PersistenceFaults++
	case errs.FaultDelivery:
		c.DeliveryFaults++
	}
}

// Snapshot is a read-only value copy of Counters for external
// consumers (the dashboard, get_runtime_stats()).
type Snapshot struct {
	TicksProcessed        int64
	CandlesAccepted       int64
	CandlesSkipped        int64
	CandlesRejected       map[types.DataQualityKind]int64
	BooksAccepted         int64
	BooksSkipped          int64
	BooksRejected         map[types.DataQualityKind]int64
	SignalsEmitted        map[types.LifecycleState]int64
	MetricsFaults         int64
	StateTransitionFaults int64
	PersistenceFaults     int64
	DeliveryFaults        int64
}

// Snapshot returns a point-in-time copy of all counters.
func (c *Counters) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		TicksProcessed:        c.TicksProcessed,
		CandlesAccepted:       c.CandlesAccepted,
		CandlesSkipped:        c.CandlesSkipped,
		CandlesRejected:       copyKindMap(c.CandlesRejected),
		BooksAccepted:         c.BooksAccepted,
		BooksSkipped:          c.BooksSkipped,
		BooksRejected:         copyKindMap(c.BooksRejected),
		SignalsEmitted:        copyStateMap(c.SignalsEmitted),
		MetricsFaults:         c.MetricsFaults,
		StateTransitionFaults: c.StateTransitionFaults,
		PersistenceFaults:     c.PersistenceFaults,
		DeliveryFaults:        c.DeliveryFaults,
	}
}

func copyKindMap(m map[types.DataQualityKind]int64) map[types.DataQualityKind]int64 {
	out := make(map[types.DataQualityKind]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyStateMap(m map[types.LifecycleState]int64) map[types.LifecycleState]int64 {
	out := make(map[types.LifecycleState]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
