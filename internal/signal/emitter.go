package signal

import (
	"log/slog"
	"time"

	"breakoutengine/pkg/types"
)

// PersistenceStore is the subset of the persistence interface (§6) the
// emitter needs: the cross-session half of idempotency, plus recording
// the record for audit/replay and updating its delivery status.
type PersistenceStore interface {
	IsDuplicate(planID, state string, ts time.Time) (bool, error)
	StoreSignal(s types.Signal) (string, error)
	UpdateDeliveryStatus(id string, status string) error
}

// Emitter is the stateful half of C8: it holds the in-memory dedup
// guard, the persistence store, and the configured sinks, and is
// responsible for (a) skipping already-emitted signals in memory,
// (b) skipping signals persistence already has a record of,
// (c) delivering to every sink with retry, optionally dead-lettering
// permanent failures (§4.7).
type Emitter struct {
	guard      *MemoryGuard
	store      PersistenceStore
	sinks      []Sink
	deadLetter *DeadLetterWriter // nil disables dead-lettering
	maxRetries int
	retryWait  time.Duration
	logger     *slog.Logger
}

// NewEmitter constructs an Emitter. maxRetries/retryWait govern the
// retry loop around each sink's Deliver call; a retryable outcome is
// retried up to maxRetries times with exponential-ish backoff starting
// at retryWait.
func NewEmitter(store PersistenceStore, sinks []Sink, deadLetter *DeadLetterWriter, maxRetries int, retryWait time.Duration, logger *slog.Logger) *Emitter {
	return &Emitter{
		guard:      NewMemoryGuard(),
		store:      store,
		sinks:      sinks,
		deadLetter: deadLetter,
		maxRetries: maxRetries,
		retryWait:  retryWait,
		logger:     logger.With("component", "signal-emitter"),
	}
}

// Emit runs the full idempotency + delivery pipeline for one signal.
// It returns true when the signal passed both duplicate guards and was
// handed to the sinks, whatever their delivery outcome; false means it
// was suppressed as a duplicate by either guard.
func (e *Emitter) Emit(s types.Signal) (delivered bool, err error) {
	key := DedupKey(s)
	if e.guard.CheckAndMark(key) {
		e.logger.Debug("signal suppressed: in-memory duplicate", "plan_id", s.PlanID, "state", s.State)
		return false, nil
	}

	if e.store != nil {
		dup, derr := e.store.IsDuplicate(s.PlanID, s.State, s.Timestamp)
		if derr != nil {
			e.logger.Error("persistence duplicate check failed", "plan_id", s.PlanID, "error", derr)
		} else if dup {
			e.logger.Debug("signal suppressed: persisted duplicate", "plan_id", s.PlanID, "state", s.State)
			return false, nil
		}
	}

	var id string
	if e.store != nil {
		id, err = e.store.StoreSignal(s)
		if err != nil {
			e.logger.Error("failed to persist signal", "plan_id", s.PlanID, "error", err)
		}
	}

	e.deliverToSinks(s, id)
	return true, nil
}

func (e *Emitter) deliverToSinks(s types.Signal, id string) {
	for _, sink := range e.sinks {
		result := e.deliverWithRetry(sink, s)
		if e.store != nil && id != "" {
			if err := e.store.UpdateDeliveryStatus(id, string(result.Outcome)); err != nil {
				e.logger.Error("failed to update delivery status", "plan_id", s.PlanID, "sink", sink.Name(), "error", err)
			}
		}
		if result.Outcome == OutcomePermanent || result.Outcome == OutcomeRetryable {
			if e.deadLetter != nil {
				if err := e.deadLetter.Write(s, sink.Name(), result); err != nil {
					e.logger.Error("failed to write dead letter", "plan_id", s.PlanID, "sink", sink.Name(), "error", err)
				}
			}
		}
	}
}

// deliverWithRetry retries a single sink's Deliver call on a Retryable
// outcome, exponential-ish backoff starting at retryWait, up to
// maxRetries retries (maxRetries+1 attempts in all). A Permanent outcome
// or a Success short-circuits.
func (e *Emitter) deliverWithRetry(sink Sink, s types.Signal) DeliveryResult {
	wait := e.retryWait
	var last DeliveryResult

	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		results := sink.Deliver([]types.Signal{s})
		if len(results) == 0 {
			last = DeliveryResult{Outcome: OutcomePermanent, Message: "sink returned no result"}
			break
		}
		last = results[0]
		if last.Outcome == OutcomeSuccess || last.Outcome == OutcomePermanent {
			break
		}
		if attempt < e.maxRetries {
			time.Sleep(wait)
			wait *= 2
		}
	}

	if last.Outcome != OutcomeSuccess {
		e.logger.Warn("signal delivery did not succeed",
			"plan_id", s.PlanID, "sink", sink.Name(), "outcome", last.Outcome, "message", last.Message)
	}
	return last
}
