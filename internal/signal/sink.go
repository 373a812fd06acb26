package signal

import "breakoutengine/pkg/types"

// Outcome is the per-signal delivery result a Sink reports back (§6
// Sink interface).
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeRetryable Outcome = "retryable"
	OutcomePermanent Outcome = "permanent"
)

// DeliveryResult pairs a delivery Outcome with an optional message
// (populated for Retryable/Permanent).
type DeliveryResult struct {
	Outcome Outcome
	Message string
}

// Sink is the abstract signal delivery transport (§4.7, §6). The three
// concrete sinks described by the spec — HTTP POST, file (NDJSON or
// array), stdout — are external collaborators; this package supplies
// one concrete implementation of each, all conforming to this
// interface so the Emitter never special-cases a sink's kind.
type Sink interface {
	Name() string
	HealthCheck() bool
	Deliver(signals []types.Signal) []DeliveryResult
}
