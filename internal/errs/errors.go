// Package errs defines the two-axis error taxonomy from the error
// handling design (§7): data-quality faults are recoverable and
// continue processing; system faults are unrecoverable for the current
// plan/tick but isolated — they never corrupt state or abort other
// plans.
package errs

import (
	"fmt"

	"breakoutengine/pkg/types"
)

// DataQualityError wraps one of the recoverable DataQualityKind faults.
type DataQualityError struct {
	Kind   types.DataQualityKind
	Detail string
}

func (e *DataQualityError) Error() string {
	if e.Detail == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// NewDataQualityError constructs a DataQualityError.
func NewDataQualityError(kind types.DataQualityKind, detail string) *DataQualityError {
	return &DataQualityError{Kind: kind, Detail: detail}
}

// SystemFaultKind enumerates the unrecoverable-but-isolated fault
// taxonomy.
type SystemFaultKind string

const (
	FaultMetrics          SystemFaultKind = "metrics_fault"
	FaultStateTransition   SystemFaultKind = "state_transition_fault"
	FaultPersistence       SystemFaultKind = "persistence_fault"
	FaultDelivery          SystemFaultKind = "delivery_fault"
)

// SystemFaultError wraps one of the unrecoverable SystemFaultKind
// faults. It is always caught at a plan or tick boundary — it must
// never propagate out of evaluate_tick.
type SystemFaultError struct {
	Kind   SystemFaultKind
	PlanID string
	Detail string
	Err    error
}

func (e *SystemFaultError) Error() string {
	msg := fmt.Sprintf("%s", e.Kind)
	if e.PlanID != "" {
		msg += " plan=" + e.PlanID
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *SystemFaultError) Unwrap() error {
	return e.Err
}

// NewSystemFaultError constructs a SystemFaultError.
func NewSystemFaultError(kind SystemFaultKind, planID, detail string, err error) *SystemFaultError {
	return &SystemFaultError{Kind: kind, PlanID: planID, Detail: detail, Err: err}
}
