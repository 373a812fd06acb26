package types

// DataQualityKind enumerates the recoverable data-quality fault
// taxonomy (§7). These are continue-processing faults: the tick
// proceeds using whatever state already exists.
type DataQualityKind string

const (
	DataMalformed          DataQualityKind = "malformed"
	DataTemporal           DataQualityKind = "temporal"
	DataPartial            DataQualityKind = "partial"
	DataMissing            DataQualityKind = "missing"
	DataInsufficientHistory DataQualityKind = "insufficient_history"
	DataSpikeFiltered       DataQualityKind = "spike_filtered"
)

// IngestOutcomeKind distinguishes the three shapes IngestOutcome may
// take.
type IngestOutcomeKind string

const (
	OutcomeAccepted IngestOutcomeKind = "accepted"
	OutcomeSkipped  IngestOutcomeKind = "skipped"
	OutcomeRejected IngestOutcomeKind = "rejected"
)

// IngestOutcome is the result of ingest_candle / ingest_book (C2).
type IngestOutcome struct {
	Kind              IngestOutcomeKind
	LastPriceUpdated  *float64        // set iff Kind == Accepted and last_price changed
	SkipReason        string          // set iff Kind == Skipped
	RejectKind        DataQualityKind // set iff Kind == Rejected
}

// Accepted builds an Accepted outcome.
func Accepted(lastPrice *float64) IngestOutcome {
	return IngestOutcome{Kind: OutcomeAccepted, LastPriceUpdated: lastPrice}
}

// Skipped builds a Skipped outcome with the given reason.
func Skipped(reason string) IngestOutcome {
	return IngestOutcome{Kind: OutcomeSkipped, SkipReason: reason}
}

// Rejected builds a Rejected outcome with the given data-quality kind.
func Rejected(kind DataQualityKind) IngestOutcome {
	return IngestOutcome{Kind: OutcomeRejected, RejectKind: kind}
}
