package types

import "time"

// Direction is the side a breakout plan trades.
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

// InvalidationKind enumerates the tagged variant of invalidation
// condition a plan may declare. Unknown tags are rejected at plan
// admission.
type InvalidationKind string

const (
	InvalidationPriceAbove InvalidationKind = "price_above"
	InvalidationPriceBelow InvalidationKind = "price_below"
	InvalidationTimeLimit  InvalidationKind = "time_limit"
)

// InvalidationCondition is a single pre-invalidation rule, parsed once
// at plan admission from the plan's extra.invalidation_conditions list.
type InvalidationCondition struct {
	Kind            InvalidationKind
	Level           float64       // used by PriceAbove / PriceBelow
	Duration        time.Duration // used by TimeLimit
}

// BreakoutParamOverrides is the subset of BreakoutParameters a plan may
// override via extra.breakout_params. Nil fields mean "inherit".
type BreakoutParamOverrides struct {
	PenetrationPct       *float64
	PenetrationNATRMult  *float64
	MinRVOL              *float64
	ConfirmClose         *bool
	ConfirmTimeMS        *int64
	AllowRetestEntry     *bool
	RetestBandPct        *float64
	FakeoutCloseInvalidate *bool
	OBSweepCheck         *bool
	MinBreakRangeATR     *float64
}

// Plan is the operator-supplied, immutable definition of a breakout
// trading plan. EntryType is always "breakout"; other values are
// rejected at admission.
type Plan struct {
	ID             string
	InstrumentID   string
	Direction      Direction
	EntryPrice     float64
	EntryType      string
	CreatedAt      time.Time
	StopLoss       *float64
	TargetPrice    *float64
	Invalidations  []InvalidationCondition
	ParamOverrides BreakoutParamOverrides
}

// Validate checks the required-field and shape invariants from §9 and
// §6 (add_plan): non-empty id/instrument, direction in {long,short},
// entry_type == "breakout", entry_price > 0, and every invalidation
// condition of a known kind.
func (p Plan) Validate() error {
	if p.ID == "" {
		return errPlanField("id", "must not be empty")
	}
	if p.InstrumentID == "" {
		return errPlanField("instrument_id", "must not be empty")
	}
	if p.Direction != DirectionLong && p.Direction != DirectionShort {
		return errPlanField("direction", "must be long or short")
	}
	if p.EntryType != "breakout" {
		return errPlanField("entry_type", "must be breakout")
	}
	if p.EntryPrice <= 0 {
		return errPlanField("entry_price", "must be > 0")
	}
	for _, ic := range p.Invalidations {
		switch ic.Kind {
		case InvalidationPriceAbove, InvalidationPriceBelow, InvalidationTimeLimit:
		default:
			return errPlanField("invalidation_conditions", "unknown type "+string(ic.Kind))
		}
	}
	return nil
}

type planFieldError struct {
	field, reason string
}

func (e *planFieldError) Error() string {
	return "plan." + e.field + ": " + e.reason
}

func errPlanField(field, reason string) error {
	return &planFieldError{field: field, reason: reason}
}
