package config

import (
	"fmt"

	"breakoutengine/pkg/types"
)

// Merge overlays instrument-level overrides and then plan-level
// overrides onto the global BreakoutParameters, producing the single
// merged record used to evaluate one plan (§6 Configuration).
func Merge(global BreakoutParameters, instrument *BreakoutOverrides, plan types.BreakoutParamOverrides) BreakoutParameters {
	merged := global
	if instrument != nil {
		applyOverrides(&merged, *instrument)
	}
	applyPlanOverrides(&merged, plan)
	return merged
}

func applyOverrides(p *BreakoutParameters, o BreakoutOverrides) {
	if o.PenetrationPct != nil {
		p.PenetrationPct = *o.PenetrationPct
	}
	if o.PenetrationNATRMult != nil {
		p.PenetrationNATRMult = *o.PenetrationNATRMult
	}
	if o.MinRVOL != nil {
		p.MinRVOL = *o.MinRVOL
	}
	if o.ConfirmClose != nil {
		p.ConfirmClose = *o.ConfirmClose
	}
	if o.ConfirmTimeMS != nil {
		p.ConfirmTimeMS = *o.ConfirmTimeMS
	}
	if o.AllowRetestEntry != nil {
		p.AllowRetestEntry = *o.AllowRetestEntry
	}
	if o.RetestBandPct != nil {
		p.RetestBandPct = *o.RetestBandPct
	}
	if o.FakeoutCloseInvalidate != nil {
		p.FakeoutCloseInvalidate = *o.FakeoutCloseInvalidate
	}
	if o.OBSweepCheck != nil {
		p.OBSweepCheck = *o.OBSweepCheck
	}
	if o.MinBreakRangeATR != nil {
		p.MinBreakRangeATR = *o.MinBreakRangeATR
	}
}

func applyPlanOverrides(p *BreakoutParameters, o types.BreakoutParamOverrides) {
	applyOverrides(p, BreakoutOverrides{
		PenetrationPct:         o.PenetrationPct,
		PenetrationNATRMult:    o.PenetrationNATRMult,
		MinRVOL:                o.MinRVOL,
		ConfirmClose:           o.ConfirmClose,
		ConfirmTimeMS:          o.ConfirmTimeMS,
		AllowRetestEntry:       o.AllowRetestEntry,
		RetestBandPct:          o.RetestBandPct,
		FakeoutCloseInvalidate: o.FakeoutCloseInvalidate,
		OBSweepCheck:           o.OBSweepCheck,
		MinBreakRangeATR:       o.MinBreakRangeATR,
	})
}

// ValidatePlanOverrides checks that a plan's parameter overrides fall
// within legal ranges before the plan is admitted (§6 add_plan).
func ValidatePlanOverrides(o types.BreakoutParamOverrides) error {
	if o.PenetrationPct != nil && *o.PenetrationPct < 0 {
		return fmt.Errorf("penetration_pct must be >= 0")
	}
	if o.PenetrationNATRMult != nil && *o.PenetrationNATRMult < 0 {
		return fmt.Errorf("penetration_natr_mult must be >= 0")
	}
	if o.MinRVOL != nil && *o.MinRVOL < 0 {
		return fmt.Errorf("min_rvol must be >= 0")
	}
	if o.ConfirmTimeMS != nil && *o.ConfirmTimeMS < 0 {
		return fmt.Errorf("confirm_time_ms must be >= 0")
	}
	if o.RetestBandPct != nil && (*o.RetestBandPct < 0 || *o.RetestBandPct > 1) {
		return fmt.Errorf("retest_band_pct must be in [0,1]")
	}
	if o.MinBreakRangeATR != nil && *o.MinBreakRangeATR < 0 {
		return fmt.Errorf("min_break_range_atr must be >= 0")
	}
	return nil
}
