package api

import (
	"time"

	"breakoutengine/internal/config"
	"breakoutengine/internal/stats"
)

// DashboardSnapshot is the complete read-only state the dashboard
// exposes over /api/snapshot and as the initial websocket payload.
type DashboardSnapshot struct {
	Timestamp time.Time `json:"timestamp"`

	Plans []PlanStatus `json:"plans"`

	Stats stats.Snapshot `json:"stats"`

	Config ConfigSummary `json:"config"`
}

// PlanStatus is the per-plan view exposed by the dashboard: the plan's
// static definition plus its current runtime state (§6 "dashboard /
// read-only snapshot").
type PlanStatus struct {
	PlanID       string     `json:"plan_id"`
	InstrumentID string     `json:"instrument_id"`
	Direction    string     `json:"direction"`
	EntryPrice   float64    `json:"entry_price"`
	EntryType    string     `json:"entry_type"`
	CreatedAt    time.Time  `json:"created_at"`

	State         string     `json:"state"`
	Substate      string     `json:"substate"`
	BreakTS       *time.Time `json:"break_ts,omitempty"`
	ArmedAt       *time.Time `json:"armed_at,omitempty"`
	TriggeredAt   *time.Time `json:"triggered_at,omitempty"`
	InvalidReason string     `json:"invalid_reason,omitempty"`
}

// ConfigSummary is the subset of engine configuration safe to expose
// on the dashboard (no DSNs, no sink URLs).
type ConfigSummary struct {
	ATRPeriod  int `json:"atr_period"`
	RVOLPeriod int `json:"rvol_period"`

	PenetrationPct   float64 `json:"penetration_pct"`
	MinRVOL          float64 `json:"min_rvol"`
	ConfirmClose     bool    `json:"confirm_close"`
	AllowRetestEntry bool    `json:"allow_retest_entry"`

	SinksEnabled []string `json:"sinks_enabled"`

	HousekeepingEnabled bool `json:"housekeeping_enabled"`
}

// NewConfigSummary builds a dashboard-safe config summary.
func NewConfigSummary(cfg config.Config) ConfigSummary {
	var sinks []string
	if cfg.Sinks.HTTP.Enabled {
		sinks = append(sinks, "http")
	}
	if cfg.Sinks.File.Enabled {
		sinks = append(sinks, "file")
	}
	if cfg.Sinks.Stdout.Enabled {
		sinks = append(sinks, "stdout")
	}

	return ConfigSummary{
		ATRPeriod:           cfg.ATR.Period,
		RVOLPeriod:          cfg.Volume.RVOLPeriod,
		PenetrationPct:      cfg.Breakout.PenetrationPct,
		MinRVOL:             cfg.Breakout.MinRVOL,
		ConfirmClose:        cfg.Breakout.ConfirmClose,
		AllowRetestEntry:    cfg.Breakout.AllowRetestEntry,
		SinksEnabled:        sinks,
		HousekeepingEnabled: cfg.Housekeeping.Enabled,
	}
}
