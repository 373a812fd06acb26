package api

import (
	"time"

	"breakoutengine/internal/config"
	"breakoutengine/internal/stats"
	"breakoutengine/pkg/types"
)

// Provider is the subset of the engine coordinator the dashboard reads
// from. It never mutates engine state (§6 "dashboard is read-only").
type Provider interface {
	AllPlans() []types.Plan
	GetPlanState(planID string) (types.PlanRuntimeState, bool)
	GetRuntimeStats() stats.Snapshot
}

// BuildSnapshot aggregates plan and counter state into a dashboard
// snapshot. instrumentID, when non-empty, restricts the plan list to
// that instrument — the dashboard equivalent of the engine's
// ListPlans query, for operators watching a single market.
func BuildSnapshot(provider Provider, cfg config.Config, instrumentID string) DashboardSnapshot {
	plans := provider.AllPlans()
	out := make([]PlanStatus, 0, len(plans))

	for _, p := range plans {
		if instrumentID != "" && p.InstrumentID != instrumentID {
			continue
		}
		runtime, _ := provider.GetPlanState(p.ID)
		out = append(out, PlanStatus{
			PlanID:        p.ID,
			InstrumentID:  p.InstrumentID,
			Direction:     string(p.Direction),
			EntryPrice:    p.EntryPrice,
			EntryType:     p.EntryType,
			CreatedAt:     p.CreatedAt,
			State:         string(runtime.State),
			Substate:      string(runtime.Substate),
			BreakTS:       runtime.BreakTS,
			ArmedAt:       runtime.ArmedAt,
			TriggeredAt:   runtime.TriggeredAt,
			InvalidReason: string(runtime.InvalidReason),
		})
	}

	return DashboardSnapshot{
		Timestamp: time.Now(),
		Plans:     out,
		Stats:     provider.GetRuntimeStats(),
		Config:    NewConfigSummary(cfg),
	}
}
