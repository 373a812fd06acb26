package api

import (
	"time"

	"breakoutengine/internal/engine"
)

// DashboardEvent is the wire shape pushed to connected websocket
// clients: a transition or a delivered signal, tagged by plan and
// instrument. InstrumentID lets the hub scope delivery to clients that
// subscribed to one instrument (see stream.go); it is empty for
// instrument-agnostic events like a full snapshot push.
type DashboardEvent struct {
	Type         string      `json:"type"` // "snapshot" | "transition" | "signal"
	Timestamp    time.Time   `json:"timestamp"`
	PlanID       string      `json:"plan_id,omitempty"`
	InstrumentID string      `json:"instrument_id,omitempty"`
	Data         interface{} `json:"data"`
}

// fromEngineEvent converts an engine.DashboardEvent into the
// dashboard's wire shape.
func fromEngineEvent(evt engine.DashboardEvent) DashboardEvent {
	return DashboardEvent{
		Type:         evt.Type,
		Timestamp:    evt.Timestamp,
		PlanID:       evt.PlanID,
		InstrumentID: evt.InstrumentID,
		Data:         evt.Data,
	}
}
