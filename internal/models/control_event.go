package models

import "time"

// Event types persisted in the control log.
const (
	EventStateChanged  = "STATE_CHANGED"
	EventRelayUpdate   = "RELAY_UPDATE"
	EventParamsUpdate  = "PARAMS_UPDATE"
	EventFault         = "FAULT"
	EventPointFinished = "POINT_FINISHED"
	EventJobFailed     = "JOB_FAILED"
	EventCommand       = "COMMAND"
)

// ControlEvent is a single log entry.
type ControlEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Metadata    any       `json:"metadata,omitempty"`
}
