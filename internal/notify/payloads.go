package notify

import "thermostab/internal/protocol"

type StateChange struct {
	From       string `json:"from"`
	To         string `json:"to"`
	PointIndex *int   `json:"point_index,omitempty"`
}

// RelayStatus reports the outcome of a relay apply.
type RelayStatus struct {
	Error      protocol.Kind `json:"error"`
	Message    string        `json:"message,omitempty"`
	Actual     [16]bool      `json:"actual"`
	Source     string        `json:"source"`                // "control" or the job id
	OperatorID int           `json:"operator_id,omitempty"` // set for manual jobs
}

// TemptParams reports the outcome of a parameter apply or read-back.
type TemptParams struct {
	Error      protocol.Kind `json:"error"`
	Message    string        `json:"message,omitempty"`
	Actual     [7]float64    `json:"actual"`
	Source     string        `json:"source"`
	OperatorID int           `json:"operator_id,omitempty"`
}

type Reading struct {
	State       string        `json:"state"`
	Elapsed     uint64        `json:"elapsed"`
	TempError   protocol.Kind `json:"temp_error"`
	Temperature float64       `json:"temperature"`
	PowerError  protocol.Kind `json:"power_error"`
	Power       float64       `json:"power"`
}

// FaultReport is raised by fault detection. It never changes state.
type FaultReport struct {
	Kind      string  `json:"kind"`
	State     string  `json:"state"`
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`
	Message   string  `json:"message"`
}

type PointResult struct {
	Index       int     `json:"index"`
	Target      float64 `json:"target"`
	Temperature float64 `json:"temperature"`
	Power       float64 `json:"power"`
	Fluctuation float64 `json:"fluctuation"`
}

type JobFailure struct {
	JobID string `json:"job_id"`
	Lane  string `json:"lane"`
	Name  string `json:"name"`
	Error string `json:"error"`
}
