package models

import "time"

// ControllerState is a read-only snapshot of the controller and both boards.
type ControllerState struct {
	State           string              `json:"state"`
	AutoRun         bool                `json:"auto_run"`
	Current         *TemperaturePoint   `json:"current,omitempty"`
	ElapsedTicks    uint64              `json:"elapsed_ticks"`
	LastTemperature float64             `json:"last_temperature"`
	LastPower       float64             `json:"last_power"`
	Fluctuation     *float64            `json:"fluctuation,omitempty"` // over the steady window, or fewer samples
	Relays          RelayState          `json:"relays"`
	Params          ParamState          `json:"params"`
	Points          []TemperaturePoint  `json:"points"`
	Thresholds      ThresholdParameters `json:"thresholds"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

type RelayState struct {
	Actual  [16]bool `json:"actual"`
	Desired [16]bool `json:"desired"`
}

type ParamState struct {
	Actual  [ControlParamCount]float64 `json:"actual"`
	Desired [ControlParamCount]float64 `json:"desired"`
}

// ErrorReport lists error counters and port settings of one device.
type ErrorReport struct {
	Device    string            `json:"device"`
	Port      string            `json:"port"`
	Baud      int               `json:"baud"`
	Available bool              `json:"available"`
	Counts    map[string]uint64 `json:"counts"`
}
