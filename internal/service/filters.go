package service

import "time"

// LogFilter supports history filtering by time range and type.
type LogFilter struct {
	From time.Time // inclusive; zero means no lower bound
	To   time.Time // inclusive; zero means no upper bound
	Type string    // "", "STATE_CHANGED", "FAULT", "COMMAND", ...
}

// MeasurementFilter selects measurements by time range and point index.
type MeasurementFilter struct {
	From  time.Time
	To    time.Time
	Point *int // nil means every point
}
