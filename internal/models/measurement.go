package models

import "time"

// Measurement is recorded when a point has been held stable long enough.
type Measurement struct {
	ID          string    `json:"id"`
	PointIndex  int       `json:"point_index"`
	Target      float64   `json:"target"`
	Temperature float64   `json:"temperature"`
	Power       float64   `json:"power"`
	Fluctuation float64   `json:"fluctuation"`
	MeasuredAt  time.Time `json:"measured_at"`
}
