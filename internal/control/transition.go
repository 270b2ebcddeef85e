// Package control sequences the experiment: it walks the temperature point
// list, drives both boards on state entry and decides transitions once per tick.
package control

import (
	"math"

	"thermostab/internal/models"
)

// State is one controller state.
type State int

const (
	Idle State = iota
	Start
	RampUp
	RampDown
	Control
	Stable
	Measure
	Stop
)

var stateNames = [...]string{"Idle", "Start", "RampUp", "RampDown", "Control", "Stable", "Measure", "Stop"}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "Unknown"
}

// Active reports whether s belongs to a run in progress.
func (s State) Active() bool { return s != Idle && s != Stop }

// Event drives the transition function.
type Event int

const (
	EvTick Event = iota
	EvSuspend
	EvForceStop
	EvReset
)

// RampBand is how close to the target a ramp must get before control takes over.
const RampBand = 0.1

// Snapshot is everything the guards look at. The machine fills it in before
// every decision, so Next never touches a device.
type Snapshot struct {
	AutoRun          bool
	Points           []models.TemperaturePoint
	Current          int // index into Points, -1 for none
	LastSample       float64
	HaveSample       bool
	Elapsed          uint64
	Steady           bool // fluctuation over the steady window is within tolerance
	BridgeTicks      uint64
	ControlTempThr   float64
	ShutdownOnFinish bool
}

// Decision is the outcome of one event.
type Decision struct {
	Next          State
	Enter         bool // run entry actions for Next, even when Next equals the current state
	Point         int  // point selected as current, -1 for none
	FinishCurrent bool
	ClearAutoRun  bool
}

func stay(s State, snap Snapshot) Decision {
	return Decision{Next: s, Point: snap.Current}
}

func move(to State, point int) Decision {
	return Decision{Next: to, Enter: true, Point: point}
}

// Next is the pure transition function.
func Next(s State, ev Event, snap Snapshot) Decision {
	switch ev {
	case EvForceStop:
		d := move(Stop, snap.Current)
		d.ClearAutoRun = true
		return d
	case EvSuspend:
		d := stay(s, snap)
		if s.Active() {
			d = move(Idle, snap.Current)
		}
		d.ClearAutoRun = true
		return d
	case EvReset:
		if s == Stop {
			return move(Idle, -1)
		}
		return stay(s, snap)
	}
	return tick(s, snap)
}

func tick(s State, snap Snapshot) Decision {
	switch s {
	case Idle:
		if snap.AutoRun && len(snap.Points) > 0 {
			return move(Start, snap.Current)
		}
	case Start:
		sel := firstUnfinished(snap.Points, -1)
		if sel < 0 {
			d := move(Idle, -1)
			d.ClearAutoRun = true
			return d
		}
		if !snap.HaveSample {
			return Decision{Next: Start, Point: sel}
		}
		target := snap.Points[sel].Target
		if math.Abs(target-snap.LastSample) < snap.ControlTempThr {
			return move(Control, sel)
		}
		return move(rampFor(target, snap.LastSample), sel)
	case RampUp:
		if t, ok := currentTarget(snap); ok && snap.HaveSample && snap.LastSample > t-RampBand {
			return move(Control, snap.Current)
		}
	case RampDown:
		if t, ok := currentTarget(snap); ok && snap.HaveSample && snap.LastSample < t+RampBand {
			return move(Control, snap.Current)
		}
	case Control:
		if snap.Steady {
			return move(Stable, snap.Current)
		}
	case Stable:
		if snap.Elapsed >= snap.BridgeTicks && snap.Steady {
			return move(Measure, snap.Current)
		}
	case Measure:
		next := firstUnfinished(snap.Points, snap.Current)
		var d Decision
		switch {
		case next >= 0:
			d = move(rampFor(snap.Points[next].Target, snap.LastSample), next)
		case snap.ShutdownOnFinish:
			d = move(Stop, -1)
			d.ClearAutoRun = true
		default:
			d = move(Idle, -1)
			d.ClearAutoRun = true
		}
		d.FinishCurrent = snap.Current >= 0
		return d
	}
	return stay(s, snap)
}

// rampFor routes to RampDown only when the target is strictly below the sample.
func rampFor(target, sample float64) State {
	if target < sample {
		return RampDown
	}
	return RampUp
}

func currentTarget(snap Snapshot) (float64, bool) {
	if snap.Current < 0 || snap.Current >= len(snap.Points) {
		return 0, false
	}
	return snap.Points[snap.Current].Target, true
}

// firstUnfinished returns the first point that is not finished and is not skip.
func firstUnfinished(points []models.TemperaturePoint, skip int) int {
	for i, p := range points {
		if i != skip && !p.Finished {
			return i
		}
	}
	return -1
}
