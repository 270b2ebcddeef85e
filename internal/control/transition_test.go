package control

import (
	"testing"

	"thermostab/internal/models"

	"github.com/stretchr/testify/assert"
)

func pts(targets ...float64) []models.TemperaturePoint {
	out := make([]models.TemperaturePoint, len(targets))
	for i, t := range targets {
		out[i] = models.TemperaturePoint{Index: i, Target: t}
	}
	return out
}

func TestNext_Tick(t *testing.T) {
	finished := pts(25, 30)
	finished[0].Finished = true
	allDone := pts(25)
	allDone[0].Finished = true

	tests := []struct {
		name  string
		from  State
		snap  Snapshot
		want  State
		enter bool
		point int
		clear bool
	}{
		{"idle without auto-run stays", Idle, Snapshot{Points: pts(25), Current: -1}, Idle, false, -1, false},
		{"idle without points stays", Idle, Snapshot{AutoRun: true, Current: -1}, Idle, false, -1, false},
		{"idle armed starts", Idle, Snapshot{AutoRun: true, Points: pts(25), Current: -1}, Start, true, -1, false},
		{"start ramps up", Start, Snapshot{Points: pts(25), Current: -1, LastSample: 20, HaveSample: true, ControlTempThr: 0.4}, RampUp, true, 0, false},
		{"start ramps down", Start, Snapshot{Points: pts(15), Current: -1, LastSample: 20, HaveSample: true, ControlTempThr: 0.4}, RampDown, true, 0, false},
		{"start goes straight to control", Start, Snapshot{Points: pts(20.3), Current: -1, LastSample: 20, HaveSample: true, ControlTempThr: 0.4}, Control, true, 0, false},
		{"start equal target ramps up", Start, Snapshot{Points: pts(20), Current: -1, LastSample: 20, HaveSample: true}, RampUp, true, 0, false},
		{"start picks first unfinished", Start, Snapshot{Points: finished, Current: -1, LastSample: 20, HaveSample: true, ControlTempThr: 0.4}, RampUp, true, 1, false},
		{"start with all finished suspends", Start, Snapshot{AutoRun: true, Points: allDone, Current: -1}, Idle, true, -1, true},
		{"start waits for a sample", Start, Snapshot{Points: pts(25), Current: -1}, Start, false, 0, false},
		{"ramp up below band", RampUp, Snapshot{Points: pts(25), Current: 0, LastSample: 24.85, HaveSample: true}, RampUp, false, 0, false},
		{"ramp up inside band", RampUp, Snapshot{Points: pts(25), Current: 0, LastSample: 24.95, HaveSample: true}, Control, true, 0, false},
		{"ramp down above band", RampDown, Snapshot{Points: pts(15), Current: 0, LastSample: 15.15, HaveSample: true}, RampDown, false, 0, false},
		{"ramp down inside band", RampDown, Snapshot{Points: pts(15), Current: 0, LastSample: 15.05, HaveSample: true}, Control, true, 0, false},
		{"control not steady", Control, Snapshot{Points: pts(25), Current: 0}, Control, false, 0, false},
		{"control steady", Control, Snapshot{Points: pts(25), Current: 0, Steady: true}, Stable, true, 0, false},
		{"stable before bridge", Stable, Snapshot{Points: pts(25), Current: 0, Steady: true, Elapsed: 29, BridgeTicks: 30}, Stable, false, 0, false},
		{"stable lost steadiness", Stable, Snapshot{Points: pts(25), Current: 0, Elapsed: 30, BridgeTicks: 30}, Stable, false, 0, false},
		{"stable confirmed", Stable, Snapshot{Points: pts(25), Current: 0, Steady: true, Elapsed: 30, BridgeTicks: 30}, Measure, true, 0, false},
		{"measure next point up", Measure, Snapshot{Points: pts(25, 30), Current: 0, LastSample: 25, HaveSample: true}, RampUp, true, 1, false},
		{"measure next point down", Measure, Snapshot{Points: pts(25, 10), Current: 0, LastSample: 25, HaveSample: true}, RampDown, true, 1, false},
		{"measure last point idles", Measure, Snapshot{AutoRun: true, Points: pts(25), Current: 0}, Idle, true, -1, true},
		{"measure last point stops", Measure, Snapshot{AutoRun: true, Points: pts(25), Current: 0, ShutdownOnFinish: true}, Stop, true, -1, true},
		{"stop is terminal on tick", Stop, Snapshot{AutoRun: true, Points: pts(25), Current: -1}, Stop, false, -1, false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := Next(tt.from, EvTick, tt.snap)
			assert.Equal(t, tt.want, d.Next)
			assert.Equal(t, tt.enter, d.Enter)
			assert.Equal(t, tt.point, d.Point)
			assert.Equal(t, tt.clear, d.ClearAutoRun)
		})
	}
}

func TestNext_MeasureFinishesCurrent(t *testing.T) {
	d := Next(Measure, EvTick, Snapshot{Points: pts(25, 30), Current: 0})
	assert.True(t, d.FinishCurrent)
	d = Next(Control, EvTick, Snapshot{Points: pts(25), Current: 0, Steady: true})
	assert.False(t, d.FinishCurrent)
}

func TestNext_Commands(t *testing.T) {
	snap := Snapshot{Points: pts(25), Current: 0}
	for _, s := range []State{Start, RampUp, RampDown, Control, Stable, Measure} {
		d := Next(s, EvSuspend, snap)
		assert.Equal(t, Idle, d.Next, s.String())
		assert.True(t, d.Enter)
		assert.True(t, d.ClearAutoRun)
	}

	d := Next(Idle, EvSuspend, Snapshot{AutoRun: true, Current: -1})
	assert.Equal(t, Idle, d.Next)
	assert.False(t, d.Enter)
	assert.True(t, d.ClearAutoRun)

	d = Next(Stop, EvSuspend, snap)
	assert.Equal(t, Stop, d.Next)
	assert.False(t, d.Enter)

	for s := Idle; s <= Stop; s++ {
		d := Next(s, EvForceStop, snap)
		assert.Equal(t, Stop, d.Next, s.String())
		assert.True(t, d.Enter, "force-stop always runs the stop entry")
		assert.True(t, d.ClearAutoRun, "force-stop disarms the run")
	}

	d = Next(Stop, EvReset, snap)
	assert.Equal(t, Idle, d.Next)
	assert.Equal(t, -1, d.Point)
	d = Next(Control, EvReset, snap)
	assert.Equal(t, Control, d.Next)
	assert.False(t, d.Enter)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "RampDown", RampDown.String())
	assert.Equal(t, "Unknown", State(42).String())
	assert.False(t, Idle.Active())
	assert.False(t, Stop.Active())
	assert.True(t, Measure.Active())
}
