package control

import (
	"fmt"
	"math"

	"thermostab/internal/models"
	"thermostab/internal/notify"
)

// Fault kinds.
const (
	FaultOverMax     = "temp_over_max"
	FaultUnderMin    = "temp_under_min"
	FaultNotHeating  = "not_heating"
	FaultNotCooling  = "not_cooling"
	FaultFluctuation = "fluctuation"
	FaultBias        = "temp_bias"
)

// latched faults are reported once when they appear; the others are
// periodic checks that report every time they fire.
var latched = map[string]bool{FaultOverMax: true, FaultUnderMin: true, FaultBias: true}

// faultInput is what one tick's fault checks look at.
type faultInput struct {
	State      State
	Elapsed    uint64
	Temp       float64
	HaveTemp   bool
	Target     float64
	HaveTarget bool
	RampRef    float64 // temperature at the start of the current progress window
	Fluc       float64
	HaveFluc   bool
	Th         models.ThresholdParameters
}

// detectFaults returns the faults present on this tick and whether the
// ramp progress window rolled over.
func detectFaults(in faultInput) (faults []notify.FaultReport, rampChecked bool) {
	if !in.HaveTemp {
		return nil, false
	}
	th := in.Th
	add := func(kind string, value, thr float64, format string, args ...any) {
		faults = append(faults, notify.FaultReport{
			Kind:      kind,
			State:     in.State.String(),
			Value:     value,
			Threshold: thr,
			Message:   fmt.Sprintf(format, args...),
		})
	}

	if in.Temp > th.TempMaxValue {
		add(FaultOverMax, in.Temp, th.TempMaxValue, "temperature %.4f above safe maximum %.2f", in.Temp, th.TempMaxValue)
	}
	if in.Temp < th.TempMinValue {
		add(FaultUnderMin, in.Temp, th.TempMinValue, "temperature %.4f below safe minimum %.2f", in.Temp, th.TempMinValue)
	}

	switch in.State {
	case RampUp, RampDown:
		window := uint64(th.Ticks(th.NotUpOrDownTime))
		if in.Elapsed == 0 || in.Elapsed%window != 0 {
			break
		}
		rampChecked = true
		progress := in.Temp - in.RampRef
		kind, verb := FaultNotHeating, "rose"
		if in.State == RampDown {
			progress = -progress
			kind, verb = FaultNotCooling, "fell"
		}
		if progress < th.NotUpOrDownThr {
			add(kind, progress, th.NotUpOrDownThr, "temperature %s only %.4f in %.0fs", verb, progress, th.NotUpOrDownTime)
		}
	case Control:
		window := uint64(th.Ticks(th.FlucFaultTime))
		if in.Elapsed >= window && in.Elapsed%window == 0 && in.HaveFluc && in.Fluc > th.FlucFaultThr {
			add(FaultFluctuation, in.Fluc, th.FlucFaultThr, "fluctuation %.4f over %.0fs", in.Fluc, th.FlucFaultTime)
		}
	}

	if (in.State == Control || in.State == Stable) && in.HaveTarget {
		if bias := math.Abs(in.Temp - in.Target); bias > th.TempBiasFaultThr {
			add(FaultBias, bias, th.TempBiasFaultThr, "temperature %.4f is %.4f from target %.3f", in.Temp, bias, in.Target)
		}
	}
	return faults, rampChecked
}
