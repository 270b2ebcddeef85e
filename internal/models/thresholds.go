package models

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ThresholdParameters configures a run. Durations are in seconds.
type ThresholdParameters struct {
	TickInterval     float64 `json:"tick_interval" mapstructure:"tick_interval"`
	SteadyTime       float64 `json:"steady_time" mapstructure:"steady_time"`
	BridgeTime       float64 `json:"bridge_time" mapstructure:"bridge_time"`
	FlucThr          float64 `json:"fluc_thr" mapstructure:"fluc_thr"`
	ControlTempThr   float64 `json:"control_temp_thr" mapstructure:"control_temp_thr"`
	NotUpOrDownTime  float64 `json:"not_up_or_down_fault_time" mapstructure:"not_up_or_down_fault_time"`
	NotUpOrDownThr   float64 `json:"not_up_or_down_fault_thr" mapstructure:"not_up_or_down_fault_thr"`
	FlucFaultTime    float64 `json:"fluc_fault_time" mapstructure:"fluc_fault_time"`
	FlucFaultThr     float64 `json:"fluc_fault_thr" mapstructure:"fluc_fault_thr"`
	TempBiasFaultThr float64 `json:"temp_bias_fault_thr" mapstructure:"temp_bias_fault_thr"`
	TempMaxValue     float64 `json:"temp_max_value" mapstructure:"temp_max_value"`
	TempMinValue     float64 `json:"temp_min_value" mapstructure:"temp_min_value"`
	ShutdownOnFinish bool    `json:"shutdown_on_finish" mapstructure:"shutdown_on_finish"`
}

var ErrInvalidThresholds = errors.New("invalid threshold parameters")

// DefaultThresholds are the factory settings of the bath.
func DefaultThresholds() ThresholdParameters {
	return ThresholdParameters{
		TickInterval:     4,
		SteadyTime:       300,
		BridgeTime:       120,
		FlucThr:          0.001,
		ControlTempThr:   0.4,
		NotUpOrDownTime:  600,
		NotUpOrDownThr:   0.4,
		FlucFaultTime:    120,
		FlucFaultThr:     0.4,
		TempBiasFaultThr: 2.0,
		TempMaxValue:     40,
		TempMinValue:     -2,
	}
}

// MaxWindowSamples is the longest window the temperature history can fill.
const MaxWindowSamples = 1000

// maxTicks caps Ticks for durations that do not fit an int32 tick count.
const maxTicks = math.MaxInt32

func (t ThresholdParameters) Validate() error {
	for name, v := range t.numbers() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Join(ErrInvalidThresholds, fmt.Errorf("%s must be a finite number", name))
		}
	}
	switch {
	case t.TickInterval <= 0:
		return errors.Join(ErrInvalidThresholds, errors.New("tick_interval must be positive"))
	case t.SteadyTime < 0 || t.BridgeTime < 0 || t.NotUpOrDownTime < 0 || t.FlucFaultTime < 0:
		return errors.Join(ErrInvalidThresholds, errors.New("durations must not be negative"))
	case t.FlucThr <= 0:
		return errors.Join(ErrInvalidThresholds, errors.New("fluc_thr must be positive"))
	case t.TempMinValue >= t.TempMaxValue:
		return errors.Join(ErrInvalidThresholds, errors.New("temp_min_value must be below temp_max_value"))
	}
	for name, secs := range map[string]float64{"steady_time": t.SteadyTime, "fluc_fault_time": t.FlucFaultTime} {
		if n := t.Ticks(secs); n > MaxWindowSamples {
			return errors.Join(ErrInvalidThresholds,
				fmt.Errorf("%s spans %d ticks, more than the %d samples kept", name, n, MaxWindowSamples))
		}
	}
	return nil
}

func (t ThresholdParameters) numbers() map[string]float64 {
	return map[string]float64{
		"tick_interval":             t.TickInterval,
		"steady_time":               t.SteadyTime,
		"bridge_time":               t.BridgeTime,
		"fluc_thr":                  t.FlucThr,
		"control_temp_thr":          t.ControlTempThr,
		"not_up_or_down_fault_time": t.NotUpOrDownTime,
		"not_up_or_down_fault_thr":  t.NotUpOrDownThr,
		"fluc_fault_time":           t.FlucFaultTime,
		"fluc_fault_thr":            t.FlucFaultThr,
		"temp_bias_fault_thr":       t.TempBiasFaultThr,
		"temp_max_value":            t.TempMaxValue,
		"temp_min_value":            t.TempMinValue,
	}
}

// Interval is the tick interval as a duration.
func (t ThresholdParameters) Interval() time.Duration {
	return time.Duration(t.TickInterval * float64(time.Second))
}

// Ticks converts a duration in seconds to a whole number of ticks, at least
// one and at most math.MaxInt32.
func (t ThresholdParameters) Ticks(seconds float64) int {
	if t.TickInterval <= 0 {
		return 1
	}
	f := math.Ceil(seconds/t.TickInterval - 1e-9)
	switch {
	case f >= maxTicks:
		return maxTicks
	case !(f >= 1):
		return 1
	}
	return int(f)
}
