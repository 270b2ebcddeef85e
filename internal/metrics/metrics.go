// Package metrics exports device and controller telemetry to Prometheus.
package metrics

import (
	"context"
	"net/http"

	"thermostab/internal/notify"
	"thermostab/internal/protocol"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "thermostab"

// States lists every controller state label, in order.
var States = []string{"Idle", "Start", "RampUp", "RampDown", "Control", "Stable", "Measure", "Stop"}

type Metrics struct {
	reg *prometheus.Registry

	deviceErrors   *prometheus.CounterVec
	temperature    prometheus.Gauge
	power          prometheus.Gauge
	state          *prometheus.GaugeVec
	transitions    *prometheus.CounterVec
	faults         *prometheus.CounterVec
	pointsFinished prometheus.Counter
	jobFailures    *prometheus.CounterVec
}

// New builds the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		deviceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "device_errors_total",
			Help:      "Device exchange failures by device and error kind.",
		}, []string{"device", "kind"}),
		temperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "temperature_celsius",
			Help:      "Last temperature reported by the T-C board (°C).",
		}),
		power: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "heater_power",
			Help:      "Last heater power reported by the T-C board.",
		}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "controller_state",
			Help:      "1 for the current controller state, 0 otherwise.",
		}, []string{"state"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_transitions_total",
			Help:      "State entries by target state.",
		}, []string{"state"}),
		faults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "faults_total",
			Help:      "Faults raised by fault detection.",
		}, []string{"kind"}),
		pointsFinished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_finished_total",
			Help:      "Temperature points measured.",
		}),
		jobFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_failures_total",
			Help:      "Failed operator jobs by worker lane.",
		}, []string{"lane"}),
	}
	m.reg.MustRegister(
		m.deviceErrors, m.temperature, m.power, m.state,
		m.transitions, m.faults, m.pointsFinished, m.jobFailures,
	)
	m.setState("Idle")
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Registry exposes the private registry for extra collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// RecordDeviceError implements device.ErrorRecorder.
func (m *Metrics) RecordDeviceError(device string, kind protocol.Kind) {
	m.deviceErrors.WithLabelValues(device, kind.String()).Inc()
}

// Observe updates the collectors from one bus event.
func (m *Metrics) Observe(e notify.Event) {
	switch d := e.Data.(type) {
	case notify.Reading:
		if d.TempError == protocol.KindNone {
			m.temperature.Set(d.Temperature)
		}
		if d.PowerError == protocol.KindNone {
			m.power.Set(d.Power)
		}
	case notify.StateChange:
		m.setState(d.To)
		m.transitions.WithLabelValues(d.To).Inc()
	case notify.FaultReport:
		m.faults.WithLabelValues(d.Kind).Inc()
	case notify.PointResult:
		m.pointsFinished.Inc()
	case notify.JobFailure:
		m.jobFailures.WithLabelValues(d.Lane).Inc()
	}
}

// Run observes sub until ctx is canceled or sub is closed.
func (m *Metrics) Run(ctx context.Context, sub *notify.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-sub.C():
			if !ok {
				return
			}
			m.Observe(e)
		}
	}
}

func (m *Metrics) setState(current string) {
	for _, s := range States {
		v := 0.0
		if s == current {
			v = 1
		}
		m.state.WithLabelValues(s).Set(v)
	}
}
