package device

import (
	"fmt"
	"math"
	"sync"
	"time"

	"thermostab/internal/protocol"
	"thermostab/internal/protocol/tempt"
)

// ParamEpsilon is the smallest parameter change worth a write.
const ParamEpsilon = 1e-4

// Params holds the writable T-C board parameters in protocol order.
type Params [tempt.Writable]float64

// TemptClient is the T-C codec as seen by the manager.
type TemptClient interface {
	Send(p tempt.Param, v float64) error
	Read(p tempt.Param) (float64, error)
}

// TemptManager reconciles the desired parameter vector with the T-C board
// and keeps the temperature history used by the stability guards.
type TemptManager struct {
	mu        sync.Mutex
	client    TemptClient
	port      Port
	actual    Params
	desired   Params
	history   *History
	lastPower float64
	errs      *counters

	checkPause time.Duration
	sleep      func(time.Duration)
}

func NewTemptManager(client TemptClient, port Port) *TemptManager {
	return &TemptManager{
		client:     client,
		port:       port,
		history:    NewHistory(HistoryCapacity),
		errs:       newCounters(TemptDevice, protocol.TemptKinds),
		checkPause: protocol.InterCommandDelay,
		sleep:      time.Sleep,
	}
}

// SetCheckPause sets the pause between reads during SelfCheck.
func (m *TemptManager) SetCheckPause(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d < 0 {
		d = 0
	}
	m.checkPause = d
}

// ApplyParameters makes params the desired vector and writes every parameter
// that differs from the board by at least ParamEpsilon. It stops at the first
// failed write.
func (m *TemptManager) ApplyParameters(params []float64, countErrors bool) (Params, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(params) != tempt.Writable {
		err := protocol.Errorf(protocol.KindCode, "apply parameters",
			fmt.Errorf("got %d values, want %d", len(params), tempt.Writable))
		m.count(err, countErrors)
		return m.actual, err
	}
	copy(m.desired[:], params)
	for i := range m.desired {
		if math.Abs(m.actual[i]-m.desired[i]) < ParamEpsilon {
			continue
		}
		if err := m.client.Send(tempt.Param(i), m.desired[i]); err != nil {
			m.count(err, countErrors)
			return m.actual, err
		}
		m.actual[i] = m.desired[i]
	}
	return m.actual, nil
}

// ReadBack reads every writable parameter from the board into actual.
func (m *TemptManager) ReadBack(countErrors bool) (Params, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.actual {
		v, err := m.client.Read(tempt.Param(i))
		if err != nil {
			m.count(err, countErrors)
			return m.actual, err
		}
		m.actual[i] = v
	}
	return m.actual, nil
}

// SampleTemperature reads the live temperature and appends it to the history.
// On failure it returns the last known sample, or 0 with an empty history,
// together with the error.
func (m *TemptManager) SampleTemperature(countErrors bool) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, err := m.client.Read(tempt.TempShow)
	if err != nil {
		m.count(err, countErrors)
		last, _ := m.history.Last()
		return last, err
	}
	m.history.Push(v)
	return v, nil
}

// SamplePower reads the live heater power with the same fallback policy.
func (m *TemptManager) SamplePower(countErrors bool) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, err := m.client.Read(tempt.PowerShow)
	if err != nil {
		m.count(err, countErrors)
		return m.lastPower, err
	}
	m.lastPower = v
	return v, nil
}

// SelfCheck reads all nine board values in protocol order and stops at the
// first failure. The temperature goes into the history.
func (m *TemptManager) SelfCheck(countErrors bool) ([tempt.ParamCount]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out [tempt.ParamCount]float64
	for p := tempt.Param(0); p < tempt.ParamCount; p++ {
		if p > 0 && m.checkPause > 0 {
			m.sleep(m.checkPause)
		}
		v, err := m.client.Read(p)
		if err != nil {
			m.count(err, countErrors)
			return out, err
		}
		out[p] = v
		switch {
		case p.CanWrite():
			m.actual[p] = v
		case p == tempt.TempShow:
			m.history.Push(v)
		case p == tempt.PowerShow:
			m.lastPower = v
		}
	}
	return out, nil
}

// Fluctuation is max-min over the last window samples. It is unavailable with
// fewer than two samples or fewer than window samples.
func (m *TemptManager) Fluctuation(window int) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.history.Len()
	if window < 1 || n < 2 || n < window {
		return 0, false
	}
	return spread(m.history.Tail(window)), true
}

// FluctuationOrFewer falls back to the whole history when it is shorter than
// window. For display only.
func (m *TemptManager) FluctuationOrFewer(window int) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.history.Len() < 2 || window < 1 {
		return 0, false
	}
	return spread(m.history.Tail(window)), true
}

// WithinTolerance reports a strict fluctuation below tol.
func (m *TemptManager) WithinTolerance(window int, tol float64) bool {
	f, ok := m.Fluctuation(window)
	return ok && f < tol
}

// LastTemperature returns the newest history sample.
func (m *TemptManager) LastTemperature() (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history.Last()
}

// LastPower returns the last successful power reading.
func (m *TemptManager) LastPower() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastPower
}

// History copies the most recent n samples, oldest first.
func (m *TemptManager) History(n int) []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history.Tail(n)
}

func (m *TemptManager) ClearHistory() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history.Reset()
}

// Parameters returns the actual and desired vectors.
func (m *TemptManager) Parameters() (actual, desired Params) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.actual, m.desired
}

func (m *TemptManager) SetPort(name string, baud int) error {
	if m.port == nil {
		return ErrNoPort
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.port.Configure(name, baud)
}

func (m *TemptManager) Port() (name string, baud int, available bool) {
	if m.port == nil {
		return "", 0, false
	}
	name, baud = m.port.Settings()
	return name, baud, m.port.Available()
}

func (m *TemptManager) Errors() map[protocol.Kind]uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errs.snapshot()
}

func (m *TemptManager) ResetErrors() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs.reset()
}

func (m *TemptManager) SetErrorRecorder(r ErrorRecorder) { m.errs.setRecorder(r) }

func (m *TemptManager) count(err error, enabled bool) {
	if enabled {
		m.errs.add(err)
	}
}
