package control

import (
	"errors"
	"sync"
	"time"

	"thermostab/internal/device"
	"thermostab/internal/logger"
	"thermostab/internal/models"
	"thermostab/internal/notify"
	"thermostab/internal/protocol"
	"thermostab/internal/protocol/relay"
)

var (
	ErrRunActive     = errors.New("a run is active")
	ErrStopped       = errors.New("controller is stopped; reset first")
	ErrNotStopped    = errors.New("controller is not stopped")
	ErrNoPoints      = errors.New("temperature point list is empty")
	ErrInvalidPoints = errors.New("invalid temperature points")
)

// SourceControl marks device updates issued by the state machine itself.
const SourceControl = "control"

// Relays is the relay manager as seen by the machine.
type Relays interface {
	Apply(want relay.Status, countErrors bool) (relay.Status, error)
}

// Tempt is the T-C manager as seen by the machine.
type Tempt interface {
	ApplyParameters(params []float64, countErrors bool) (device.Params, error)
	SampleTemperature(countErrors bool) (float64, error)
	SamplePower(countErrors bool) (float64, error)
	WithinTolerance(window int, tol float64) bool
	Fluctuation(window int) (float64, bool)
	FluctuationOrFewer(window int) (float64, bool)
}

// Relay patterns per state family.
var (
	heatPattern = pattern(relay.Elect, relay.MainHeat, relay.Circle)
	coolPattern = pattern(relay.Elect, relay.Cool, relay.Circle)
	allOff      = relay.Status{}
)

func pattern(chs ...relay.Channel) relay.Status {
	var st relay.Status
	for _, ch := range chs {
		st[ch] = true
	}
	return st
}

// Machine owns the controller state. Every method is safe for concurrent use;
// ticks and operator commands serialize on one mutex.
type Machine struct {
	mu     sync.Mutex
	relays Relays
	tempt  Tempt
	pub    notify.Publisher
	log    *logger.Logger
	now    func() time.Time

	state   State
	autoRun bool
	points  []models.TemperaturePoint
	current int
	elapsed uint64
	th      models.ThresholdParameters

	lastTemp  float64
	haveTemp  bool
	lastPower float64
	rampRef   float64
	active    map[string]bool
	updatedAt time.Time
}

func NewMachine(relays Relays, tempt Tempt, pub notify.Publisher, log *logger.Logger, th models.ThresholdParameters) *Machine {
	if pub == nil {
		pub = notify.Discard
	}
	return &Machine{
		relays:  relays,
		tempt:   tempt,
		pub:     pub,
		log:     log,
		now:     time.Now,
		state:   Idle,
		current: -1,
		th:      th,
		active:  make(map[string]bool),
	}
}

// Tick samples both live values, advances the elapsed counter and evaluates
// the guards of the current state.
func (m *Machine) Tick() {
	m.mu.Lock()
	defer m.mu.Unlock()

	temp, terr := m.tempt.SampleTemperature(true)
	power, perr := m.tempt.SamplePower(true)
	if terr == nil {
		m.lastTemp, m.haveTemp = temp, true
	}
	if perr == nil {
		m.lastPower = power
	}
	m.updatedAt = m.now().UTC()
	m.pub.Publish(notify.Event{Type: notify.TickReading, Data: notify.Reading{
		State:       m.state.String(),
		Elapsed:     m.elapsed,
		TempError:   protocol.KindOf(terr),
		Temperature: temp,
		PowerError:  protocol.KindOf(perr),
		Power:       power,
	}})
	if terr != nil {
		m.warn("tick_temperature_failed", "err", terr)
	}

	m.elapsed++
	m.checkFaults()
	m.dispatch(EvTick)
}

// StartAutoRun arms the run. The next tick in Idle moves to Start.
func (m *Machine) StartAutoRun() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Stop {
		return ErrStopped
	}
	if len(m.points) == 0 {
		return ErrNoPoints
	}
	m.autoRun = true
	m.info("control_auto_run_armed", "state", m.state.String())
	return nil
}

// Suspend disarms the run and returns an active state to Idle.
func (m *Machine) Suspend() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatch(EvSuspend)
}

// ForceStop enters Stop from any state and switches every relay off.
func (m *Machine) ForceStop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatch(EvForceStop)
}

// Reset leaves Stop for Idle.
func (m *Machine) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Stop {
		return ErrNotStopped
	}
	m.dispatch(EvReset)
	return nil
}

// SetPoints replaces the point list. Points are renumbered in list order.
func (m *Machine) SetPoints(points []models.TemperaturePoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.runActive() {
		return ErrRunActive
	}
	cp := make([]models.TemperaturePoint, len(points))
	for i, p := range points {
		if !(p.Target >= m.th.TempMinValue && p.Target <= m.th.TempMaxValue) {
			return errors.Join(ErrInvalidPoints,
				errors.New("target outside safe temperature range"))
		}
		p.Index = i
		cp[i] = p
	}
	m.points = cp
	m.current = -1
	return nil
}

// SetThresholds replaces the run configuration.
func (m *Machine) SetThresholds(th models.ThresholdParameters) error {
	if err := th.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.runActive() {
		return ErrRunActive
	}
	m.th = th
	return nil
}

func (m *Machine) Points() []models.TemperaturePoint {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.TemperaturePoint(nil), m.points...)
}

func (m *Machine) Thresholds() models.ThresholdParameters {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.th
}

// Interval is the current tick interval.
func (m *Machine) Interval() time.Duration {
	return m.Thresholds().Interval()
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Status fills the controller part of a snapshot.
func (m *Machine) Status() models.ControllerState {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := models.ControllerState{
		State:           m.state.String(),
		AutoRun:         m.autoRun,
		ElapsedTicks:    m.elapsed,
		LastTemperature: m.lastTemp,
		LastPower:       m.lastPower,
		Points:          append([]models.TemperaturePoint(nil), m.points...),
		Thresholds:      m.th,
		UpdatedAt:       m.updatedAt,
	}
	if m.current >= 0 && m.current < len(m.points) {
		p := m.points[m.current]
		st.Current = &p
	}
	if f, ok := m.tempt.FluctuationOrFewer(m.th.Ticks(m.th.SteadyTime)); ok {
		st.Fluctuation = &f
	}
	return st
}

func (m *Machine) runActive() bool {
	return m.autoRun || m.state.Active()
}

func (m *Machine) snapshot() Snapshot {
	return Snapshot{
		AutoRun:          m.autoRun,
		Points:           m.points,
		Current:          m.current,
		LastSample:       m.lastTemp,
		HaveSample:       m.haveTemp,
		Elapsed:          m.elapsed,
		Steady:           m.tempt.WithinTolerance(m.th.Ticks(m.th.SteadyTime), m.th.FlucThr),
		BridgeTicks:      uint64(m.th.Ticks(m.th.BridgeTime)),
		ControlTempThr:   m.th.ControlTempThr,
		ShutdownOnFinish: m.th.ShutdownOnFinish,
	}
}

func (m *Machine) dispatch(ev Event) {
	d := Next(m.state, ev, m.snapshot())
	if d.FinishCurrent {
		m.finishCurrent()
	}
	if d.ClearAutoRun {
		m.autoRun = false
	}
	m.current = d.Point
	if d.Enter {
		m.enter(d.Next)
	}
}

func (m *Machine) finishCurrent() {
	if m.current < 0 || m.current >= len(m.points) {
		return
	}
	p := &m.points[m.current]
	if p.Finished {
		return
	}
	p.Finished = true
	res := notify.PointResult{
		Index:       p.Index,
		Target:      p.Target,
		Temperature: m.lastTemp,
		Power:       m.lastPower,
	}
	if f, ok := m.tempt.FluctuationOrFewer(m.th.Ticks(m.th.SteadyTime)); ok {
		res.Fluctuation = f
	}
	m.pub.Publish(notify.Event{Type: notify.PointFinished, Data: res})
	m.info("control_point_finished", "index", p.Index, "target", p.Target, "temperature", m.lastTemp)
}

func (m *Machine) enter(to State) {
	from := m.state
	m.state = to
	m.elapsed = 0
	m.rampRef = m.lastTemp

	change := notify.StateChange{From: from.String(), To: to.String()}
	if m.current >= 0 {
		idx := m.current
		change.PointIndex = &idx
	}
	m.pub.Publish(notify.Event{Type: notify.StateChanged, Data: change})
	m.info("control_state_entered", "from", from.String(), "to", to.String(), "point", m.current)

	switch to {
	case RampUp:
		m.applyRelays(heatPattern)
		m.applyParams()
	case RampDown:
		m.applyRelays(coolPattern)
		m.applyParams()
	case Control, Stable:
		m.applyRelays(coolPattern)
	case Stop:
		m.applyRelays(allOff)
	}
}

func (m *Machine) applyRelays(want relay.Status) {
	actual, err := m.relays.Apply(want, true)
	ev := notify.RelayStatus{Error: protocol.KindOf(err), Actual: actual, Source: SourceControl}
	if err != nil {
		ev.Message = err.Error()
		m.warn("relay_apply_failed", "state", m.state.String(), "err", err)
	}
	m.pub.Publish(notify.Event{Type: notify.RelayStatusUpdated, Data: ev})
}

func (m *Machine) applyParams() {
	if m.current < 0 || m.current >= len(m.points) {
		return
	}
	p := m.points[m.current].Params
	actual, err := m.tempt.ApplyParameters(p[:], true)
	ev := notify.TemptParams{Error: protocol.KindOf(err), Actual: actual, Source: SourceControl}
	if err != nil {
		ev.Message = err.Error()
		m.warn("tempt_apply_failed", "state", m.state.String(), "err", err)
	}
	m.pub.Publish(notify.Event{Type: notify.TemptParamsUpdated, Data: ev})
}

func (m *Machine) checkFaults() {
	in := faultInput{
		State:    m.state,
		Elapsed:  m.elapsed,
		Temp:     m.lastTemp,
		HaveTemp: m.haveTemp,
		RampRef:  m.rampRef,
		Th:       m.th,
	}
	if t, ok := currentTarget(Snapshot{Points: m.points, Current: m.current}); ok {
		in.Target, in.HaveTarget = t, true
	}
	if m.state == Control {
		in.Fluc, in.HaveFluc = m.tempt.Fluctuation(m.th.Ticks(m.th.FlucFaultTime))
	}

	faults, rampChecked := detectFaults(in)
	if rampChecked {
		m.rampRef = m.lastTemp
	}
	seen := make(map[string]bool, len(faults))
	for _, f := range faults {
		seen[f.Kind] = true
		if latched[f.Kind] && m.active[f.Kind] {
			continue
		}
		m.pub.Publish(notify.Event{Type: notify.Fault, Data: f})
		m.warn("control_fault", "kind", f.Kind, "state", f.State, "value", f.Value, "threshold", f.Threshold)
	}
	for k := range latched {
		m.active[k] = seen[k]
	}
}

func (m *Machine) info(msg string, kv ...any) {
	if m.log != nil {
		m.log.Infow(msg, kv...)
	}
}

func (m *Machine) warn(msg string, kv ...any) {
	if m.log != nil {
		m.log.Warnw(msg, kv...)
	}
}
