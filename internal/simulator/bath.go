// Package simulator stands in for the relay and T-C boards with a simulated
// thermal bath. Both boards answer real wire frames, so the whole stack above
// the serial port runs unchanged in demo mode and in tests.
package simulator

import (
	"math"
	"sync"
	"time"

	"thermostab/internal/protocol/relay"
	"thermostab/internal/protocol/tempt"
)

// ----------- Simulation constants -----------
const (
	AmbientC        = 20.0  // ambient temperature °C
	HeatCPerSec     = 0.05  // °C per second with the main heater on
	CoolCPerSec     = 0.08  // °C per second with the cooler on
	DriftTau        = 900.0 // seconds, unpowered drift toward ambient
	RegulateTau     = 20.0  // seconds, regulated approach to the set point
	RegulateBandC   = 0.5   // °C, below this distance the board regulates
	MaxPower        = 100.0 // heater power ceiling reported by the board
	defaultTempSetC = 25.0
)

// Bath is the shared physical state behind both simulated boards.
type Bath struct {
	mu      sync.Mutex
	relays  relay.Status
	params  [tempt.ParamCount]float64
	temp    float64
	power   float64
	updated time.Time
	now     func() time.Time
	faults  map[string]byte
}

// NewBath returns a bath at ambient temperature with every relay off.
func NewBath() *Bath {
	b := &Bath{temp: AmbientC, now: time.Now, faults: map[string]byte{}}
	b.params[tempt.TempSet] = defaultTempSetC
	b.params[tempt.Power] = MaxPower
	b.updated = b.now()
	return b
}

// SetClock replaces the time source, for tests.
func (b *Bath) SetClock(now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
	b.updated = now()
}

// Temperature advances the model and returns the bath temperature.
func (b *Bath) Temperature() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advance()
	return b.temp
}

// SetTemperature forces the bath temperature.
func (b *Bath) SetTemperature(c float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advance()
	b.temp = c
}

// Relays returns the simulated relay outputs.
func (b *Bath) Relays() relay.Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.relays
}

// Param returns a stored T-C register.
func (b *Bath) Param(p tempt.Param) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.params[p]
}

// InjectFault makes the named port answer every request with a fault. For
// the relay board any non-zero code corrupts the echo; for the T-C board the
// code is sent back after the error flag. A zero code clears the fault.
func (b *Bath) InjectFault(port string, code byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if code == 0 {
		delete(b.faults, port)
		return
	}
	b.faults[port] = code
}

func (b *Bath) fault(port string) byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.faults[port]
}

func (b *Bath) setRelay(ch relay.Channel, on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advance()
	b.relays[ch] = on
}

// readParam answers a T-C read, including the live registers.
func (b *Bath) readParam(p tempt.Param) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advance()
	switch p {
	case tempt.TempShow:
		return b.temp
	case tempt.PowerShow:
		return b.power
	default:
		return b.params[p]
	}
}

func (b *Bath) writeParam(p tempt.Param, v float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advance()
	b.params[p] = v
}

// advance integrates the model from the last update to now. Caller holds mu.
func (b *Bath) advance() {
	now := b.now()
	dt := now.Sub(b.updated).Seconds()
	if dt <= 0 {
		return
	}
	b.updated = now
	b.temp, b.power = step(b.temp, b.relays, b.params, dt)
}

// step is one explicit integration step of the bath.
func step(temp float64, rs relay.Status, params [tempt.ParamCount]float64, dt float64) (float64, float64) {
	powered := rs[relay.Elect] && rs[relay.Circle]
	if !powered {
		return approach(temp, AmbientC, DriftTau, dt), 0
	}

	set := params[tempt.TempSet]
	limit := params[tempt.Power]
	if limit <= 0 || limit > MaxPower {
		limit = MaxPower
	}
	diff := set - temp

	switch {
	case math.Abs(diff) < RegulateBandC && (rs[relay.MainHeat] || rs[relay.Cool]):
		next := approach(temp, set, RegulateTau, dt)
		return next, math.Max(0, math.Min(limit, MaxPower/2+10*(set-next)))
	case diff > 0 && rs[relay.MainHeat]:
		return math.Min(temp+HeatCPerSec*dt*limit/MaxPower, set), limit
	case diff < 0 && rs[relay.Cool]:
		return math.Max(temp-CoolCPerSec*dt, set), 0
	case diff > 0 && rs[relay.Cool]:
		// the cooling pattern still lets the board heat gently
		return math.Min(temp+HeatCPerSec*dt/2, set), limit / 2
	default:
		return approach(temp, AmbientC, DriftTau, dt), 0
	}
}

func approach(from, to, tau, dt float64) float64 {
	return to + (from-to)*math.Exp(-dt/tau)
}
