package device

import (
	"errors"
	"sync"

	"thermostab/internal/protocol"
	"thermostab/internal/protocol/relay"
)

var ErrNoPort = errors.New("device has no configurable port")

// RelayClient is the relay codec as seen by the manager.
type RelayClient interface {
	WriteRelay(ch relay.Channel, on bool) error
	ReadAllStatus() (relay.Status, error)
}

// RelayManager reconciles the desired relay vector with the board.
type RelayManager struct {
	mu      sync.Mutex
	client  RelayClient
	port    Port
	actual  relay.Status
	desired relay.Status
	errs    *counters
}

func NewRelayManager(client RelayClient, port Port) *RelayManager {
	return &RelayManager{
		client: client,
		port:   port,
		errs:   newCounters(RelayDevice, protocol.RelayKinds),
	}
}

// Apply makes want the desired vector and writes every channel whose actual
// state differs, in channel order. It stops at the first failed write; the
// returned vector shows how far application got.
func (m *RelayManager) Apply(want relay.Status, countErrors bool) (relay.Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.desired = want
	return m.applyLocked(countErrors)
}

// SetChannel changes one desired channel and applies the whole vector.
func (m *RelayManager) SetChannel(ch relay.Channel, on bool, countErrors bool) (relay.Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !ch.Valid() {
		err := protocol.Errorf(protocol.KindCode, "set channel", relay.ErrChannelRange)
		if countErrors {
			m.errs.add(err)
		}
		return m.actual, err
	}
	m.desired[ch] = on
	return m.applyLocked(countErrors)
}

func (m *RelayManager) applyLocked(countErrors bool) (relay.Status, error) {
	for ch := relay.Channel(0); ch < relay.Channels; ch++ {
		if m.actual[ch] == m.desired[ch] {
			continue
		}
		if err := m.client.WriteRelay(ch, m.desired[ch]); err != nil {
			if countErrors {
				m.errs.add(err)
			}
			return m.actual, err
		}
		m.actual[ch] = m.desired[ch]
	}
	return m.actual, nil
}

// Refresh reads every channel back from the board and adopts it as actual.
func (m *RelayManager) Refresh(countErrors bool) (relay.Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, err := m.client.ReadAllStatus()
	if err != nil {
		if countErrors {
			m.errs.add(err)
		}
		return m.actual, err
	}
	m.actual = st
	return m.actual, nil
}

// Status returns the actual and desired vectors.
func (m *RelayManager) Status() (actual, desired relay.Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.actual, m.desired
}

// SetPort points the manager at another serial port. The device stays
// unavailable if the port cannot be opened.
func (m *RelayManager) SetPort(name string, baud int) error {
	if m.port == nil {
		return ErrNoPort
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.port.Configure(name, baud)
}

// Port reports the configured port and whether it is usable.
func (m *RelayManager) Port() (name string, baud int, available bool) {
	if m.port == nil {
		return "", 0, false
	}
	name, baud = m.port.Settings()
	return name, baud, m.port.Available()
}

func (m *RelayManager) Errors() map[protocol.Kind]uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errs.snapshot()
}

func (m *RelayManager) ResetErrors() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs.reset()
}

func (m *RelayManager) SetErrorRecorder(r ErrorRecorder) { m.errs.setRecorder(r) }
