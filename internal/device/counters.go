// Package device owns the relay board and the T-C board. Each manager keeps
// the desired and actual hardware state, serializes access to its link and
// counts exchange failures per error kind.
package device

import (
	"sync"

	"thermostab/internal/protocol"
)

const (
	RelayDevice = "relay"
	TemptDevice = "tempt"
)

// ErrorRecorder receives every counted device error, e.g. for metrics.
type ErrorRecorder interface {
	RecordDeviceError(device string, kind protocol.Kind)
}

// Port is the runtime-configurable side of a serial link.
type Port interface {
	Configure(name string, baud int) error
	Available() bool
	Settings() (string, int)
}

type counters struct {
	device string
	kinds  []protocol.Kind
	counts map[protocol.Kind]uint64

	recMu sync.RWMutex
	rec   ErrorRecorder
}

func newCounters(device string, kinds []protocol.Kind) *counters {
	c := &counters{device: device, kinds: kinds}
	c.reset()
	return c
}

func (c *counters) add(err error) {
	k := protocol.KindOf(err)
	if k == protocol.KindNone {
		return
	}
	c.counts[k]++
	c.recMu.RLock()
	rec := c.rec
	c.recMu.RUnlock()
	if rec != nil {
		rec.RecordDeviceError(c.device, k)
	}
}

func (c *counters) snapshot() map[protocol.Kind]uint64 {
	out := make(map[protocol.Kind]uint64, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}

func (c *counters) reset() {
	c.counts = make(map[protocol.Kind]uint64, len(c.kinds))
	for _, k := range c.kinds {
		c.counts[k] = 0
	}
}

func (c *counters) setRecorder(r ErrorRecorder) {
	c.recMu.Lock()
	c.rec = r
	c.recMu.Unlock()
}
