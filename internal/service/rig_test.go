package service

import (
	"context"
	"sync"
	"testing"

	"thermostab/internal/device"
	"thermostab/internal/notify"
	"thermostab/internal/protocol/relay"
	"thermostab/internal/protocol/tempt"
	"thermostab/internal/serialport"
	"thermostab/internal/simulator"
)

// capturePub records every published notification.
type capturePub struct {
	mu     sync.Mutex
	events []notify.Event
}

func (c *capturePub) Publish(e notify.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *capturePub) last(t *testing.T) notify.Event {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.events) == 0 {
		t.Fatalf("no notification published")
	}
	return c.events[len(c.events)-1]
}

// syncJobs runs every job inline and keeps the last job error.
type syncJobs struct {
	lanes   []string
	lastErr error
	full    bool
}

func (s *syncJobs) Submit(lane, name string, fn func(ctx context.Context) error) (string, error) {
	if s.full {
		return "", errQueueFullForTest
	}
	s.lanes = append(s.lanes, lane)
	s.lastErr = fn(context.Background())
	return lane + "/" + name, nil
}

// simRig wires both device managers to a simulated bath.
type simRig struct {
	bath   *simulator.Bath
	relays *device.RelayManager
	tempt  *device.TemptManager
}

func newSimRig(t *testing.T) *simRig {
	t.Helper()
	bath := simulator.NewBath()
	rl := serialport.NewLink(serialport.Config{Baud: serialport.RelayBaudRate}, bath.Opener())
	tl := serialport.NewLink(serialport.Config{Baud: serialport.TemptBaudRate}, bath.Opener())
	r := &simRig{
		bath:   bath,
		relays: device.NewRelayManager(relay.NewClient(rl), rl),
		tempt:  device.NewTemptManager(tempt.NewClient(tl), tl),
	}
	r.tempt.SetCheckPause(0)
	if err := r.relays.SetPort(simulator.RelayPort, 0); err != nil {
		t.Fatalf("relay port: %v", err)
	}
	if err := r.tempt.SetPort(simulator.TemptPort, 0); err != nil {
		t.Fatalf("tempt port: %v", err)
	}
	return r
}
