// Package notify fans controller and device events out to any number of observers.
package notify

import (
	"sync"
	"sync/atomic"
	"time"
)

// Type names an event on the bus and on the websocket stream.
type Type string

const (
	StateChanged       Type = "state_changed"
	RelayStatusUpdated Type = "relay_status_updated"
	TemptParamsUpdated Type = "tempt_params_updated"
	TickReading        Type = "tick_reading"
	Fault              Type = "fault"
	PointFinished      Type = "point_finished"
	JobFailed          Type = "job_failed"
)

// Event is one published notification. Data holds one of the payload types
// in this package.
type Event struct {
	Type Type      `json:"type"`
	At   time.Time `json:"at"`
	Data any       `json:"data,omitempty"`
}

// Publisher is what producers depend on.
type Publisher interface {
	Publish(e Event)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(Event)

func (f PublisherFunc) Publish(e Event) { f(e) }

// Discard drops every event.
var Discard Publisher = PublisherFunc(func(Event) {})

const defaultQueueSize = 64

// Bus delivers every event to every subscriber without blocking. A
// subscriber whose queue is full misses that event.
type Bus struct {
	mu      sync.RWMutex
	subs    map[*Subscription]struct{}
	dropped atomic.Uint64
	now     func() time.Time
}

func NewBus() *Bus {
	return &Bus{subs: make(map[*Subscription]struct{}), now: time.Now}
}

// Publish stamps e if needed and hands it to every subscriber.
func (b *Bus) Publish(e Event) {
	if e.At.IsZero() {
		e.At = b.now().UTC()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for s := range b.subs {
		if s.filter != nil && !s.filter[e.Type] {
			continue
		}
		select {
		case s.ch <- e:
		default:
			b.dropped.Add(1)
		}
	}
}

// Subscribe registers a new observer. With no types it receives everything.
func (b *Bus) Subscribe(queue int, types ...Type) *Subscription {
	if queue <= 0 {
		queue = defaultQueueSize
	}
	s := &Subscription{ch: make(chan Event, queue), bus: b}
	if len(types) > 0 {
		s.filter = make(map[Type]bool, len(types))
		for _, t := range types {
			s.filter[t] = true
		}
	}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()
	return s
}

// Dropped counts deliveries skipped because a subscriber was full.
func (b *Bus) Dropped() uint64 { return b.dropped.Load() }

func (b *Bus) remove(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[s]; ok {
		delete(b.subs, s)
		close(s.ch)
	}
}

type Subscription struct {
	ch     chan Event
	bus    *Bus
	filter map[Type]bool
}

// C is closed after Close.
func (s *Subscription) C() <-chan Event { return s.ch }

func (s *Subscription) Close() { s.bus.remove(s) }
