package control

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingTicker struct {
	n atomic.Int32
}

func (c *countingTicker) Tick() { c.n.Add(1) }

func TestScheduler_TicksUntilCanceled(t *testing.T) {
	c := &countingTicker{}
	s := NewScheduler(c, func() time.Duration { return time.Millisecond }, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return c.n.Load() >= 3 }, 5*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	stopped := c.n.Load()
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, stopped, c.n.Load())
}

func TestScheduler_RereadsInterval(t *testing.T) {
	c := &countingTicker{}
	var calls atomic.Int32
	s := NewScheduler(c, func() time.Duration {
		calls.Add(1)
		return time.Millisecond
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	assert.Eventually(t, func() bool { return c.n.Load() >= 2 }, 5*time.Second, 10*time.Millisecond)
	assert.Greater(t, calls.Load(), c.n.Load())
}
