package control

import (
	"context"
	"time"

	"thermostab/internal/logger"
)

const minInterval = 100 * time.Millisecond

// Ticker is driven by the scheduler.
type Ticker interface {
	Tick()
}

// Scheduler drives a Ticker from one self-re-arming timer. The interval is
// read again before every re-arm, so threshold changes take effect on the
// next tick.
type Scheduler struct {
	target   Ticker
	interval func() time.Duration
	log      *logger.Logger
}

func NewScheduler(target Ticker, interval func() time.Duration, log *logger.Logger) *Scheduler {
	return &Scheduler{target: target, interval: interval, log: log}
}

func (s *Scheduler) next() time.Duration {
	d := s.interval()
	if d < minInterval {
		d = minInterval
	}
	return d
}

// Run ticks until ctx is canceled. A tick that overruns the interval delays
// the next one; ticks never overlap.
func (s *Scheduler) Run(ctx context.Context) {
	t := time.NewTimer(s.next())
	defer t.Stop()
	if s.log != nil {
		s.log.Infow("scheduler_started", "interval", s.next().String())
	}
	for {
		select {
		case <-ctx.Done():
			if s.log != nil {
				s.log.Infow("scheduler_stopped")
			}
			return
		case <-t.C:
			started := time.Now()
			s.target.Tick()
			if took, d := time.Since(started), s.next(); took > d && s.log != nil {
				s.log.Warnw("tick_overran_interval", "took", took.String(), "interval", d.String())
			}
			t.Reset(s.next())
		}
	}
}
