// Package worker runs single-shot device exchanges off the tick path. Each
// device has one lane: a bounded queue drained by one goroutine, so jobs for
// the same device never run concurrently.
package worker

import (
	"context"
	"errors"
	"sync"

	"thermostab/internal/logger"

	"github.com/google/uuid"
)

var (
	ErrQueueFull   = errors.New("worker queue full")
	ErrUnknownLane = errors.New("unknown worker lane")
)

const defaultQueueSize = 8

// Job is one queued exchange.
type Job struct {
	ID   string
	Lane string
	Name string
	Run  func(ctx context.Context) error
}

type jobIDKey struct{}

// JobID returns the id of the job running with ctx, or "".
func JobID(ctx context.Context) string {
	id, _ := ctx.Value(jobIDKey{}).(string)
	return id
}

// FailureFunc is called for every job that returns an error.
type FailureFunc func(j Job, err error)

type Lane struct {
	name   string
	q      chan Job
	log    *logger.Logger
	onFail FailureFunc
}

func newLane(name string, size int, log *logger.Logger, onFail FailureFunc) *Lane {
	if size <= 0 {
		size = defaultQueueSize
	}
	return &Lane{name: name, q: make(chan Job, size), log: log, onFail: onFail}
}

// Submit queues fn without blocking and returns the job id.
func (l *Lane) Submit(name string, fn func(ctx context.Context) error) (string, error) {
	j := Job{ID: uuid.NewString(), Lane: l.name, Name: name, Run: fn}
	select {
	case l.q <- j:
		return j.ID, nil
	default:
		return "", ErrQueueFull
	}
}

func (l *Lane) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-l.q:
			err := j.Run(context.WithValue(ctx, jobIDKey{}, j.ID))
			if err == nil {
				continue
			}
			if l.log != nil {
				l.log.Warnw("worker_job_failed", "lane", l.name, "job", j.Name, "job_id", j.ID, "err", err)
			}
			if l.onFail != nil {
				l.onFail(j, err)
			}
		}
	}
}

// Pool owns the lanes.
type Pool struct {
	lanes map[string]*Lane
	wg    sync.WaitGroup
}

// NewPool creates one lane per name, each with a queue of size jobs.
func NewPool(size int, log *logger.Logger, onFail FailureFunc, names ...string) *Pool {
	p := &Pool{lanes: make(map[string]*Lane, len(names))}
	for _, n := range names {
		p.lanes[n] = newLane(n, size, log, onFail)
	}
	return p
}

// Start launches one goroutine per lane. They exit when ctx is cancelled.
func (p *Pool) Start(ctx context.Context) {
	for _, l := range p.lanes {
		p.wg.Add(1)
		go func(l *Lane) {
			defer p.wg.Done()
			l.run(ctx)
		}(l)
	}
}

// Wait blocks until every lane goroutine has exited.
func (p *Pool) Wait() { p.wg.Wait() }

// Submit queues fn on the named lane.
func (p *Pool) Submit(lane, name string, fn func(ctx context.Context) error) (string, error) {
	l, ok := p.lanes[lane]
	if !ok {
		return "", ErrUnknownLane
	}
	return l.Submit(name, fn)
}
