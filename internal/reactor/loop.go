package reactor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Reactor schedules callbacks to run on a future tick of a single-threaded
// loop. It is the only scheduling primitive the engine depends on.
type Reactor interface {
	// Defer queues fn. fn runs after the caller has returned, never inline.
	Defer(fn func())
}

// ErrDrainLimit is returned by DrainLimit when the queue did not empty
// within the allowed number of jobs.
var ErrDrainLimit = errors.New("reactor: drain limit reached")

// Loop is a single-threaded reactor.
//
// Thread-safety model:
//   - Defer(): safe from any goroutine
//   - Run(), Drain(), Step(): must be called from exactly one goroutine;
//     every job runs on that goroutine, so jobs never race with each other
type Loop struct {
	queue *jobQueue
	clock *Clock
	ran   int64
	idle  uint64
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithClock makes the loop stamp with an existing clock, e.g. one resumed
// from a journal with NewClockAt.
func WithClock(c *Clock) LoopOption {
	return func(l *Loop) {
		l.clock = c
	}
}

// NewLoop creates an idle loop.
func NewLoop(opts ...LoopOption) *Loop {
	l := &Loop{
		queue: newJobQueue(),
		clock: NewClock(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Defer implements Reactor. Jobs deferred after Stop are dropped.
func (l *Loop) Defer(fn func()) {
	if !l.queue.Enqueue(fn) {
		slog.Debug("reactor: job dropped, loop stopped")
	}
}

// Clock returns the loop's logical clock.
func (l *Loop) Clock() *Clock {
	return l.clock
}

// Pending returns the number of queued jobs.
func (l *Loop) Pending() int {
	return l.queue.Len()
}

// Ran returns the total number of jobs executed.
func (l *Loop) Ran() int64 {
	return l.ran
}

// Idle returns how many times a job left the queue empty.
func (l *Loop) Idle() uint64 {
	return l.idle
}

// Step runs one job if one is queued.
func (l *Loop) Step() bool {
	j, ok := l.queue.TryDequeue()
	if !ok {
		return false
	}
	l.ran++
	j()
	if l.queue.Len() == 0 {
		l.idle++
	}
	return true
}

// Drain runs jobs until the queue is empty and returns how many ran.
// Jobs queued by running jobs are drained too.
func (l *Loop) Drain() int {
	n := 0
	for l.Step() {
		n++
	}
	return n
}

// DrainLimit is Drain with a bound, for callers that must not spin forever
// on a program that keeps itself busy (e.g. an unconditional backtrack loop).
func (l *Loop) DrainLimit(max int) (int, error) {
	n := 0
	for n < max {
		if !l.Step() {
			return n, nil
		}
		n++
	}
	if l.queue.Len() > 0 {
		return n, fmt.Errorf("%w: %d jobs ran, %d still queued", ErrDrainLimit, n, l.queue.Len())
	}
	return n, nil
}

// Run processes jobs until ctx is cancelled or Stop is called.
//
// CRITICAL: Must be called from exactly ONE goroutine.
func (l *Loop) Run(ctx context.Context) error {
	slog.Debug("reactor loop starting")

	for {
		if l.Step() {
			continue
		}

		select {
		case <-ctx.Done():
			slog.Debug("reactor loop stopping: context cancelled")
			l.queue.Close()
			return ctx.Err()

		case <-l.queue.Wait():
			// The signal channel is closed by Stop; an empty closed queue ends the loop.
			if l.queue.Closed() && l.queue.Len() == 0 {
				slog.Debug("reactor loop stopping: queue closed")
				return nil
			}
		}
	}
}

// RunUntilIdle processes jobs until the queue is empty, ctx is cancelled,
// or Stop is called.
func (l *Loop) RunUntilIdle(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !l.Step() {
			return nil
		}
	}
}

// Stop closes the queue. Run returns once the already queued jobs ran.
func (l *Loop) Stop() {
	l.queue.Close()
}
