package reactor

import "sync"

// Job is a unit of deferred work. Jobs always run on the loop goroutine.
type Job func()

// jobQueue is an unbounded, thread-safe FIFO of jobs.
//
// Unbounded because a job routinely defers further jobs (a statement coming
// up defers the Up signal, which defers the next statement's init, ...) and
// the loop must never block on its own queue.
//
// A buffered signal channel of size 1 lets the Run loop wait for work with
// a select on ctx.Done(); multiple enqueues coalesce into one wake-up.
type jobQueue struct {
	mu     sync.Mutex
	jobs   []Job
	closed bool
	signal chan struct{}
}

func newJobQueue() *jobQueue {
	return &jobQueue{
		jobs:   make([]Job, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds a job to the back of the queue.
// Returns false if the queue is closed.
func (q *jobQueue) Enqueue(j Job) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.jobs = append(q.jobs, j)

	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes the front job without blocking.
func (q *jobQueue) TryDequeue() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.jobs) == 0 {
		return nil, false
	}

	j := q.jobs[0]
	// Drop the slot's reference so the closure can be collected.
	q.jobs[0] = nil

	if len(q.jobs) == 1 {
		q.jobs = q.jobs[:0]
	} else {
		q.jobs = q.jobs[1:]
	}

	return j, true
}

// Wait returns a channel that fires when jobs may be available, and is
// closed when the queue is closed.
func (q *jobQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of pending jobs.
func (q *jobQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// Close stops accepting jobs and wakes any waiter. Idempotent.
func (q *jobQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}

// Closed reports whether Close has been called.
func (q *jobQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
