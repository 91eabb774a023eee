package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/ncd/internal/engine"
)

// DefaultBatchSize is how many transitions a Journal buffers before it
// writes them in one transaction.
const DefaultBatchSize = 64

// Journal is an engine.Observer that persists every transition of one run.
//
// Transitions are buffered and written in batches; Flush writes the rest.
// Observe cannot return an error, so the first write failure is kept and
// reported by Err and Flush; later transitions are dropped.
type Journal struct {
	store *Store
	ctx   context.Context
	run   string
	batch int

	mu      sync.Mutex
	pending []engine.Transition
	err     error
	written int
}

// JournalOption configures a Journal.
type JournalOption func(*Journal)

// WithBatchSize sets the buffer size. Values below 1 write every transition
// on its own.
func WithBatchSize(n int) JournalOption {
	return func(j *Journal) {
		j.batch = max(n, 1)
	}
}

// NewJournal writes the run header and returns an observer for its
// transitions.
func NewJournal(ctx context.Context, s *Store, run Run, opts ...JournalOption) (*Journal, error) {
	if run.Token == "" {
		return nil, fmt.Errorf("new journal: empty run token")
	}
	if err := s.WriteRun(ctx, run); err != nil {
		return nil, fmt.Errorf("new journal: %w", err)
	}
	j := &Journal{store: s, ctx: ctx, run: run.Token, batch: DefaultBatchSize}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

// Observe implements engine.Observer.
func (j *Journal) Observe(t engine.Transition) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.err != nil {
		return
	}
	if t.RunToken != j.run {
		j.fail(t.Seq, fmt.Errorf("journal %s: transition for run %q", j.run, t.RunToken))
		return
	}
	j.pending = append(j.pending, t)
	if len(j.pending) >= j.batch {
		j.flushLocked()
	}
}

// Flush writes the buffered transitions and returns the first write
// failure, if any.
func (j *Journal) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.err == nil && len(j.pending) > 0 {
		j.flushLocked()
	}
	return j.err
}

func (j *Journal) flushLocked() {
	var err error
	if len(j.pending) == 1 {
		err = j.store.WriteTransition(j.ctx, j.pending[0])
	} else {
		err = j.store.WriteTransitions(j.ctx, j.pending)
	}
	if err != nil {
		j.fail(j.pending[0].Seq, err)
		return
	}
	j.written += len(j.pending)
	j.pending = j.pending[:0]
}

func (j *Journal) fail(seq int64, err error) {
	j.err = err
	j.pending = nil
	slog.Error("journal write failed", "run", j.run, "seq", seq, "error", err)
}

// Err returns the first write failure, if any.
func (j *Journal) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// Written returns how many transitions were persisted.
func (j *Journal) Written() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.written
}

// Buffered returns how many transitions wait for the next write.
func (j *Journal) Buffered() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.pending)
}

// RunToken returns the token of the journaled run.
func (j *Journal) RunToken() string {
	return j.run
}
