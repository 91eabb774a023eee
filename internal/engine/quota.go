package engine

import (
	"errors"
	"fmt"
)

// QuotaEnforcer counts DownUp cycles of a single statement slot and enforces
// a maximum.
//
// Each slot has its own QuotaEnforcer. The count resets whenever the slot is
// initialized afresh and whenever the reactor went idle between two cycles
// (see CheckIdle), so only back-to-back backtracking is limited.
//
// A limit of 0 disables the quota.
type QuotaEnforcer struct {
	maxCycles int
	current   int
	idle      uint64
}

// NewQuotaEnforcer creates a new quota enforcer with the given limit.
func NewQuotaEnforcer(maxCycles int) *QuotaEnforcer {
	return &QuotaEnforcer{maxCycles: maxCycles}
}

// Check increments the cycle counter and validates against the limit.
//
// Returns CyclesExceededError if the quota is exceeded.
func (q *QuotaEnforcer) Check() error {
	q.current++
	if q.maxCycles > 0 && q.current > q.maxCycles {
		return &CyclesExceededError{Cycles: q.current, Limit: q.maxCycles}
	}
	return nil
}

// CheckIdle is Check for a reactor that has gone idle idle times so far.
// If it went idle since the previous cycle the counter is reset first.
func (q *QuotaEnforcer) CheckIdle(idle uint64) error {
	if idle != q.idle {
		q.idle = idle
		q.Reset()
	}
	return q.Check()
}

// Reset resets the cycle counter to 0.
func (q *QuotaEnforcer) Reset() {
	q.current = 0
}

// Current returns the current cycle count.
func (q *QuotaEnforcer) Current() int {
	return q.current
}

// MaxCycles returns the limit.
func (q *QuotaEnforcer) MaxCycles() int {
	return q.maxCycles
}

// CyclesExceededError is returned when a slot exceeds the cycle quota.
//
// The engine converts it into a DeadError of the slot, which fails the
// enclosing process.
type CyclesExceededError struct {
	Cycles int
	Limit  int
}

// Error implements the error interface.
func (e *CyclesExceededError) Error() string {
	return fmt.Sprintf("exceeded max backtrack cycles: %d cycles > %d limit", e.Cycles, e.Limit)
}

// IsCyclesExceededError returns true if the error is a CyclesExceededError.
func IsCyclesExceededError(err error) bool {
	var ce *CyclesExceededError
	return errors.As(err, &ce)
}
