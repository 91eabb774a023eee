package engine

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestQuotaEnforcer_WithinLimit tests normal operation within quota.
func TestQuotaEnforcer_WithinLimit(t *testing.T) {
	q := NewQuotaEnforcer(10)

	for i := 0; i < 10; i++ {
		err := q.Check()
		assert.NoError(t, err, "cycle %d should be allowed", i+1)
	}

	assert.Equal(t, 10, q.Current())
	assert.Equal(t, 10, q.MaxCycles())
}

// TestQuotaEnforcer_ExceedsLimit tests quota exceeded error.
func TestQuotaEnforcer_ExceedsLimit(t *testing.T) {
	q := NewQuotaEnforcer(5)

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Check())
	}

	err := q.Check()
	require.Error(t, err)

	var cyclesErr *CyclesExceededError
	require.ErrorAs(t, err, &cyclesErr)
	assert.Equal(t, 6, cyclesErr.Cycles)
	assert.Equal(t, 5, cyclesErr.Limit)
}

// TestQuotaEnforcer_Unlimited tests that a zero limit never trips.
func TestQuotaEnforcer_Unlimited(t *testing.T) {
	q := NewQuotaEnforcer(0)

	for i := 0; i < 10000; i++ {
		require.NoError(t, q.Check())
	}
	assert.Equal(t, 10000, q.Current())
}

// TestQuotaEnforcer_Reset tests resetting the counter.
func TestQuotaEnforcer_Reset(t *testing.T) {
	q := NewQuotaEnforcer(5)

	for i := 0; i < 5; i++ {
		_ = q.Check()
	}
	assert.Equal(t, 5, q.Current())

	q.Reset()
	assert.Equal(t, 0, q.Current())

	for i := 0; i < 5; i++ {
		assert.NoError(t, q.Check())
	}
}

func TestQuotaEnforcer_CheckIdleStartsOverAfterIdle(t *testing.T) {
	q := NewQuotaEnforcer(2)

	require.NoError(t, q.CheckIdle(1))
	require.NoError(t, q.CheckIdle(1))
	assert.Error(t, q.CheckIdle(1), "three back-to-back cycles")

	require.NoError(t, q.CheckIdle(2))
	assert.Equal(t, 1, q.Current(), "idle in between starts a new count")
}

func TestCyclesExceededError_Error(t *testing.T) {
	err := &CyclesExceededError{Cycles: 4, Limit: 3}
	assert.Equal(t, "exceeded max backtrack cycles: 4 cycles > 3 limit", err.Error())
}

func TestNewQuotaError_Message(t *testing.T) {
	err := NewQuotaError(&CyclesExceededError{Cycles: 3, Limit: 2})
	err.Process = "main"
	err.Index = 0

	assert.Equal(t,
		"QUOTA_EXCEEDED: backtrack quota spent: exceeded max backtrack cycles: 3 cycles > 2 limit (process=main, index=0)",
		err.Error())
	assert.Equal(t, 1, strings.Count(err.Error(), "max backtrack cycles"))
}

func TestIsQuotaError(t *testing.T) {
	cause := &CyclesExceededError{Cycles: 2, Limit: 1}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"cycles error", cause, true},
		{"runtime quota error", NewQuotaError(cause), true},
		{"wrapped runtime quota error", fmt.Errorf("outer: %w", NewQuotaError(cause)), true},
		{"nested in statement failure", &RuntimeError{Code: ErrCodeStatementFailed, Cause: NewQuotaError(cause)}, true},
		{"unresolved", NewUnresolvedError("variable", "x"), false},
		{"plain", fmt.Errorf("boom"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsQuotaError(tt.err))
		})
	}
}

func TestIsUnresolvedError(t *testing.T) {
	err := fmt.Errorf("ctx: %w", NewUnresolvedError("variable", "a.b"))
	assert.True(t, IsUnresolvedError(err))
	assert.False(t, IsUnresolvedError(NewQuotaError(&CyclesExceededError{})))
}

func TestRuntimeError_Error(t *testing.T) {
	err := &RuntimeError{
		Code:    ErrCodeStatementFailed,
		Message: "statement x failed",
		Process: "main",
		Index:   2,
		Cause:   ErrWrongArity,
	}
	assert.Equal(t, "STATEMENT_FAILED: statement x failed: wrong arity (process=main, index=2)", err.Error())
	assert.ErrorIs(t, err, ErrWrongArity)
}
