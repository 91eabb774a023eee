package store

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/ncd/internal/engine"
)

// RunState summarizes a journaled run.
type RunState struct {
	Run         Run
	Transitions int
	LastSeq     int64
	// EventCounts counts transitions per event.
	EventCounts map[engine.TransitionEvent]int
	// ProcessStates holds the last process-level event per process path.
	ProcessStates map[string]engine.TransitionEvent
	// Failed lists process paths that failed at any point, sorted.
	Failed []string
	// IsClean is true if every process ended terminated and none failed.
	IsClean bool
}

// GetRunState retrieves and analyzes a run's transitions.
func (s *Store) GetRunState(ctx context.Context, token string) (RunState, error) {
	run, err := s.ReadRun(ctx, token)
	if err != nil {
		return RunState{}, fmt.Errorf("get run state: %w", err)
	}

	state := RunState{
		Run:           run,
		EventCounts:   make(map[engine.TransitionEvent]int),
		ProcessStates: make(map[string]engine.TransitionEvent),
	}

	counts, err := s.countEvents(ctx, token)
	if err != nil {
		return state, fmt.Errorf("get run state: %w", err)
	}
	for ev, n := range counts {
		state.EventCounts[ev] = n
		state.Transitions += n
	}

	state.LastSeq, err = s.GetLastSeq(ctx, token)
	if err != nil {
		return state, fmt.Errorf("get run state: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT process, event
		FROM transitions
		WHERE run = ? AND idx = -1
		ORDER BY seq ASC
	`, token)
	if err != nil {
		return state, fmt.Errorf("get run state: query process events: %w", err)
	}
	defer rows.Close()

	failed := make(map[string]bool)
	for rows.Next() {
		var process, event string
		if err := rows.Scan(&process, &event); err != nil {
			return state, fmt.Errorf("get run state: scan: %w", err)
		}
		ev := engine.TransitionEvent(event)
		state.ProcessStates[process] = ev
		if ev == engine.TransitionProcessFailed && !failed[process] {
			failed[process] = true
			state.Failed = append(state.Failed, process)
		}
	}
	if err := rows.Err(); err != nil {
		return state, fmt.Errorf("get run state: iterate: %w", err)
	}

	sort.Strings(state.Failed)

	state.IsClean = len(state.ProcessStates) > 0 && len(state.Failed) == 0
	for _, ev := range state.ProcessStates {
		if ev != engine.TransitionProcessTerminated {
			state.IsClean = false
		}
	}

	return state, nil
}

func (s *Store) countEvents(ctx context.Context, token string) (map[engine.TransitionEvent]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event, COUNT(*)
		FROM transitions
		WHERE run = ?
		GROUP BY event
		ORDER BY event ASC
	`, token)
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	defer rows.Close()

	counts := make(map[engine.TransitionEvent]int)
	for rows.Next() {
		var (
			event string
			n     int
		)
		if err := rows.Scan(&event, &n); err != nil {
			return nil, fmt.Errorf("count events: scan: %w", err)
		}
		counts[engine.TransitionEvent(event)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count events: iterate: %w", err)
	}
	return counts, nil
}

// String renders a one-line summary for CLI output.
func (s RunState) String() string {
	status := "clean"
	if !s.IsClean {
		status = "unclean"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "run %s: %d transitions, last seq %d, %s", s.Run.Token, s.Transitions, s.LastSeq, status)
	if len(s.Failed) > 0 {
		fmt.Fprintf(&b, ", failed: %s", strings.Join(s.Failed, ", "))
	}
	return b.String()
}
