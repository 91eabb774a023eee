package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/roach88/ncd/internal/engine"
)

// ReadRun retrieves a single run by token.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, token string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT token, program_hash, engine_version, started_seq, entry
		FROM runs
		WHERE token = ?
	`, token)
	return scanRun(row)
}

// LatestRun returns the most recently journaled run.
// Returns sql.ErrNoRows if the journal is empty.
func (s *Store) LatestRun(ctx context.Context) (Run, error) {
	// rowid is insertion order, which is the only cross-run order we have.
	row := s.db.QueryRowContext(ctx, `
		SELECT token, program_hash, engine_version, started_seq, entry
		FROM runs
		ORDER BY rowid DESC
		LIMIT 1
	`)
	return scanRun(row)
}

// ListRuns returns every run in insertion order.
// Returns an empty slice (not nil) for an empty journal.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT token, program_hash, engine_version, started_seq, entry
		FROM runs
		ORDER BY rowid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadTransitions returns every transition of a run ordered by seq.
// Returns an empty slice (not nil) if the run has no transitions.
func (s *Store) ReadTransitions(ctx context.Context, run string) ([]engine.Transition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run, seq, process, idx, statement, module, event, detail
		FROM transitions
		WHERE run = ?
		ORDER BY seq ASC
	`, run)
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close()

	return scanTransitions(rows)
}

// ReadProcessTransitions returns the transitions of one process path in a
// run ordered by seq.
func (s *Store) ReadProcessTransitions(ctx context.Context, run, process string) ([]engine.Transition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run, seq, process, idx, statement, module, event, detail
		FROM transitions
		WHERE run = ? AND process = ?
		ORDER BY seq ASC
	`, run, process)
	if err != nil {
		return nil, fmt.Errorf("query process transitions: %w", err)
	}
	defer rows.Close()

	return scanTransitions(rows)
}

// GetLastSeq returns the highest seq journaled for a run, or 0 if none.
func (s *Store) GetLastSeq(ctx context.Context, run string) (int64, error) {
	var seq sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(seq) FROM transitions WHERE run = ?
	`, run).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("get last seq: %w", err)
	}
	if !seq.Valid {
		return 0, nil
	}
	return seq.Int64, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run       Run
		entryJSON string
	)
	if err := row.Scan(&run.Token, &run.ProgramHash, &run.EngineVersion, &run.StartedSeq, &entryJSON); err != nil {
		return Run{}, err
	}
	if err := json.Unmarshal([]byte(entryJSON), &run.Entry); err != nil {
		return Run{}, fmt.Errorf("unmarshal run entry: %w", err)
	}
	return run, nil
}

func scanTransitions(rows *sql.Rows) ([]engine.Transition, error) {
	ts := []engine.Transition{}
	for rows.Next() {
		var (
			t     engine.Transition
			event string
		)
		if err := rows.Scan(&t.RunToken, &t.Seq, &t.Process, &t.Index, &t.Statement, &t.Module, &event, &t.Detail); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		t.Event = engine.TransitionEvent(event)
		ts = append(ts, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transitions: %w", err)
	}
	return ts, nil
}
