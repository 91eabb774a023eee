package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/ncd/internal/engine"
)

// Run is the journal header of one interpreter run.
type Run struct {
	Token         string   `json:"token"`
	ProgramHash   string   `json:"program_hash"`
	EngineVersion string   `json:"engine_version"`
	StartedSeq    int64    `json:"started_seq"`
	Entry         []string `json:"entry"`
}

// WriteRun inserts a run record into the store.
// Uses ON CONFLICT(token) DO NOTHING for idempotency - duplicate tokens are silently ignored.
func (s *Store) WriteRun(ctx context.Context, run Run) error {
	entry := run.Entry
	if entry == nil {
		entry = []string{}
	}
	entryJSON, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("write run: marshal entry: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs
		(token, program_hash, engine_version, started_seq, entry)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(token) DO NOTHING
	`,
		run.Token,
		run.ProgramHash,
		run.EngineVersion,
		run.StartedSeq,
		string(entryJSON),
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// WriteTransition inserts one transition into the store.
// Uses ON CONFLICT(run, seq) DO NOTHING for idempotency.
//
// Note: The run referenced by t.RunToken must exist (foreign key constraint).
func (s *Store) WriteTransition(ctx context.Context, t engine.Transition) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transitions
		(run, seq, process, idx, statement, module, event, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run, seq) DO NOTHING
	`,
		t.RunToken,
		t.Seq,
		t.Process,
		t.Index,
		t.Statement,
		t.Module,
		string(t.Event),
		t.Detail,
	)
	if err != nil {
		return fmt.Errorf("write transition: %w", err)
	}
	return nil
}

// WriteTransitions inserts a batch of transitions in one transaction.
func (s *Store) WriteTransitions(ctx context.Context, ts []engine.Transition) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write transitions: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transitions
		(run, seq, process, idx, statement, module, event, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run, seq) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("write transitions: prepare: %w", err)
	}
	defer stmt.Close()

	for _, t := range ts {
		if _, err := stmt.ExecContext(ctx,
			t.RunToken, t.Seq, t.Process, t.Index, t.Statement, t.Module, string(t.Event), t.Detail,
		); err != nil {
			return fmt.Errorf("write transitions: seq %d: %w", t.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write transitions: commit: %w", err)
	}
	return nil
}
