package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/ncd/internal/engine"
	"github.com/roach88/ncd/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Process  string // optional - filter to one process path
}

// TraceEvent represents a single transition in the trace timeline.
type TraceEvent struct {
	Seq       int64  `json:"seq"`
	Process   string `json:"process"`
	Index     int    `json:"index"`
	Statement string `json:"statement,omitempty"`
	Module    string `json:"module,omitempty"`
	Event     string `json:"event"`
	Detail    string `json:"detail,omitempty"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Run      store.Run    `json:"run"`
	Timeline []TraceEvent `json:"timeline"`
	Stats    TraceStats   `json:"stats"`
}

// TraceStats holds summary statistics for the run.
type TraceStats struct {
	Transitions   int               `json:"transitions"`
	LastSeq       int64             `json:"last_seq"`
	EventCounts   map[string]int    `json:"event_counts"`
	ProcessStates map[string]string `json:"process_states"`
	Failed        []string          `json:"failed,omitempty"`
	IsClean       bool              `json:"is_clean"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace [run-token]",
		Short: "Show the journaled transitions of a run",
		Long: `Show the transitions journaled for a run, in seq order.

Without a run token the most recently journaled run is shown.

The output includes:
- Timeline: every statement and process transition
- Stats: event counts, final process states, failed processes

Examples:
  ncd trace --db ./ncd.db
  ncd trace --db ./ncd.db 01890a5d-ac96-774b-bcce-b302099a8057
  ncd trace --db ./ncd.db --process main --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			token := ""
			if len(args) == 1 {
				token = args[0]
			}
			return runTrace(opts, token, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (default from config)")
	cmd.Flags().StringVar(&opts.Process, "process", "", "filter to one process path")

	return cmd
}

func runTrace(opts *TraceOptions, token string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = opts.config().JournalPath()
	}
	if dbPath == "" {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, "no journal: pass --db or set [journal] path")
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, fmt.Sprintf("failed to open database: %v", err))
	}
	defer st.Close()

	if token == "" {
		latest, err := st.LatestRun(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, "journal has no runs")
		}
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeDatabase, err.Error())
		}
		token = latest.Token
	}

	state, err := st.GetRunState(ctx, token)
	if errors.Is(err, sql.ErrNoRows) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("run not found: %s", token))
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, err.Error())
	}

	var transitions []engine.Transition
	if opts.Process != "" {
		transitions, err = st.ReadProcessTransitions(ctx, token, opts.Process)
	} else {
		transitions, err = st.ReadTransitions(ctx, token)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, err.Error())
	}

	result := TraceResult{
		Run:      state.Run,
		Timeline: buildTimeline(transitions),
		Stats:    buildStats(state),
	}

	if opts.Format == "json" {
		return formatter.JSON(CLIResponse{Status: "ok", Data: result, RunToken: token})
	}
	return outputTraceText(formatter.Writer, result, state)
}

// buildTimeline converts journaled transitions to timeline events.
func buildTimeline(ts []engine.Transition) []TraceEvent {
	timeline := make([]TraceEvent, 0, len(ts))
	for _, t := range ts {
		timeline = append(timeline, TraceEvent{
			Seq:       t.Seq,
			Process:   t.Process,
			Index:     t.Index,
			Statement: t.Statement,
			Module:    t.Module,
			Event:     string(t.Event),
			Detail:    t.Detail,
		})
	}
	return timeline
}

func buildStats(state store.RunState) TraceStats {
	stats := TraceStats{
		Transitions:   state.Transitions,
		LastSeq:       state.LastSeq,
		EventCounts:   make(map[string]int, len(state.EventCounts)),
		ProcessStates: make(map[string]string, len(state.ProcessStates)),
		Failed:        state.Failed,
		IsClean:       state.IsClean,
	}
	for ev, n := range state.EventCounts {
		stats.EventCounts[string(ev)] = n
	}
	for p, ev := range state.ProcessStates {
		stats.ProcessStates[p] = string(ev)
	}
	return stats
}

// outputTraceText outputs the trace result as text.
func outputTraceText(w io.Writer, result TraceResult, state store.RunState) error {
	fmt.Fprintf(w, "Trace for Run: %s\n", result.Run.Token)
	fmt.Fprintf(w, "Program: %s (engine %s)\n", result.Run.ProgramHash, result.Run.EngineVersion)
	fmt.Fprintf(w, "Status: %s\n", cleanStatus(result.Stats.IsClean))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no transitions)")
	}
	for _, ev := range result.Timeline {
		formatTimelineEvent(w, ev)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  %s\n", state.String())
	events := make([]string, 0, len(result.Stats.EventCounts))
	for ev := range result.Stats.EventCounts {
		events = append(events, ev)
	}
	sort.Strings(events)
	for _, ev := range events {
		fmt.Fprintf(w, "  %-20s %d\n", ev+":", result.Stats.EventCounts[ev])
	}

	return nil
}

// formatTimelineEvent writes one timeline line.
func formatTimelineEvent(w io.Writer, ev TraceEvent) {
	if ev.Index < 0 {
		fmt.Fprintf(w, "  [%d] %s: %s\n", ev.Seq, ev.Process, ev.Event)
	} else {
		label := ev.Module
		if ev.Statement != "" {
			label = fmt.Sprintf("%s %s", ev.Module, ev.Statement)
		}
		fmt.Fprintf(w, "  [%d] %s#%d (%s): %s\n", ev.Seq, ev.Process, ev.Index, label, ev.Event)
	}
	if ev.Detail != "" {
		fmt.Fprintf(w, "      %s\n", ev.Detail)
	}
}

func cleanStatus(clean bool) string {
	if clean {
		return "clean"
	}
	return "unclean"
}
