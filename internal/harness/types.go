package harness

import (
	"fmt"

	"github.com/roach88/ncd/internal/engine"
)

// TraceEvent is one interpreter transition as seen by a scenario.
type TraceEvent struct {
	Seq       int64  `json:"seq"`
	Process   string `json:"process"`
	Index     int    `json:"index"`
	Statement string `json:"statement,omitempty"`
	Module    string `json:"module,omitempty"`
	Event     string `json:"event"`
	Detail    string `json:"detail,omitempty"`
}

// Key renders the event the way scenarios name it: "main#0:up" for a
// statement transition, "main:process_up" for a process transition.
func (e TraceEvent) Key() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s:%s", e.Process, e.Event)
	}
	return fmt.Sprintf("%s#%d:%s", e.Process, e.Index, e.Event)
}

func traceEventFrom(t engine.Transition) TraceEvent {
	return TraceEvent{
		Seq:       t.Seq,
		Process:   t.Process,
		Index:     t.Index,
		Statement: t.Statement,
		Module:    t.Module,
		Event:     string(t.Event),
		Detail:    t.Detail,
	}
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every assertion holds.
	Pass bool `json:"pass"`

	// RunToken is the token the interpreter ran under.
	RunToken string `json:"run_token"`

	// Trace contains every transition in seq order, up to the point the
	// assertions were evaluated.
	Trace []TraceEvent `json:"trace"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State maps each top-level process to its final state name.
	State map[string]string `json:"state,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		State:  make(map[string]string),
	}
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a transition to the trace.
func (r *Result) AddTrace(t engine.Transition) {
	r.Trace = append(r.Trace, traceEventFrom(t))
}
