// Package harness runs conformance scenarios against the interpreter.
//
// A scenario names a CUE program, the processes to start, the steps that
// drive the reactor, and assertions over the resulting transition trace and
// process states.
//
// # Scenario Format
//
//	name: concat_alias
//	description: "alias resolves through to concat's value"
//	program: programs/alias.cue
//	entry: [main]
//	run_token: alias-run
//	steps:
//	  - action: drain
//	  - action: start
//	    process: other
//	assertions:
//	  - type: trace_order
//	    events: ["main#0:up", "main#1:up", "main:process_up"]
//	  - type: trace_count
//	    event: "main#0:init"
//	    count: 1
//	  - type: process_state
//	    process: main
//	    state: up
//	  - type: var_equals
//	    process: main
//	    ref: b
//	    value: "hello"
//
// # Assertion Types
//
//   - trace_order: events appear in the given order, not necessarily adjacent
//   - trace_count: an event appears exactly N times
//   - process_state: a top-level process is in the named state
//   - var_equals: a variable resolved against the whole process has the
//     same canonical JSON as the expected value
//
// Events are written "process#index:event" for statement transitions and
// "process:event" for process transitions.
//
// # Deterministic Testing
//
// Every scenario runs on a fresh reactor loop whose clock stamps the
// transitions, with a fixed run token (run_token, or
// testutil.DefaultRunToken). Identical scenarios produce identical traces,
// which RunWithGolden compares against testdata/golden.
package harness
