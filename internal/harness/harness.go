package harness

import (
	"fmt"

	"github.com/roach88/ncd/internal/compiler"
	"github.com/roach88/ncd/internal/engine"
	"github.com/roach88/ncd/internal/testutil"
)

// maxSteps bounds a single drain so a program that backtracks forever
// fails the scenario instead of hanging it.
const maxSteps = 100000

// Run executes a test scenario and returns the result.
//
// Each scenario runs on a fresh loop and interpreter with a fixed run
// token, so the trace is identical across runs.
//
// Execution flow:
//  1. Load and compile the CUE program
//  2. Start the entry processes
//  3. Apply steps (a single drain when there are none)
//  4. Evaluate assertions against the trace and interpreter state
//  5. Terminate whatever is still running
func Run(scenario *Scenario) (*Result, error) {
	prog, err := compiler.LoadProgram(scenario.Program)
	if err != nil {
		return nil, fmt.Errorf("failed to load program: %w", err)
	}

	f, err := testutil.NewFixture(prog,
		engine.WithTokenGenerator(testutil.NewFixedRunGenerator(scenario.RunToken)),
		engine.WithMaxCycles(scenario.MaxCycles),
	)
	if err != nil {
		return nil, err
	}

	if err := f.Interp.Start(scenario.Entry...); err != nil {
		return nil, fmt.Errorf("failed to start: %w", err)
	}

	steps := scenario.Steps
	if len(steps) == 0 {
		steps = []Step{{Action: StepDrain}}
	}
	terminated := false
	for i, step := range steps {
		switch step.Action {
		case StepDrain:
		case StepStart:
			if _, err := f.Interp.StartProcess(step.Process); err != nil {
				return nil, fmt.Errorf("steps[%d]: %w", i, err)
			}
		case StepTerminate:
			f.Interp.Terminate()
			terminated = true
		default:
			return nil, fmt.Errorf("steps[%d]: unknown action %q", i, step.Action)
		}
		if _, err := f.Loop.DrainLimit(maxSteps); err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	result := NewResult()
	result.RunToken = f.Interp.RunToken()
	for _, t := range f.Recorder.Transitions() {
		result.AddTrace(t)
	}
	for _, p := range f.Interp.Processes() {
		result.State[p.Path()] = p.State().String()
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions, f.Interp) {
		result.AddError(msg)
	}

	if !terminated {
		f.Terminate()
	}

	return result, nil
}

// RunFile loads the scenario at path and runs it.
func RunFile(path string) (*Scenario, *Result, error) {
	s, err := LoadScenario(path)
	if err != nil {
		return nil, nil, err
	}
	r, err := Run(s)
	if err != nil {
		return s, nil, err
	}
	return s, r, nil
}
