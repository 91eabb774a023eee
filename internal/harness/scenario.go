package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
// A scenario runs a CUE program on a fresh interpreter, applies its steps,
// and asserts on the resulting trace and process states.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Program is the CUE program (directory or single file).
	// Relative paths are resolved against the scenario file's directory.
	Program string `yaml:"program"`

	// Entry lists the processes started first. Empty starts every
	// process of the program.
	Entry []string `yaml:"entry,omitempty"`

	// RunToken is an optional fixed run token.
	// If empty, defaults to testutil.DefaultRunToken.
	RunToken string `yaml:"run_token,omitempty"`

	// MaxCycles bounds back-to-back DownUp cycles per statement (0 = none).
	MaxCycles int `yaml:"max_cycles,omitempty"`

	// Steps drive the interpreter after the entry processes start.
	// Empty means a single drain.
	Steps []Step `yaml:"steps,omitempty"`

	// Assertions validate the trace and final state.
	// Supported types: trace_order, trace_count, process_state, var_equals
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one interpreter action.
type Step struct {
	// Action is one of drain, start, terminate.
	Action string `yaml:"action"`

	// Process names the process for start.
	Process string `yaml:"process,omitempty"`
}

// Step actions.
const (
	StepDrain     = "drain"
	StepStart     = "start"
	StepTerminate = "terminate"
)

// Assertion validates the trace or the final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_order": Check events appear in order
	// - "trace_count": Check an event appears exactly N times
	// - "process_state": Check a process ended in a state
	// - "var_equals": Resolve a variable and compare it canonically
	Type string `yaml:"type"`

	// Events is the expected event order (used by trace_order), in
	// TraceEvent.Key form.
	Events []string `yaml:"events,omitempty"`

	// Event is the counted event (used by trace_count).
	Event string `yaml:"event,omitempty"`

	// Count is the expected number of occurrences (used by trace_count).
	Count int `yaml:"count,omitempty"`

	// Process is the top-level process (used by process_state, var_equals).
	Process string `yaml:"process,omitempty"`

	// State is the expected process state name (used by process_state).
	State string `yaml:"state,omitempty"`

	// Ref is the dotted variable name (used by var_equals).
	Ref string `yaml:"ref,omitempty"`

	// Value is the expected variable value (used by var_equals).
	// Scalars compare as their string form.
	Value any `yaml:"value,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceOrder   = "trace_order"
	AssertTraceCount   = "trace_count"
	AssertProcessState = "process_state"
	AssertVarEquals    = "var_equals"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
//
// The program path is resolved relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Program != "" && !filepath.IsAbs(scenario.Program) {
		scenario.Program = filepath.Join(filepath.Dir(path), scenario.Program)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Program == "" {
		return fmt.Errorf("program is required")
	}
	if _, err := os.Stat(s.Program); os.IsNotExist(err) {
		return fmt.Errorf("program not found: %s", s.Program)
	}

	if s.MaxCycles < 0 {
		return fmt.Errorf("max_cycles must be non-negative")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		switch step.Action {
		case StepDrain, StepTerminate:
		case StepStart:
			if step.Process == "" {
				return fmt.Errorf("steps[%d]: process is required for start", i)
			}
		case "":
			return fmt.Errorf("steps[%d]: action is required", i)
		default:
			return fmt.Errorf("steps[%d]: unknown action %q", i, step.Action)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertProcessState:
		if a.Process == "" || a.State == "" {
			return fmt.Errorf("assertions[%d]: process and state are required for process_state", index)
		}
	case AssertVarEquals:
		if a.Process == "" || a.Ref == "" {
			return fmt.Errorf("assertions[%d]: process and ref are required for var_equals", index)
		}
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for var_equals", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
