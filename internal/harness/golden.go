package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/ncd/internal/value"
)

// TraceSnapshot captures the complete trace for a scenario execution.
// It is serialized as canonical JSON for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	RunToken     string       `json:"run_token"`
	Trace        []TraceEvent `json:"trace"`
}

// toCanonicalMap converts a TraceSnapshot to plain Go data for
// value.FromGo. Empty optional fields are left out.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		eventMap := map[string]any{
			"event": event.Key(),
			"seq":   event.Seq,
		}
		if event.Statement != "" {
			eventMap["statement"] = event.Statement
		}
		if event.Module != "" {
			eventMap["module"] = event.Module
		}
		if event.Detail != "" {
			eventMap["detail"] = event.Detail
		}
		traceList[i] = eventMap
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"run_token":     s.RunToken,
		"trace":         traceList,
	}
}

// Marshal renders the snapshot as canonical JSON.
func (s *TraceSnapshot) Marshal() ([]byte, error) {
	mem := value.NewMem()
	defer mem.Release()

	v, err := value.FromGo(mem, s.toCanonicalMap())
	if err != nil {
		return nil, err
	}
	return value.MarshalCanonical(v)
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return result, err
	}
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		RunToken:     result.RunToken,
		Trace:        result.Trace,
	}
	traceJSON, err := snapshot.Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}
