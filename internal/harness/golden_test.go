package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden_ConcatAlias(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/concat_alias.yaml")
	require.NoError(t, err)

	// Regenerate with: go test ./internal/harness -run TestRunWithGolden -update
	result, err := RunWithGolden(t, scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
}

func TestTraceSnapshot_Marshal(t *testing.T) {
	s := TraceSnapshot{
		ScenarioName: "snap",
		RunToken:     "r",
		Trace: []TraceEvent{
			{Seq: 1, Process: "main", Index: -1, Event: "process_start"},
			{Seq: 2, Process: "main", Index: 0, Statement: "x", Module: "concat", Event: "dead_error", Detail: "boom"},
		},
	}

	got, err := s.Marshal()
	require.NoError(t, err)
	assert.Equal(t,
		`{"run_token":"r","scenario_name":"snap","trace":[`+
			`{"event":"main:process_start","seq":"1"},`+
			`{"detail":"boom","event":"main#0:dead_error","module":"concat","seq":"2","statement":"x"}]}`,
		string(got))
}
