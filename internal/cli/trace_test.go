package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// journalRun runs program src to idle and returns the journal path.
func journalRun(t *testing.T, src, token string, extra ...string) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "ncd.db")
	args := append([]string{"--until-idle", "--db", dbPath}, extra...)
	args = append(args, writeProgram(t, src))
	_, _ = runWithToken("text", token, args...)
	return dbPath
}

func TestTraceText(t *testing.T) {
	dbPath := journalRun(t, aliasProgram, "trace-1")

	out, err := execute(NewTraceCommand(&RootOptions{Format: "text"}), "--db", dbPath, "trace-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Trace for Run: trace-1")
	assert.Contains(t, out, "Status: clean")
	assert.Contains(t, out, "[1] main: process_start")
	assert.Contains(t, out, "main#0 (concat c): init")
	assert.Contains(t, out, "main#1 (alias a): up")
	assert.Contains(t, out, "main: process_terminated")
}

func TestTraceDefaultsToLatestRun(t *testing.T) {
	dbPath := journalRun(t, aliasProgram, "only-run")

	out, err := execute(NewTraceCommand(&RootOptions{Format: "json"}), "--db", dbPath)
	require.NoError(t, err)

	var resp struct {
		RunToken string      `json:"run_token"`
		Data     TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "only-run", resp.RunToken)
	assert.Equal(t, "only-run", resp.Data.Run.Token)
	assert.True(t, resp.Data.Stats.IsClean)
	assert.Equal(t, "process_terminated", resp.Data.Stats.ProcessStates["main"])
	require.NotEmpty(t, resp.Data.Timeline)

	for i := 1; i < len(resp.Data.Timeline); i++ {
		assert.Greater(t, resp.Data.Timeline[i].Seq, resp.Data.Timeline[i-1].Seq)
	}
}

func TestTraceShowsFailureDetail(t *testing.T) {
	dbPath := journalRun(t, retryProgram, "trace-fail", "--max-cycles", "2")

	out, err := execute(NewTraceCommand(&RootOptions{Format: "text"}), "--db", dbPath, "trace-fail")
	require.NoError(t, err)
	assert.Contains(t, out, "Status: unclean")
	assert.Contains(t, out, "main: process_failed")
	assert.Contains(t, out, "QUOTA_EXCEEDED")
	assert.Contains(t, out, "failed: main")
}

func TestTraceProcessFilter(t *testing.T) {
	dbPath := journalRun(t, `
package prog

process: one: statements: [{module: "concat", name: "a", args: ["1"]}]
process: two: statements: [{module: "concat", name: "b", args: ["2"]}]
`, "trace-filter")

	out, err := execute(NewTraceCommand(&RootOptions{Format: "json"}), "--db", dbPath, "--process", "two", "trace-filter")
	require.NoError(t, err)

	var resp struct {
		Data TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotEmpty(t, resp.Data.Timeline)
	for _, ev := range resp.Data.Timeline {
		assert.Equal(t, "two", ev.Process)
	}
}

func TestTraceErrors(t *testing.T) {
	dbPath := journalRun(t, aliasProgram, "exists")

	t.Run("no db", func(t *testing.T) {
		_, err := execute(NewTraceCommand(&RootOptions{Format: "text"}))
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})

	t.Run("unknown run", func(t *testing.T) {
		out, err := execute(NewTraceCommand(&RootOptions{Format: "text"}), "--db", dbPath, "missing")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, out, "run not found: missing")
	})

	t.Run("no runs", func(t *testing.T) {
		out, err := execute(NewTraceCommand(&RootOptions{Format: "text"}), "--db", filepath.Join(t.TempDir(), "fresh.db"))
		require.Error(t, err)
		assert.Contains(t, out, "journal has no runs")
	})
}
