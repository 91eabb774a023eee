package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ncd/internal/engine"
	"github.com/roach88/ncd/internal/store"
)

// runWithToken runs the run command with a pinned run token.
func runWithToken(format, token string, args ...string) (string, error) {
	opts := &RunOptions{
		RootOptions:    &RootOptions{Format: format},
		TokenGenerator: engine.NewFixedGenerator(token),
	}
	return execute(newRunCommand(opts), args...)
}

func TestRunUntilIdle(t *testing.T) {
	dir := writeProgram(t, aliasProgram)
	dbPath := filepath.Join(t.TempDir(), "ncd.db")

	out, err := runWithToken("text", "run-ok", "--until-idle", "--db", dbPath, dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Run run-ok")
	assert.Contains(t, out, "main: up")
	assert.Contains(t, out, "Journaled")

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	state, err := st.GetRunState(context.Background(), "run-ok")
	require.NoError(t, err)
	assert.True(t, state.IsClean, "teardown is journaled")
	assert.Equal(t, engine.TransitionProcessTerminated, state.ProcessStates["main"])
	assert.Equal(t, "run-ok", state.Run.Token)
}

func TestRunUnknownProcessTearsDownStarted(t *testing.T) {
	dir := writeProgram(t, aliasProgram)
	dbPath := filepath.Join(t.TempDir(), "ncd.db")

	_, err := runWithToken("text", "run-partial", "--until-idle", "--db", dbPath,
		"--process", "main", "--process", "missing", dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `unknown process "missing"`)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	state, err := st.GetRunState(context.Background(), "run-partial")
	require.NoError(t, err)
	assert.Equal(t, engine.TransitionProcessTerminated, state.ProcessStates["main"])
	assert.True(t, state.IsClean)
}

func TestRunJSON(t *testing.T) {
	dir := writeProgram(t, aliasProgram)

	out, err := runWithToken("json", "run-json", "--until-idle", dir)
	require.NoError(t, err)

	var resp struct {
		Status   string    `json:"status"`
		RunToken string    `json:"run_token"`
		Data     RunResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "run-json", resp.RunToken)
	require.Len(t, resp.Data.Processes, 1)
	assert.Equal(t, ProcessResult{Name: "main", State: "up"}, resp.Data.Processes[0])
	assert.Zero(t, resp.Data.Journaled, "no journal without --db")
}

func TestRunFailedProcess(t *testing.T) {
	dir := writeProgram(t, retryProgram)
	dbPath := filepath.Join(t.TempDir(), "ncd.db")

	out, err := runWithToken("text", "run-fail", "--until-idle", "--max-cycles", "2", "--db", dbPath, dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, engine.IsQuotaError(err))
	assert.Contains(t, out, "✗ Run run-fail")
	assert.Contains(t, out, "main: failed")
	assert.Contains(t, out, "QUOTA_EXCEEDED")

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	state, err := st.GetRunState(context.Background(), "run-fail")
	require.NoError(t, err)
	assert.Equal(t, []string{"main"}, state.Failed)
}

func TestRunSelectedProcess(t *testing.T) {
	dir := writeProgram(t, `
package prog

process: one: statements: [{module: "concat", name: "a", args: ["1"]}]
process: two: statements: [{module: "concat", name: "b", args: ["2"]}]
`)

	out, err := runWithToken("json", "run-sel", "--until-idle", "--process", "two", dir)
	require.NoError(t, err)

	var resp struct {
		Data RunResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Processes, 1)
	assert.Equal(t, "two", resp.Data.Processes[0].Name)
}

func TestRunUnknownProcess(t *testing.T) {
	dir := writeProgram(t, aliasProgram)

	out, err := runWithToken("text", "run-x", "--until-idle", "--process", "missing", dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeRunFailed)
}

func TestRunRefusesInvalidProgram(t *testing.T) {
	dir := writeProgram(t, unknownModuleProgram)

	out, err := runWithToken("text", "run-bad", "--until-idle", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
}

func TestRunMissingProgram(t *testing.T) {
	_, err := runWithToken("text", "run-missing", "--until-idle", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunStopsOnContextCancel(t *testing.T) {
	dir := writeProgram(t, aliasProgram)
	dbPath := filepath.Join(t.TempDir(), "ncd.db")

	opts := &RunOptions{
		RootOptions:    &RootOptions{Format: "text"},
		TokenGenerator: engine.NewFixedGenerator("run-ctx"),
	}
	cmd := newRunCommand(opts)
	cmd.SetArgs([]string{"--db", dbPath, dir})
	cmd.SetOut(&discard{})
	cmd.SetErr(&discard{})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	errChan := make(chan error, 1)
	go func() { errChan <- cmd.ExecuteContext(ctx) }()

	select {
	case err := <-errChan:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop after context cancellation")
	}

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	state, err := st.GetRunState(context.Background(), "run-ctx")
	require.NoError(t, err)
	assert.True(t, state.IsClean, "processes are terminated after cancellation")
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
