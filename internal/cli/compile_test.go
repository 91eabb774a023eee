package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ncd/internal/program"
)

func TestCompileText(t *testing.T) {
	dir := writeProgram(t, aliasProgram)

	out, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Compiled 1 process(es), 0 template(s), 2 statement(s)")
	assert.Contains(t, out, "hash: sha256:")
	assert.Contains(t, out, "main: 2 statement(s)")
}

func TestCompileJSON(t *testing.T) {
	dir := writeProgram(t, aliasProgram)

	out, err := execute(NewCompileCommand(&RootOptions{Format: "json"}), dir)
	require.NoError(t, err)

	var resp struct {
		Status string            `json:"status"`
		Data   CompilationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, program.EngineVersion, resp.Data.EngineVersion)
	assert.True(t, strings.HasPrefix(resp.Data.Hash, "sha256:"))
	require.NotNil(t, resp.Data.Program)
	assert.Equal(t, 2, resp.Data.Program.StatementCount())
}

func TestCompileHashIsStable(t *testing.T) {
	a := writeProgram(t, aliasProgram)
	b := writeProgram(t, aliasProgram)

	outA, err := execute(NewCompileCommand(&RootOptions{Format: "json"}), a)
	require.NoError(t, err)
	outB, err := execute(NewCompileCommand(&RootOptions{Format: "json"}), b)
	require.NoError(t, err)
	assert.Equal(t, outA, outB)
}

func TestCompileWritesOutputFile(t *testing.T) {
	dir := writeProgram(t, aliasProgram)
	outFile := filepath.Join(t.TempDir(), "prog.json")

	out, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), "-o", outFile, dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote program to "+outFile)

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	var result CompilationResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Equal(t, program.FormatVersion, result.FormatVersion)
}

func TestCompileMissingPath(t *testing.T) {
	out, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "✗ Loading program failed")
	assert.Contains(t, out, ErrCodeNotFound)
}

func TestCompileSyntaxError(t *testing.T) {
	dir := writeProgram(t, "package prog\n\nprocess: main: statements: [\n")

	_, err := execute(NewCompileCommand(&RootOptions{Format: "json"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
