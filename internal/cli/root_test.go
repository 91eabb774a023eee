package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandStructure(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "ncd", cmd.Use)

	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"compile", "validate", "run", "test", "trace"}, names)

	for _, flag := range []string{"verbose", "format", "config"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "missing --%s", flag)
	}
}

func TestRootCommandRejectsBadFormat(t *testing.T) {
	dir := writeProgram(t, aliasProgram)
	_, err := execute(NewRootCommand(), "--format", "xml", "compile", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestRootCommandLoadsExplicitConfig(t *testing.T) {
	dir := writeProgram(t, aliasProgram)
	cfgPath := filepath.Join(t.TempDir(), "ncd.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("[log]\nlevel = \"error\"\n"), 0644))

	out, err := execute(NewRootCommand(), "--config", cfgPath, "validate", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Program valid")
}

func TestRootCommandBadConfig(t *testing.T) {
	dir := writeProgram(t, aliasProgram)
	cfgPath := filepath.Join(t.TempDir(), "ncd.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("[log\n"), 0644))

	_, err := execute(NewRootCommand(), "--config", cfgPath, "validate", dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestIsValidFormat(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))
	assert.False(t, isValidFormat("yaml"))
	assert.False(t, isValidFormat(""))
}
