package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad path")))

	wrapped := fmt.Errorf("outer: %w", WrapExitError(ExitFailure, "run failed", errors.New("boom")))
	assert.Equal(t, ExitFailure, GetExitCode(wrapped))
}

func TestExitErrorMessage(t *testing.T) {
	cause := errors.New("boom")
	err := WrapExitError(ExitFailure, "run failed", cause)
	assert.Equal(t, "run failed: boom", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "just this", NewExitError(ExitFailure, "just this").Error())
}

func TestFormatterJSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}

	err := f.Fail(ExitCommandError, ErrCodeNotFound, "missing thing")
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
	assert.Equal(t, "missing thing", resp.Error.Message)
}

func TestFormatterTextError(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf}
	require.NoError(t, f.Error(ErrCodeGeneric, "oops", nil))
	assert.Equal(t, "Error [E001]: oops\n", buf.String())
}

func TestFormatterVerboseLog(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}

	quiet := &OutputFormatter{Writer: out, ErrWriter: errOut}
	quiet.VerboseLog("hidden %d", 1)
	assert.Empty(t, errOut.String())

	loud := &OutputFormatter{Writer: out, ErrWriter: errOut, Verbose: true}
	loud.VerboseLog("shown %d", 2)
	assert.Equal(t, "shown 2\n", errOut.String())
	assert.Empty(t, out.String(), "verbose output must not reach stdout")
}
