package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const aliasProgram = `
package prog

process: main: statements: [
	{module: "concat", name: "c", args: ["hello", " ", "world"]},
	{module: "alias", name: "a", args: ["c"]},
]
`

const retryProgram = `
package prog

process: main: statements: [
	{module: "backtrack_point", name: "bp"},
	{object: "bp", method: "go", name: "g"},
]
`

const unknownModuleProgram = `
package prog

process: main: statements: [
	{module: "no_such_module", name: "x"},
]
`

// writeProgram writes a single-file program into a fresh directory and
// returns the directory.
func writeProgram(t *testing.T, src string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "prog")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "prog.cue"), []byte(src), 0644))
	return dir
}

// execute runs cmd with args and returns everything it wrote.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}
