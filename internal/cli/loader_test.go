package cli

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadProgramDirectory(t *testing.T) {
	dir := writeProgram(t, aliasProgram)

	result, err := LoadProgram(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, result.FileCount)
	require.Len(t, result.Program.Processes, 1)
	assert.Equal(t, "main", result.Program.Processes[0].Name)
}

func TestLoadProgramSingleFile(t *testing.T) {
	dir := writeProgram(t, aliasProgram)

	result, err := LoadProgram(filepath.Join(dir, "prog.cue"))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Program.StatementCount())
}

func TestLoadProgramErrors(t *testing.T) {
	empty := t.TempDir()
	badShape := writeProgram(t, "package prog\n\nprocess: main: {}\n")

	tests := []struct {
		name string
		path string
		code string
	}{
		{"missing", filepath.Join(empty, "nope"), ErrCodeNotFound},
		{"empty dir", empty, ErrCodeNoFiles},
		{"bad shape", badShape, ErrCodeProcessForm},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadProgram(tt.path)
			require.Error(t, err)
			var loadErr *LoadError
			require.True(t, errors.As(err, &loadErr))
			assert.Equal(t, tt.code, loadErr.Code)
		})
	}
}

func TestFindCUEFilesTopLevelOnly(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.cue"), []byte("package x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.cue"), []byte("package y"), 0644))

	files, err := FindCUEFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.cue")}, files)
}

func TestMapFieldToErrorCode(t *testing.T) {
	cases := map[string]string{
		"":                               ErrCodeGeneric,
		"cue":                            ErrCodeBuildFailed,
		"main.statements":                ErrCodeProcessForm,
		"main.statements[0]":             ErrCodeStatementForm,
		"main.statements[1].args[0]":     ErrCodeArgumentForm,
		"template.greet.statements[2].x": ErrCodeStatementForm,
	}
	for field, want := range cases {
		assert.Equal(t, want, MapFieldToErrorCode(field), "field %q", field)
	}
}
