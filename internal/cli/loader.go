package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/token"

	"github.com/roach88/ncd/internal/compiler"
	"github.com/roach88/ncd/internal/program"
)

// LoadResult contains a loaded program and where it came from.
type LoadResult struct {
	Program   *program.Program
	FileCount int // Number of CUE files found
}

// LoadError represents an error that occurred during program loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadProgram loads and compiles the CUE program at path, which is a
// package directory or a single .cue file. Every failure is a *LoadError.
func LoadProgram(path string) (*LoadResult, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("program not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing program: %v", err)}
	}

	fileCount := 1
	if info.IsDir() {
		cueFiles, err := FindCUEFiles(path)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
		}
		if len(cueFiles) == 0 {
			return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", path)}
		}
		fileCount = len(cueFiles)
	}

	v, err := compiler.BuildPath(cuecontext.New(), path)
	if err != nil {
		var compileErr *compiler.CompileError
		if errors.As(err, &compileErr) {
			return nil, &LoadError{Code: ErrCodeBuildFailed, Message: compileErr.Message, Pos: compileErr.Pos}
		}
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
	}

	prog, err := compiler.CompileProgram(v)
	if err != nil {
		return nil, convertCompileError(err)
	}

	return &LoadResult{Program: prog, FileCount: fileCount}, nil
}

// FindCUEFiles returns the .cue files directly inside dir. Subdirectories
// are separate CUE packages and are not part of the program.
func FindCUEFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".cue" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: err.Error(),
	}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeDatabase    = "E008" // Journal database error
	ErrCodeRunFailed   = "E009" // Interpreter could not start

	// Program shape errors
	ErrCodeProcessForm   = "E101" // process/template section malformed
	ErrCodeStatementForm = "E102" // statement malformed
	ErrCodeArgumentForm  = "E103" // argument malformed
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "":
		return ErrCodeGeneric
	case field == "cue":
		return ErrCodeBuildFailed
	case strings.Contains(field, ".args["):
		return ErrCodeArgumentForm
	case strings.Contains(field, ".statements["):
		return ErrCodeStatementForm
	default:
		return ErrCodeProcessForm
	}
}
