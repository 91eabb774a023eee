package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/ncd/internal/program"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult holds a compiled program and its identity.
type CompilationResult struct {
	Hash          string           `json:"hash"`
	EngineVersion string           `json:"engine_version"`
	FormatVersion string           `json:"format_version"`
	Program       *program.Program `json:"program"`
}

// CompilationStats holds summary statistics.
type CompilationStats struct {
	ProcessCount   int
	TemplateCount  int
	StatementCount int
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <program>",
		Short: "Compile a CUE program to its JSON form",
		Long: `Compile a CUE program (package directory or single file) into the
program form the interpreter runs, and print its content hash.

The hash is recorded with every journaled run, so a trace can be matched
to the program that produced it.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	loaded, err := LoadProgram(path)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, path)

	prog := loaded.Program
	hash, err := program.Hash(prog)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("hashing program: %v", err))
	}

	result := &CompilationResult{
		Hash:          hash,
		EngineVersion: program.EngineVersion,
		FormatVersion: program.FormatVersion,
		Program:       prog,
	}

	if opts.Output != "" {
		if err := writeProgramToFile(result, opts.Output); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
		}
	}

	return outputCompileSuccess(formatter, result, calculateStats(prog), opts.Output)
}

// calculateStats computes summary statistics from a compiled program.
func calculateStats(prog *program.Program) CompilationStats {
	return CompilationStats{
		ProcessCount:   len(prog.Processes),
		TemplateCount:  len(prog.Templates),
		StatementCount: prog.StatementCount(),
	}
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, stats CompilationStats, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %d process(es), %d template(s), %d statement(s)\n",
		stats.ProcessCount, stats.TemplateCount, stats.StatementCount)
	fmt.Fprintf(w, "  hash: %s\n\n", result.Hash)

	writeSpecs := func(title string, specs []program.ProcessSpec) {
		if len(specs) == 0 {
			return
		}
		fmt.Fprintln(w, title)
		for _, ps := range specs {
			fmt.Fprintf(w, "  %s: %d statement(s)\n", ps.Name, len(ps.Statements))
			for i, st := range ps.Statements {
				fmt.Fprintf(w, "    [%d] %s\n", i, st.Describe())
			}
		}
		fmt.Fprintln(w)
	}
	writeSpecs("Processes:", result.Program.Processes)
	writeSpecs("Templates:", result.Program.Templates)

	if outputFile != "" {
		fmt.Fprintf(w, "Wrote program to %s\n", outputFile)
	}
	return nil
}

// outputLoadError reports a LoadProgram failure. Load failures are
// command-level errors (exit code 2).
func outputLoadError(formatter *OutputFormatter, err error) error {
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
	}

	if formatter.Format == "json" {
		var details any
		if loadErr.Pos.IsValid() {
			details = map[string]any{
				"file":   loadErr.Pos.Filename(),
				"line":   loadErr.Pos.Line(),
				"column": loadErr.Pos.Column(),
			}
		}
		_ = formatter.Error(loadErr.Code, loadErr.Message, details)
		return NewExitError(ExitCommandError, loadErr.Error())
	}

	fmt.Fprintln(formatter.Writer, "✗ Loading program failed")
	fmt.Fprintln(formatter.Writer)
	if loadErr.Pos.IsValid() {
		fmt.Fprintf(formatter.Writer, "%s:%d:%d\n",
			loadErr.Pos.Filename(),
			loadErr.Pos.Line(),
			loadErr.Pos.Column())
	}
	fmt.Fprintf(formatter.Writer, "  %s: %s\n", loadErr.Code, loadErr.Message)
	return NewExitError(ExitCommandError, loadErr.Error())
}

// writeProgramToFile writes the compilation result as indented JSON.
// (canonical JSON without indentation is used only for hashing)
func writeProgramToFile(result *CompilationResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling program: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}
