package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/ncd/internal/compiler"
	"github.com/roach88/ncd/internal/engine"
	"github.com/roach88/ncd/internal/modules"
	"github.com/roach88/ncd/internal/program"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Warnings []compiler.CycleWarning    `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <program>",
		Short: "Check a program without running it",
		Long: `Check a CUE program without running it.

Reports statements naming unknown modules, references to names no earlier
statement defines, calls to undefined templates, and template recursion.
Findings marked as warnings do not make validation fail.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	loaded, err := LoadProgram(path)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, path)

	result, err := ValidateProgram(loaded.Program)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
	}
	for _, ps := range loaded.Program.Processes {
		formatter.VerboseLog("Validated process: %s", ps.Name)
	}
	for _, ps := range loaded.Program.Templates {
		formatter.VerboseLog("Validated template: %s", ps.Name)
	}

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

// ValidateProgram checks prog against the built-in module set.
// This is a helper function for external callers.
func ValidateProgram(prog *program.Program) (ValidationResult, error) {
	reg := engine.NewRegistry()
	if err := modules.Register(reg); err != nil {
		return ValidationResult{}, err
	}

	errs := compiler.Validate(prog, compiler.WithModules(reg.Types()))
	return ValidationResult{
		Valid:    !compiler.HasErrors(errs),
		Errors:   errs,
		Warnings: compiler.AnalyzeCycles(prog),
	}, nil
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintln(formatter.Writer, "✓ Program valid")
	writeFindings(formatter, result)
	return nil
}

// outputValidationErrors outputs validation failures.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	var first compiler.ValidationError
	count := 0
	for _, e := range result.Errors {
		if e.IsWarning() {
			continue
		}
		if count == 0 {
			first = e
		}
		count++
	}

	if formatter.Format == "json" {
		if err := formatter.JSON(CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    first.Code,
				Message: first.Message,
			},
		}); err != nil {
			return err
		}
		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", count))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	writeFindings(formatter, result)

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", count))
}

func writeFindings(formatter *OutputFormatter, result ValidationResult) {
	w := formatter.Writer
	if len(result.Errors) > 0 || len(result.Warnings) > 0 {
		fmt.Fprintln(w)
	}
	for _, e := range result.Errors {
		if e.Line > 0 {
			fmt.Fprintf(w, "line %d\n", e.Line)
		}
		fmt.Fprintf(w, "  %s %s: %s: %s\n", e.Severity, e.Code, e.Field, e.Message)
	}
	for _, c := range result.Warnings {
		fmt.Fprintf(w, "  %s: %s\n", c.Level, c.Message)
	}
}
