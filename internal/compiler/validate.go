package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/ncd/internal/program"
)

// Validation error codes (E200-E299)
const (
	// Program-level errors (E200-E209)
	ErrNoProcesses      = "E200" // no top-level process to start
	ErrDuplicateProcess = "E201" // duplicate or empty process/template name

	// Statement errors (E210-E219)
	ErrStatementForm          = "E210" // needs exactly one of module or object+method
	ErrUnknownModule          = "E211" // module type not registered
	ErrBadReference           = "E212" // malformed dotted reference
	ErrUnresolvedName         = "E213" // reference names no earlier statement
	ErrDuplicateStatementName = "E214" // name shadows an earlier statement

	// Template errors (E220-E229)
	ErrUnknownTemplate = "E220" // literal template name not defined
)

// Severity levels for validation findings.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// ValidationError represents a program validation finding.
type ValidationError struct {
	Field    string `json:"field"`
	Message  string `json:"message"`
	Code     string `json:"code"`
	Severity string `json:"severity"`
	Line     int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// IsWarning reports whether the finding does not block running the program.
func (e ValidationError) IsWarning() bool {
	return e.Severity == SeverityWarning
}

// HasErrors reports whether any finding is an error rather than a warning.
func HasErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if !e.IsWarning() {
			return true
		}
	}
	return false
}

// ValidateOption configures Validate.
type ValidateOption func(*validator)

// WithModules enables the unknown-module check against the given module
// types. Method statements are not checked since their type depends on the
// object they resolve at runtime.
func WithModules(types []string) ValidateOption {
	return func(v *validator) {
		v.modules = make(map[string]bool, len(types))
		for _, t := range types {
			v.modules[t] = true
		}
	}
}

type validator struct {
	prog    *program.Program
	modules map[string]bool
	errs    []ValidationError
}

// Validate checks a compiled program for structural errors.
// Returns all findings (does not fail-fast).
func Validate(prog *program.Program, opts ...ValidateOption) []ValidationError {
	v := &validator{prog: prog}
	for _, opt := range opts {
		opt(v)
	}

	if len(prog.Processes) == 0 {
		v.errorf("process", ErrNoProcesses, "program has no top-level process")
	}

	seen := make(map[string]bool)
	for _, group := range [][]program.ProcessSpec{prog.Processes, prog.Templates} {
		for i := range group {
			ps := &group[i]
			if strings.TrimSpace(ps.Name) == "" {
				v.errorf(processField(ps), ErrDuplicateProcess, "process name is empty")
			} else if seen[ps.Name] {
				v.errorf(processField(ps), ErrDuplicateProcess, "duplicate process name %q", ps.Name)
			}
			seen[ps.Name] = true
			v.validateProcess(ps)
		}
	}
	return v.errs
}

func processField(ps *program.ProcessSpec) string {
	if ps.Template {
		return "template." + ps.Name
	}
	return "process." + ps.Name
}

func (v *validator) validateProcess(ps *program.ProcessSpec) {
	earlier := make(map[string]bool)
	for i, st := range ps.Statements {
		field := fmt.Sprintf("%s.statements[%d]", processField(ps), i)
		v.validateStatement(ps, field, st, earlier)

		if st.Name != "" {
			if earlier[st.Name] {
				v.warnf(field+".name", ErrDuplicateStatementName,
					"statement name %q shadows an earlier statement", st.Name)
			}
			earlier[st.Name] = true
		}
	}
}

func (v *validator) validateStatement(ps *program.ProcessSpec, field string, st program.StatementSpec, earlier map[string]bool) {
	switch {
	case st.Module != "" && (st.Object != "" || st.Method != ""):
		v.errorf(field, ErrStatementForm, "statement sets both module and object/method")
	case st.Module == "" && st.Object == "" && st.Method == "":
		v.errorf(field, ErrStatementForm, "statement needs a module or an object and method")
	case st.Module == "" && (st.Object == "" || st.Method == ""):
		v.errorf(field, ErrStatementForm, "method statement needs both object and method")
	}

	if st.Module != "" && v.modules != nil && !v.modules[st.Module] {
		v.errorf(field+".module", ErrUnknownModule, "unknown module %q", st.Module)
	}

	if st.Object != "" {
		v.validateRef(ps, field+".object", st.Object, earlier)
	}
	for i, a := range st.Args {
		v.validateArg(ps, fmt.Sprintf("%s.args[%d]", field, i), a, earlier)
	}

	for _, name := range TemplateRefs(st) {
		if name == NoTemplate {
			continue
		}
		if _, ok := v.prog.Template(name); !ok {
			v.errorf(field+".args", ErrUnknownTemplate, "unknown template %q", name)
		}
	}
}

func (v *validator) validateArg(ps *program.ProcessSpec, field string, a program.Arg, earlier map[string]bool) {
	switch a.Kind {
	case program.ArgRef:
		v.validateRef(ps, field, a.Ref, earlier)
	case program.ArgList:
		for i, e := range a.List {
			v.validateArg(ps, fmt.Sprintf("%s[%d]", field, i), e, earlier)
		}
	case program.ArgMap:
		for i, e := range a.Map {
			v.validateArg(ps, fmt.Sprintf("%s[%d].key", field, i), e.Key, earlier)
			v.validateArg(ps, fmt.Sprintf("%s[%d].value", field, i), e.Value, earlier)
		}
	}
}

// validateRef checks dotted syntax and, for top-level processes, that the
// first component names an earlier statement. Templates may also see
// _args, _argN and names supplied by their caller, so they are not checked.
func (v *validator) validateRef(ps *program.ProcessSpec, field, ref string, earlier map[string]bool) {
	parts := strings.Split(ref, ".")
	for _, p := range parts {
		if p == "" {
			v.errorf(field, ErrBadReference, "malformed reference %q", ref)
			return
		}
	}
	if !ps.Template && !earlier[parts[0]] {
		v.errorf(field, ErrUnresolvedName, "%q does not name an earlier statement", parts[0])
	}
}

func (v *validator) errorf(field, code, format string, args ...any) {
	v.errs = append(v.errs, ValidationError{
		Field:    field,
		Message:  fmt.Sprintf(format, args...),
		Code:     code,
		Severity: SeverityError,
	})
}

func (v *validator) warnf(field, code, format string, args ...any) {
	v.errs = append(v.errs, ValidationError{
		Field:    field,
		Message:  fmt.Sprintf(format, args...),
		Code:     code,
		Severity: SeverityWarning,
	})
}
