package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/ncd/internal/program"
)

// CompileProgram parses a CUE value into a Program.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the document root, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`process: main: statements: [{module: "concat", args: ["a"]}]`)
//	prog, err := CompileProgram(v)
//
// Processes and templates keep their declaration order.
func CompileProgram(v cue.Value) (*program.Program, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	prog := &program.Program{}

	var err error
	prog.Processes, err = parseProcesses(v, "process", false)
	if err != nil {
		return nil, err
	}
	prog.Templates, err = parseProcesses(v, "template", true)
	if err != nil {
		return nil, err
	}

	if len(prog.Processes) == 0 && len(prog.Templates) == 0 {
		return nil, &CompileError{
			Field:   "process",
			Message: "at least one process or template is required",
			Pos:     v.Pos(),
		}
	}
	return prog, nil
}

// parseProcesses parses every entry of the struct at field.
func parseProcesses(v cue.Value, field string, template bool) ([]program.ProcessSpec, error) {
	val := v.LookupPath(cue.ParsePath(field))
	if !val.Exists() {
		return nil, nil
	}

	iter, err := val.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var out []program.ProcessSpec
	for iter.Next() {
		name := iter.Label()
		ps, err := parseProcess(name, iter.Value(), template)
		if err != nil {
			return nil, err
		}
		out = append(out, ps)
	}
	return out, nil
}

func parseProcess(name string, v cue.Value, template bool) (program.ProcessSpec, error) {
	ps := program.ProcessSpec{Name: name, Template: template}
	path := fmt.Sprintf("%s.statements", name)

	stmtsVal := v.LookupPath(cue.ParsePath("statements"))
	if !stmtsVal.Exists() {
		return ps, &CompileError{
			Field:   path,
			Message: "statements is required",
			Pos:     v.Pos(),
		}
	}

	iter, err := stmtsVal.List()
	if err != nil {
		return ps, formatCUEError(err)
	}

	for i := 0; iter.Next(); i++ {
		st, err := parseStatement(fmt.Sprintf("%s[%d]", path, i), iter.Value())
		if err != nil {
			return ps, err
		}
		ps.Statements = append(ps.Statements, st)
	}
	return ps, nil
}

func parseStatement(path string, v cue.Value) (program.StatementSpec, error) {
	var st program.StatementSpec

	if v.Kind() != cue.StructKind {
		return st, &CompileError{
			Field:   path,
			Message: fmt.Sprintf("statement must be a struct, got %v", v.Kind()),
			Pos:     v.Pos(),
		}
	}

	var err error
	if st.Name, err = optionalString(v, path, "name"); err != nil {
		return st, err
	}
	if st.Module, err = optionalString(v, path, "module"); err != nil {
		return st, err
	}
	if st.Object, err = optionalString(v, path, "object"); err != nil {
		return st, err
	}
	if st.Method, err = optionalString(v, path, "method"); err != nil {
		return st, err
	}

	argsVal := v.LookupPath(cue.ParsePath("args"))
	if argsVal.Exists() {
		iter, err := argsVal.List()
		if err != nil {
			return st, formatCUEError(err)
		}
		for i := 0; iter.Next(); i++ {
			arg, err := parseArg(fmt.Sprintf("%s.args[%d]", path, i), iter.Value())
			if err != nil {
				return st, err
			}
			st.Args = append(st.Args, arg)
		}
	}
	return st, nil
}

// parseArg parses one argument expression:
//
//	"text"                                  string literal
//	["a", {ref: "x"}]                       list
//	{ref: "iface.addr"}                     variable reference
//	{map: [{key: "k", value: "v"}]}         map
func parseArg(path string, v cue.Value) (program.Arg, error) {
	switch v.Kind() {
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return program.Arg{}, formatCUEError(err)
		}
		return program.Str(s), nil

	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return program.Arg{}, formatCUEError(err)
		}
		var elems []program.Arg
		for i := 0; iter.Next(); i++ {
			e, err := parseArg(fmt.Sprintf("%s[%d]", path, i), iter.Value())
			if err != nil {
				return program.Arg{}, err
			}
			elems = append(elems, e)
		}
		return program.List(elems...), nil

	case cue.StructKind:
		if refVal := v.LookupPath(cue.ParsePath("ref")); refVal.Exists() {
			ref, err := refVal.String()
			if err != nil {
				return program.Arg{}, formatCUEError(err)
			}
			return program.Ref(ref), nil
		}
		if mapVal := v.LookupPath(cue.ParsePath("map")); mapVal.Exists() {
			return parseMap(path+".map", mapVal)
		}
		return program.Arg{}, &CompileError{
			Field:   path,
			Message: `struct argument must have a "ref" or "map" field`,
			Pos:     v.Pos(),
		}

	default:
		return program.Arg{}, &CompileError{
			Field:   path,
			Message: fmt.Sprintf("unsupported argument kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

func parseMap(path string, v cue.Value) (program.Arg, error) {
	iter, err := v.List()
	if err != nil {
		return program.Arg{}, formatCUEError(err)
	}
	var entries []program.MapEntry
	for i := 0; iter.Next(); i++ {
		entryPath := fmt.Sprintf("%s[%d]", path, i)
		ev := iter.Value()
		keyVal := ev.LookupPath(cue.ParsePath("key"))
		valVal := ev.LookupPath(cue.ParsePath("value"))
		if !keyVal.Exists() || !valVal.Exists() {
			return program.Arg{}, &CompileError{
				Field:   entryPath,
				Message: `map entry requires "key" and "value"`,
				Pos:     ev.Pos(),
			}
		}
		key, err := parseArg(entryPath+".key", keyVal)
		if err != nil {
			return program.Arg{}, err
		}
		val, err := parseArg(entryPath+".value", valVal)
		if err != nil {
			return program.Arg{}, err
		}
		entries = append(entries, program.MapEntry{Key: key, Value: val})
	}
	return program.Map(entries...), nil
}

func optionalString(v cue.Value, path, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", &CompileError{
			Field:   path + "." + field,
			Message: fmt.Sprintf("%s must be a string", field),
			Pos:     fv.Pos(),
		}
	}
	return s, nil
}

// CompileError represents a compilation error with position info.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
