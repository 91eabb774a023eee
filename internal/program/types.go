package program

import (
	"fmt"
	"strings"
)

// Program is a compiled ncd program.
type Program struct {
	// Processes start when the interpreter starts, in declaration order.
	Processes []ProcessSpec `json:"processes"`

	// Templates are only started by statements such as call() or try().
	Templates []ProcessSpec `json:"templates,omitempty"`
}

// ProcessSpec is an ordered list of statements.
type ProcessSpec struct {
	Name       string          `json:"name"`
	Template   bool            `json:"template,omitempty"`
	Statements []StatementSpec `json:"statements"`
}

// StatementSpec describes one statement.
//
// Exactly one of Module or (Object, Method) is set. A method statement
// resolves Object first and runs the module "<object type>::<Method>".
type StatementSpec struct {
	Name   string `json:"name,omitempty"`
	Module string `json:"module,omitempty"`
	Object string `json:"object,omitempty"`
	Method string `json:"method,omitempty"`
	Args   []Arg  `json:"args"`
}

// IsMethod reports whether the statement is a method call on an object.
func (s StatementSpec) IsMethod() bool {
	return s.Object != ""
}

// Describe renders the statement roughly as NCD would print it, for logs.
func (s StatementSpec) Describe() string {
	var b strings.Builder
	if s.IsMethod() {
		fmt.Fprintf(&b, "%s->%s(", s.Object, s.Method)
	} else {
		fmt.Fprintf(&b, "%s(", s.Module)
	}
	for i, a := range s.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(a.String())
	}
	b.WriteString(")")
	if s.Name != "" {
		b.WriteString(" ")
		b.WriteString(s.Name)
	}
	return b.String()
}

// ArgKind tags an argument expression.
type ArgKind int

const (
	ArgString ArgKind = iota + 1
	ArgList
	ArgMap
	ArgRef
)

// String implements fmt.Stringer.
func (k ArgKind) String() string {
	switch k {
	case ArgString:
		return "string"
	case ArgList:
		return "list"
	case ArgMap:
		return "map"
	case ArgRef:
		return "ref"
	default:
		return fmt.Sprintf("ArgKind(%d)", int(k))
	}
}

// Arg is a statement argument expression.
type Arg struct {
	Kind ArgKind    `json:"kind"`
	Str  string     `json:"str,omitempty"`
	List []Arg      `json:"list,omitempty"`
	Map  []MapEntry `json:"map,omitempty"`
	// Ref is a dotted variable reference such as "iface.addr".
	Ref string `json:"ref,omitempty"`
}

// MapEntry is one key/value pair of a map literal.
type MapEntry struct {
	Key   Arg `json:"key"`
	Value Arg `json:"value"`
}

// Str builds a string literal argument.
func Str(s string) Arg {
	return Arg{Kind: ArgString, Str: s}
}

// List builds a list literal argument.
func List(elems ...Arg) Arg {
	return Arg{Kind: ArgList, List: elems}
}

// Ref builds a variable reference argument.
func Ref(dotted string) Arg {
	return Arg{Kind: ArgRef, Ref: dotted}
}

// Map builds a map literal argument from alternating keys and values.
func Map(entries ...MapEntry) Arg {
	return Arg{Kind: ArgMap, Map: entries}
}

// String renders the argument in NCD-like syntax.
func (a Arg) String() string {
	switch a.Kind {
	case ArgString:
		return fmt.Sprintf("%q", a.Str)
	case ArgRef:
		return a.Ref
	case ArgList:
		parts := make([]string, len(a.List))
		for i, e := range a.List {
			parts[i] = e.String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case ArgMap:
		parts := make([]string, len(a.Map))
		for i, e := range a.Map {
			parts[i] = e.Key.String() + ":" + e.Value.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return "<bad arg>"
	}
}

// Process looks up a top-level process by name.
func (p *Program) Process(name string) (*ProcessSpec, bool) {
	for i := range p.Processes {
		if p.Processes[i].Name == name {
			return &p.Processes[i], true
		}
	}
	return nil, false
}

// Template looks up a template by name.
func (p *Program) Template(name string) (*ProcessSpec, bool) {
	for i := range p.Templates {
		if p.Templates[i].Name == name {
			return &p.Templates[i], true
		}
	}
	return nil, false
}

// StatementCount returns the number of statements across all processes and
// templates.
func (p *Program) StatementCount() int {
	n := 0
	for _, ps := range p.Processes {
		n += len(ps.Statements)
	}
	for _, ps := range p.Templates {
		n += len(ps.Statements)
	}
	return n
}
