package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ncd/internal/program"
)

func callStmt(module, template string) program.StatementSpec {
	return program.StatementSpec{Module: module, Args: []program.Arg{program.Str(template), program.List()}}
}

func tmplSpec(name string, stmts ...program.StatementSpec) program.ProcessSpec {
	return program.ProcessSpec{Name: name, Template: true, Statements: stmts}
}

func TestAnalyzeCycles_Empty(t *testing.T) {
	assert.Empty(t, AnalyzeCycles(nil))
	assert.Empty(t, AnalyzeCycles(&program.Program{
		Processes: []program.ProcessSpec{{Name: "main"}},
	}))
}

func TestAnalyzeCycles_DAG(t *testing.T) {
	prog := &program.Program{
		Processes: []program.ProcessSpec{{
			Name:       "main",
			Statements: []program.StatementSpec{callStmt("call", "a"), callStmt("try", "b")},
		}},
		Templates: []program.ProcessSpec{
			tmplSpec("a", callStmt("call", "c")),
			tmplSpec("b", callStmt("call", "c")),
			tmplSpec("c"),
		},
	}
	assert.Empty(t, AnalyzeCycles(prog))
}

func TestAnalyzeCycles_SelfLoop(t *testing.T) {
	prog := &program.Program{
		Processes: []program.ProcessSpec{{
			Name:       "main",
			Statements: []program.StatementSpec{callStmt("try", "retry")},
		}},
		Templates: []program.ProcessSpec{
			tmplSpec("retry", callStmt("try", "retry")),
		},
	}

	warnings := AnalyzeCycles(prog)
	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"retry", "retry"}, warnings[0].Path)
	assert.Equal(t, "warning", warnings[0].Level)
	assert.Contains(t, warnings[0].Message, "calls itself")
}

func TestAnalyzeCycles_MutualRecursion(t *testing.T) {
	prog := &program.Program{
		Processes: []program.ProcessSpec{{
			Name:       "main",
			Statements: []program.StatementSpec{callStmt("call", "ping")},
		}},
		Templates: []program.ProcessSpec{
			tmplSpec("ping", callStmt("call_with_caller_target", "pong")),
			tmplSpec("pong", program.StatementSpec{
				Module: "embcall2_multif",
				Args:   []program.Arg{program.Ref("_caller.go"), program.Str("ping")},
			}),
		},
	}

	warnings := AnalyzeCycles(prog)
	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"ping", "pong", "ping"}, warnings[0].Path)
	assert.Contains(t, warnings[0].Message, "ping → pong → ping")
}

func TestAnalyzeCycles_IgnoresDynamicAndUnknownTemplates(t *testing.T) {
	prog := &program.Program{
		Processes: []program.ProcessSpec{{Name: "main"}},
		Templates: []program.ProcessSpec{
			tmplSpec("a",
				program.StatementSpec{Module: "call", Args: []program.Arg{program.Ref("_arg0"), program.List()}},
				callStmt("call", "missing"),
			),
		},
	}
	assert.Empty(t, AnalyzeCycles(prog))
}

func TestTemplateRefs(t *testing.T) {
	tests := []struct {
		name string
		st   program.StatementSpec
		want []string
	}{
		{"call", callStmt("call", "t"), []string{"t"}},
		{"try", callStmt("try", "t"), []string{"t"}},
		{"unrelated module", callStmt("concat", "t"), nil},
		{"method", program.StatementSpec{Object: "x", Method: "call", Args: []program.Arg{program.Str("t")}}, nil},
		{"ref template", program.StatementSpec{Module: "call", Args: []program.Arg{program.Ref("x")}}, nil},
		{
			"multif with else",
			program.StatementSpec{Module: "embcall2_multif", Args: []program.Arg{
				program.Str("false"), program.Str("t1"),
				program.Ref("c"), program.Str("t2"),
				program.Str("t3"),
			}},
			[]string{"t1", "t2", "t3"},
		},
		{
			"multif without else",
			program.StatementSpec{Module: "embcall2_multif", Args: []program.Arg{
				program.Str("true"), program.Str("t1"),
			}},
			[]string{"t1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TemplateRefs(tt.st))
		})
	}
}
