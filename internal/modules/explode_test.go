package modules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ncd/internal/engine"
	"github.com/roach88/ncd/internal/program"
	"github.com/roach88/ncd/internal/value"
)

func TestExplode(t *testing.T) {
	tests := []struct {
		name string
		args []program.Arg
		want []string
	}{
		{"limit caps pieces", []program.Arg{s(","), s("a,b,c"), s("2")}, []string{"a", "b,c"}},
		{"no limit", []program.Arg{s(","), s("a,b,c")}, []string{"a", "b", "c"}},
		{"limit one", []program.Arg{s(","), s("a,b,c"), s("1")}, []string{"a,b,c"}},
		{"limit above count", []program.Arg{s(","), s("a,b,c"), s("10")}, []string{"a", "b", "c"}},
		{"multi-byte delimiter", []program.Arg{s("::"), s("x::y::::z")}, []string{"x", "y", "", "z"}},
		{"no delimiter in input", []program.Arg{s(","), s("abc")}, []string{"abc"}},
		{"empty input", []program.Arg{s(","), s("")}, []string{""}},
		{"trailing delimiter", []program.Arg{s(","), s("a,")}, []string{"a", ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, mainProgram(st("e", "explode", tt.args...)))
			p := h.start()
			require.Equal(t, engine.ProcessUp, p.State())

			mem := value.NewMem()
			defer mem.Release()
			v, ok := h.resolveVar(p, "e", mem)
			require.True(t, ok)
			require.True(t, v.IsList())

			got := make([]string, 0, v.Len())
			for _, e := range v.Elems() {
				got = append(got, e.String())
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExplode_ArgumentErrors(t *testing.T) {
	tests := []struct {
		name string
		args []program.Arg
		want error
	}{
		{"empty delimiter", []program.Arg{s(""), s("abc")}, engine.ErrBadArgument},
		{"zero limit", []program.Arg{s(","), s("abc"), s("0")}, engine.ErrBadArgument},
		{"negative limit", []program.Arg{s(","), s("abc"), s("-1")}, engine.ErrBadArgument},
		{"non-numeric limit", []program.Arg{s(","), s("abc"), s("two")}, engine.ErrBadArgument},
		{"too few", []program.Arg{s(",")}, engine.ErrWrongArity},
		{"too many", []program.Arg{s(","), s("a"), s("1"), s("x")}, engine.ErrWrongArity},
		{"list input", []program.Arg{s(","), list()}, engine.ErrWrongType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, mainProgram(st("e", "explode", tt.args...)))
			p := h.start()
			assert.Equal(t, engine.ProcessFailed, p.State())
			assert.ErrorIs(t, p.Err(), tt.want)
		})
	}
}
