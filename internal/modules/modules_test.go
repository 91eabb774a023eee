package modules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ncd/internal/engine"
	"github.com/roach88/ncd/internal/program"
	"github.com/roach88/ncd/internal/reactor"
	"github.com/roach88/ncd/internal/strtab"
	"github.com/roach88/ncd/internal/value"
)

// harness runs a program with the built-ins plus two test modules:
//
//	gate()        waits until the test opens it
//	attrs()       exposes foo="bar" as a borrowed string
//	witness(name) Up at once; on teardown records what name resolves to
type harness struct {
	t      *testing.T
	loop   *reactor.Loop
	strs   *strtab.Table
	rec    *engine.Recorder
	interp *engine.Interp

	gates []*engine.Instance
	seen  []string
}

func newHarness(t *testing.T, prog *program.Program) *harness {
	t.Helper()

	h := &harness{
		t:    t,
		loop: reactor.NewLoop(),
		strs: strtab.New(),
		rec:  &engine.Recorder{},
	}

	reg := engine.NewRegistry()
	require.NoError(t, Register(reg))

	foo := h.strs.Intern("foo")
	reg.MustRegister(
		engine.Module{Type: "gate", New: func(inst *engine.Instance, params engine.NewParams) (engine.Statement, error) {
			h.gates = append(h.gates, inst)
			return noop{}, nil
		}},
		engine.Module{Type: "attrs", New: func(inst *engine.Instance, params engine.NewParams) (engine.Statement, error) {
			inst.SignalUp()
			return &fooAttrs{foo: foo, buf: value.NewRefTarget([]byte("bar"), nil)}, nil
		}},
		engine.Module{Type: "witness", New: func(inst *engine.Instance, params engine.NewParams) (engine.Statement, error) {
			argv, ok := params.Args.ListRead(1)
			if !ok {
				return nil, engine.ErrWrongArity
			}
			inst.SignalUp()
			return &witness{h: h, inst: inst, name: argv[0].String()}, nil
		}},
	)

	h.interp = engine.New(h.loop, h.strs, reg, prog,
		engine.WithObserver(h.rec),
		engine.WithRunToken("run-test"),
		engine.WithClock(h.loop.Clock()),
	)
	return h
}

// fooAttrs exposes a single borrowed variable foo="bar".
type fooAttrs struct {
	foo strtab.ID
	buf *value.RefTarget
}

func (a *fooAttrs) GetVar(name strtab.ID, mem *value.Mem) (value.Value, bool) {
	if name != a.foo {
		return value.Invalid(), false
	}
	v, err := mem.NewBorrowed(a.buf, 0, len(a.buf.Data()))
	return v, err == nil
}

func (a *fooAttrs) Terminate() { a.buf.Deref() }

type witness struct {
	h    *harness
	inst *engine.Instance
	name string
}

func (w *witness) Terminate() {
	mem := value.NewMem()
	defer mem.Release()

	v, ok := value.Invalid(), false
	if names, err := w.inst.Strings().SplitDotted(w.name); err == nil {
		v, ok = w.inst.Process().ResolveVar(w.inst.Index(), names, mem)
	}
	if !ok || !v.IsString() {
		w.h.seen = append(w.h.seen, "<unresolved>")
		return
	}
	w.h.seen = append(w.h.seen, v.String())
}

func (h *harness) start() *engine.Process {
	h.t.Helper()
	require.NoError(h.t, h.interp.Start())
	h.drain()
	p, ok := h.interp.Process("main")
	require.True(h.t, ok)
	return p
}

func (h *harness) drain() {
	h.t.Helper()
	_, err := h.loop.DrainLimit(100000)
	require.NoError(h.t, err)
}

// openGate brings the most recently created gate Up.
func (h *harness) openGate() {
	h.t.Helper()
	require.NotEmpty(h.t, h.gates)
	h.gates[len(h.gates)-1].SignalUp()
	h.drain()
}

func (h *harness) resolveVar(p *engine.Process, dotted string, mem *value.Mem) (value.Value, bool) {
	h.t.Helper()
	names, err := h.strs.SplitDotted(dotted)
	require.NoError(h.t, err)
	return p.ResolveVar(p.Len(), names, mem)
}

func (h *harness) varString(p *engine.Process, dotted string) string {
	h.t.Helper()
	mem := value.NewMem()
	defer mem.Release()
	v, ok := h.resolveVar(p, dotted, mem)
	require.True(h.t, ok, "%s does not resolve", dotted)
	require.True(h.t, v.IsString(), "%s is %s", dotted, v.Kind())
	return v.String()
}

func mainProgram(stmts ...program.StatementSpec) *program.Program {
	return &program.Program{Processes: []program.ProcessSpec{{Name: "main", Statements: stmts}}}
}

func withTemplates(prog *program.Program, templates ...program.ProcessSpec) *program.Program {
	for i := range templates {
		templates[i].Template = true
	}
	prog.Templates = append(prog.Templates, templates...)
	return prog
}

func tmpl(name string, stmts ...program.StatementSpec) program.ProcessSpec {
	return program.ProcessSpec{Name: name, Statements: stmts}
}

func st(name, module string, args ...program.Arg) program.StatementSpec {
	return program.StatementSpec{Name: name, Module: module, Args: args}
}

func method(name, object, meth string, args ...program.Arg) program.StatementSpec {
	return program.StatementSpec{Name: name, Object: object, Method: meth, Args: args}
}

var (
	s    = program.Str
	ref  = program.Ref
	list = program.List
)

func TestRegister_Types(t *testing.T) {
	reg := engine.NewRegistry()
	require.NoError(t, Register(reg))

	assert.Equal(t, []string{
		"alias",
		"backtrack_point",
		"backtrack_point::go",
		"call",
		"call_with_caller_target",
		"concat",
		"concatv",
		"embcall2_multif",
		"explode",
		"try",
		"try.try::assert",
	}, reg.Types())

	assert.Error(t, Register(reg), "double registration")
}
