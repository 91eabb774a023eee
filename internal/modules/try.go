package modules

import (
	"fmt"

	"github.com/roach88/ncd/internal/engine"
	"github.com/roach88/ncd/internal/strtab"
	"github.com/roach88/ncd/internal/value"
)

// tryType is the object type of _try inside a try() template.
const tryType = "try.try"

// try runs a template until it is Up or a _try->assert() fails, then
// terminates it and goes Up. "succeeded" tells which happened.
type try struct {
	inst       *engine.Instance
	template   string
	child      *engine.Process
	succeeded  bool
	finished   bool
	terminated bool
}

func newTry(inst *engine.Instance, params engine.NewParams) (engine.Statement, error) {
	args, err := readArgs(params, 2)
	if err != nil {
		return nil, fail(inst, err)
	}
	name, err := readString(args[0], "template")
	if err != nil {
		return nil, fail(inst, err)
	}
	if !args[1].IsList() {
		return nil, fail(inst, fmt.Errorf("%w: template arguments must be a list, got %s", engine.ErrWrongType, args[1].Kind()))
	}

	t := &try{inst: inst, template: name, succeeded: true}
	child, err := inst.Interp().StartTemplate(inst, name, args[1], t.special, t)
	if err != nil {
		return nil, fail(inst, err)
	}
	t.child = child
	return t, nil
}

func (t *try) special(name strtab.ID) (engine.Object, bool) {
	if name == strtab.Caller {
		return t.inst.ScopeObject(), true
	}
	if name == t.inst.Strings().Intern("_try") {
		return engine.NewObject(t.inst.Strings().Intern(tryType), t, nil, nil), true
	}
	return engine.Object{}, false
}

// ProcessEvent implements engine.ProcessHandler.
func (t *try) ProcessEvent(p *engine.Process, ev engine.ProcessEvent) {
	switch ev {
	case engine.EventUp:
		t.finish()
	case engine.EventFailed:
		t.inst.SignalDeadError(fmt.Errorf("template %q failed: %w", t.template, p.Err()))
	}
}

// finish terminates the child and goes Up.
func (t *try) finish() {
	if t.finished || t.terminated {
		return
	}
	t.finished = true
	child := t.child
	t.child = nil
	child.Terminate()
	t.inst.SignalUp()
}

// abort marks the try as failed. It runs inside the child's statement
// constructor, so tearing the child down is deferred to the reactor.
func (t *try) abort() {
	t.succeeded = false
	if t.finished {
		return
	}
	t.inst.Reactor().Defer(t.finish)
}

func (t *try) GetVar(name strtab.ID, mem *value.Mem) (value.Value, bool) {
	if name != strtab.Succeeded || !t.finished {
		return value.Invalid(), false
	}
	return mem.MakeBool(t.succeeded), true
}

func (t *try) Terminate() {
	t.terminated = true
	if t.child != nil {
		t.child.Terminate()
		t.child = nil
	}
}

func newTryAssert(inst *engine.Instance, params engine.NewParams) (engine.Statement, error) {
	args, err := readArgs(params, 1)
	if err != nil {
		return nil, fail(inst, err)
	}
	cond, err := readString(args[0], "condition")
	if err != nil {
		return nil, fail(inst, err)
	}
	t, ok := params.MethodUser.(*try)
	if !ok {
		return nil, fail(inst, fmt.Errorf("%w: assert() needs a try object", engine.ErrWrongType))
	}

	inst.SignalUp()
	if cond != "true" {
		t.abort()
	}
	return noop{}, nil
}
