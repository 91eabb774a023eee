package modules

import (
	"fmt"

	"github.com/roach88/ncd/internal/engine"
	"github.com/roach88/ncd/internal/strtab"
	"github.com/roach88/ncd/internal/value"
)

// call runs a template process in place of the statement. The statement is
// Up exactly while the child is Up, so backtracking inside the child looks
// like backtracking of the caller. "<none>" as template makes it a no-op.
type call struct {
	inst     *engine.Instance
	template string
	child    *engine.Process
	up       bool

	// special resolves names the template cannot find itself.
	special engine.SpecialFunc
}

func newCall(inst *engine.Instance, params engine.NewParams) (engine.Statement, error) {
	args, err := readArgs(params, 2)
	if err != nil {
		return nil, fail(inst, err)
	}
	c := &call{inst: inst}
	c.special = c.callerSpecial
	return c.start(args[0], args[1])
}

func newCallWithCallerTarget(inst *engine.Instance, params engine.NewParams) (engine.Statement, error) {
	args, err := readArgs(params, 3)
	if err != nil {
		return nil, fail(inst, err)
	}
	target, err := readString(args[2], "caller target")
	if err != nil {
		return nil, fail(inst, err)
	}
	names, err := inst.Strings().SplitDotted(target)
	if err != nil {
		return nil, fail(inst, fmt.Errorf("%w: caller target: %v", engine.ErrBadArgument, err))
	}

	c := &call{inst: inst}
	c.special = func(name strtab.ID) (engine.Object, bool) {
		if name != strtab.Caller {
			return engine.Object{}, false
		}
		return engine.NewObject(strtab.Invalid, nil, nil, func(n strtab.ID) (engine.Object, bool) {
			obj, ok := inst.ResolveObject(names)
			if !ok {
				return engine.Object{}, false
			}
			if n == strtab.Empty {
				return obj, true
			}
			return obj.GetObj(n)
		}), true
	}
	return c.start(args[0], args[1])
}

// newEmbcallMultif picks the template after the first true condition, or
// the trailing else template. The template sees the caller's scope
// directly, as if its statements were written in place.
func newEmbcallMultif(inst *engine.Instance, params engine.NewParams) (engine.Statement, error) {
	if !params.Args.IsList() {
		return nil, fail(inst, fmt.Errorf("%w: arguments must be a list", engine.ErrWrongType))
	}
	args := params.Args.Elems()
	for _, a := range args {
		if !a.IsString() {
			return nil, fail(inst, fmt.Errorf("%w: arguments must be strings", engine.ErrWrongType))
		}
	}

	chosen := value.Invalid()
	for j := 0; j < len(args); j += 2 {
		if j == len(args)-1 {
			chosen = args[j]
			break
		}
		if value.ReadBool(args[j]) {
			chosen = args[j+1]
			break
		}
	}

	c := &call{inst: inst}
	c.special = func(name strtab.ID) (engine.Object, bool) {
		return inst.ResolveObject([]strtab.ID{name})
	}
	if chosen.IsInvalid() {
		inst.SignalUp()
		return c, nil
	}
	return c.start(chosen, value.Invalid())
}

func (c *call) start(tmpl, args value.Value) (engine.Statement, error) {
	name, err := readString(tmpl, "template")
	if err != nil {
		return nil, fail(c.inst, err)
	}
	if !args.IsInvalid() && !args.IsList() {
		return nil, fail(c.inst, fmt.Errorf("%w: template arguments must be a list, got %s", engine.ErrWrongType, args.Kind()))
	}
	if value.IsNone(tmpl) {
		c.inst.SignalUp()
		return c, nil
	}

	child, err := c.inst.Interp().StartTemplate(c.inst, name, args, c.special, c)
	if err != nil {
		return nil, fail(c.inst, err)
	}
	c.template = name
	c.child = child
	return c, nil
}

func (c *call) callerSpecial(name strtab.ID) (engine.Object, bool) {
	if name == strtab.Caller {
		return c.inst.ScopeObject(), true
	}
	return engine.Object{}, false
}

// ProcessEvent implements engine.ProcessHandler.
func (c *call) ProcessEvent(p *engine.Process, ev engine.ProcessEvent) {
	switch ev {
	case engine.EventUp:
		if !c.up {
			c.up = true
			c.inst.SignalUp()
		}
	case engine.EventDown, engine.EventStalled:
		if c.up {
			c.up = false
			c.inst.SignalDown()
			return
		}
		p.Continue()
	case engine.EventFailed:
		c.inst.SignalDeadError(fmt.Errorf("template %q failed: %w", c.template, p.Err()))
	}
}

// GetObj resolves names inside the child, so call.x reaches statement x
// of the template.
func (c *call) GetObj(name strtab.ID) (engine.Object, bool) {
	if c.child == nil {
		return engine.Object{}, false
	}
	return c.child.GetObj(name)
}

// Clean implements engine.Cleaner. The statements after the call are gone,
// so the child may tear down its own slots.
func (c *call) Clean() {
	if c.child != nil {
		c.child.Continue()
	}
}

func (c *call) Terminate() {
	if c.child != nil {
		c.child.Terminate()
	}
}
