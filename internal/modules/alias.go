package modules

import (
	"fmt"

	"github.com/roach88/ncd/internal/engine"
	"github.com/roach88/ncd/internal/strtab"
)

// alias makes its name resolve to another object. Nothing is copied: every
// lookup resolves the target again from the alias's own position.
type alias struct {
	inst   *engine.Instance
	target []strtab.ID
}

func newAlias(inst *engine.Instance, params engine.NewParams) (engine.Statement, error) {
	args, err := readArgs(params, 1)
	if err != nil {
		return nil, fail(inst, err)
	}
	target, err := readString(args[0], "target")
	if err != nil {
		return nil, fail(inst, err)
	}
	names, err := inst.Strings().SplitDotted(target)
	if err != nil {
		return nil, fail(inst, fmt.Errorf("%w: %v", engine.ErrBadArgument, err))
	}

	a := &alias{inst: inst, target: names}
	inst.SignalUp()
	return a, nil
}

func (a *alias) GetObj(name strtab.ID) (engine.Object, bool) {
	obj, ok := a.inst.ResolveObject(a.target)
	if !ok {
		return engine.Object{}, false
	}
	if name == strtab.Empty {
		return obj, true
	}
	return obj.GetObj(name)
}

func (a *alias) Terminate() {}
