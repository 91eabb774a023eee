package engine

import (
	"strconv"
	"strings"

	"github.com/roach88/ncd/internal/strtab"
	"github.com/roach88/ncd/internal/value"
)

// Name resolution inside a process.
//
// A name is looked up against statement names at indices below the asking
// statement, nearest first; a statement only answers while it is Up. Names
// that match no statement fall back to the template arguments (_args,
// _argN) and then to the special objects supplied by the process owner.

// ResolveObject resolves a dotted name as seen from slot index from.
func (p *Process) ResolveObject(from int, names []strtab.ID) (Object, bool) {
	if len(names) == 0 {
		return Object{}, false
	}
	obj, ok := p.objectAt(from, names[0])
	if !ok {
		return Object{}, false
	}
	return ResolveObjExpr(obj, names[1:])
}

// ResolveVar resolves a dotted variable as seen from slot index from,
// building the result in mem.
func (p *Process) ResolveVar(from int, names []strtab.ID, mem *value.Mem) (value.Value, bool) {
	if len(names) == 0 {
		return value.Invalid(), false
	}
	obj, ok := p.objectAt(from, names[0])
	if !ok {
		return value.Invalid(), false
	}
	return ResolveVarExpr(obj, names[1:], mem)
}

// GetObj resolves name against the whole process. Only meaningful once the
// process is Up; used by owners (call.x) to look inside a child.
func (p *Process) GetObj(name strtab.ID) (Object, bool) {
	return p.objectAt(len(p.slots), name)
}

// objectAt finds the first-level object for name from slot index from.
func (p *Process) objectAt(from int, name strtab.ID) (Object, bool) {
	if from > len(p.slots) {
		from = len(p.slots)
	}
	for i := from - 1; i >= 0; i-- {
		inst := p.slots[i]
		if inst.name == strtab.Invalid || inst.name != name {
			continue
		}
		if inst.state != StateUp {
			return Object{}, false
		}
		return inst.Object(), true
	}

	if obj, ok := p.argObject(name); ok {
		return obj, true
	}
	if p.special != nil {
		return p.special(name)
	}
	return Object{}, false
}

// argObject serves _args (the whole argument list) and _argN (one element)
// for template processes.
func (p *Process) argObject(name strtab.ID) (Object, bool) {
	if p.args.IsInvalid() {
		return Object{}, false
	}
	if name == strtab.Args {
		return p.valueObject(p.args), true
	}

	s := p.interp.strings.Resolve(name)
	digits, ok := strings.CutPrefix(s, "_arg")
	if !ok || digits == "" || (len(digits) > 1 && digits[0] == '0') {
		return Object{}, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 || n >= p.args.Len() {
		return Object{}, false
	}
	return p.valueObject(p.args.Index(n)), true
}

// valueObject exposes v as the empty-name variable of a typeless object.
func (p *Process) valueObject(v value.Value) Object {
	return NewObject(strtab.Invalid, nil, func(name strtab.ID, mem *value.Mem) (value.Value, bool) {
		if name != strtab.Empty {
			return value.Invalid(), false
		}
		out, err := mem.Copy(v)
		if err != nil {
			return value.Invalid(), false
		}
		return out, true
	}, nil)
}
