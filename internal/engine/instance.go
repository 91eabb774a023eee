package engine

import (
	"context"
	"log/slog"

	"github.com/roach88/ncd/internal/program"
	"github.com/roach88/ncd/internal/reactor"
	"github.com/roach88/ncd/internal/strtab"
	"github.com/roach88/ncd/internal/value"
)

// State is the lifecycle state of a statement slot.
type State int

const (
	// StateUninitialized: the slot has no payload.
	StateUninitialized State = iota
	// StateInitializing: the payload exists but has not signaled Up, or it
	// went Down and is working on coming back.
	StateInitializing
	// StateUp: the payload is ready and its exposed values are stable.
	StateUp
	// StateDead: the payload went Dead or DeadError and was released.
	StateDead
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateUp:
		return "up"
	case StateDead:
		return "dead"
	default:
		return "unknown"
	}
}

type signalKind int

const (
	sigUp signalKind = iota
	sigDown
	sigDownUp
	sigDead
	sigDeadError
)

// String implements fmt.Stringer.
func (k signalKind) String() string {
	switch k {
	case sigUp:
		return "up"
	case sigDown:
		return "down"
	case sigDownUp:
		return "downup"
	case sigDead:
		return "dead"
	case sigDeadError:
		return "dead_error"
	default:
		return "unknown"
	}
}

// Instance is a statement slot of a Process. The slot outlives its payload:
// backtracking past it tears the payload down and a later forward advance
// creates a new one in the same slot.
//
// All methods must be called on the reactor goroutine.
type Instance struct {
	proc  *Process
	index int
	spec  *program.StatementSpec
	name  strtab.ID

	module *Module
	state  State
	stmt   Statement

	// gen increments on every (re)initialization and teardown. Signals carry
	// the generation they were raised in and are dropped on mismatch.
	gen   uint64
	quota *QuotaEnforcer
}

// Index returns the slot index inside its process.
func (inst *Instance) Index() int { return inst.index }

// Name returns the interned statement name, or strtab.Invalid for unnamed
// statements.
func (inst *Instance) Name() strtab.ID { return inst.name }

// Spec returns the statement description.
func (inst *Instance) Spec() *program.StatementSpec { return inst.spec }

// State returns the lifecycle state.
func (inst *Instance) State() State { return inst.state }

// Statement returns the current payload, or nil.
func (inst *Instance) Statement() Statement { return inst.stmt }

// Process returns the owning process.
func (inst *Instance) Process() *Process { return inst.proc }

// Interp returns the interpreter running the process.
func (inst *Instance) Interp() *Interp { return inst.proc.interp }

// Strings returns the shared string table.
func (inst *Instance) Strings() *strtab.Table { return inst.proc.interp.strings }

// Reactor returns the reactor signals are queued on.
func (inst *Instance) Reactor() reactor.Reactor { return inst.proc.interp.reactor }

// ModuleType returns the type of the module running in the slot, or "" if
// none is resolved yet.
func (inst *Instance) ModuleType() string {
	if inst.module == nil {
		return ""
	}
	return inst.module.Type
}

// SignalUp reports that the payload is ready.
func (inst *Instance) SignalUp() { inst.post(sigUp, nil) }

// SignalDown reports that values exposed earlier are no longer valid.
func (inst *Instance) SignalDown() { inst.post(sigDown, nil) }

// SignalDownUp asks the process to go Down and immediately back Up,
// re-evaluating every statement after this one.
func (inst *Instance) SignalDownUp() { inst.post(sigDownUp, nil) }

// SignalDead reports that the statement will never be Up again.
func (inst *Instance) SignalDead() { inst.post(sigDead, nil) }

// SignalDeadError is SignalDead that also fails the process with err.
func (inst *Instance) SignalDeadError(err error) { inst.post(sigDeadError, err) }

func (inst *Instance) post(kind signalKind, err error) {
	gen := inst.gen
	inst.proc.interp.reactor.Defer(func() {
		inst.proc.handleSignal(inst, gen, kind, err)
	})
}

// Object returns the object view of this statement for scope resolution.
func (inst *Instance) Object() Object {
	stmt := inst.stmt
	typ := strtab.Invalid
	if inst.module != nil {
		typ = inst.Strings().Intern(inst.module.Type)
	}

	var getVar func(strtab.ID, *value.Mem) (value.Value, bool)
	if vg, ok := stmt.(VarGetter); ok {
		getVar = vg.GetVar
	}
	var getObj func(strtab.ID) (Object, bool)
	if og, ok := stmt.(ObjGetter); ok {
		getObj = og.GetObj
	}
	return NewObject(typ, stmt, getVar, getObj)
}

// ResolveObject resolves a dotted name as seen from this statement: only
// statements before it and the process's special objects are visible.
func (inst *Instance) ResolveObject(names []strtab.ID) (Object, bool) {
	return inst.proc.ResolveObject(inst.index, names)
}

// ResolveVar resolves a dotted variable as seen from this statement.
func (inst *Instance) ResolveVar(names []strtab.ID, mem *value.Mem) (value.Value, bool) {
	return inst.proc.ResolveVar(inst.index, names, mem)
}

// ScopeObject returns an object whose children are the names visible from
// this statement. call() hands it to a template as _caller.
func (inst *Instance) ScopeObject() Object {
	return NewObject(strtab.Invalid, nil, nil, func(name strtab.ID) (Object, bool) {
		return inst.ResolveObject([]strtab.ID{name})
	})
}

// Log writes a diagnostic on behalf of the statement. The module type is
// used as the log channel.
func (inst *Instance) Log(level slog.Level, msg string, attrs ...any) {
	base := []any{
		"channel", inst.ModuleType(),
		"process", inst.proc.path,
		"statement", inst.index,
	}
	inst.proc.interp.logger.Log(context.Background(), level, msg, append(base, attrs...)...)
}
