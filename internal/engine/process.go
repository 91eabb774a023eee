package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/ncd/internal/program"
	"github.com/roach88/ncd/internal/strtab"
	"github.com/roach88/ncd/internal/value"
)

// ProcessState summarizes a process.
type ProcessState int

const (
	// ProcessRunning: the frontier is below the end and nothing is dead.
	ProcessRunning ProcessState = iota
	// ProcessUp: every statement is Up.
	ProcessUp
	// ProcessStalled: a statement went Dead; nothing advances until an
	// earlier statement backtracks past it.
	ProcessStalled
	// ProcessFailed: a statement went DeadError. The process is finished
	// and waits for its owner to terminate it.
	ProcessFailed
	// ProcessTerminated: all slots have been torn down.
	ProcessTerminated
)

// String implements fmt.Stringer.
func (s ProcessState) String() string {
	switch s {
	case ProcessRunning:
		return "running"
	case ProcessUp:
		return "up"
	case ProcessStalled:
		return "stalled"
	case ProcessFailed:
		return "failed"
	case ProcessTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// ProcessEvent is delivered to a process owner.
type ProcessEvent int

const (
	// EventUp: the frontier reached the end.
	EventUp ProcessEvent = iota
	// EventDown: the process was Up and no longer is.
	EventDown
	// EventFailed: a statement went DeadError; see Process.Err.
	EventFailed
	// EventStalled: a statement went Dead.
	EventStalled
)

// String implements fmt.Stringer.
func (e ProcessEvent) String() string {
	switch e {
	case EventUp:
		return "process_up"
	case EventDown:
		return "process_down"
	case EventFailed:
		return "process_failed"
	case EventStalled:
		return "process_stalled"
	default:
		return "unknown"
	}
}

// ProcessHandler observes a process on behalf of its owner. Events are
// delivered on the reactor, never after the process was terminated.
//
// A template process that was Up pauses after EventDown, EventStalled or
// EventFailed: its own slots stay as they are until the owner calls
// Continue, so statements of the caller that read them can be torn down
// first.
type ProcessHandler interface {
	ProcessEvent(p *Process, ev ProcessEvent)
}

// ProcessHandlerFunc adapts a function to ProcessHandler.
type ProcessHandlerFunc func(p *Process, ev ProcessEvent)

// ProcessEvent implements ProcessHandler.
func (f ProcessHandlerFunc) ProcessEvent(p *Process, ev ProcessEvent) { f(p, ev) }

// Cleaner is implemented by statements that must act after the statements
// following them were torn down on a Down or DownUp.
type Cleaner interface {
	Clean()
}

// SpecialFunc supplies special objects (such as _caller) for names that do
// not match a statement.
type SpecialFunc func(name strtab.ID) (Object, bool)

// Process owns an ordered list of statement slots and advances them.
//
// INVARIANTS:
//   - every slot below frontier is Up
//   - the slot at frontier (if any) is Initializing or Dead
//   - every slot above frontier is Uninitialized
//   - teardown always runs from the highest index down
type Process struct {
	interp  *Interp
	path    string
	spec    *program.ProcessSpec
	slots   []*Instance
	special SpecialFunc
	handler ProcessHandler

	argsMem *value.Mem
	args    value.Value

	frontier   int
	state      ProcessState
	err        error
	terminated bool

	// owned is set for template processes.
	owned  bool
	paused bool
	resume func()
	held   []heldSignal
}

// heldSignal is a signal that arrived while the process was paused.
type heldSignal struct {
	inst *Instance
	gen  uint64
	kind signalKind
	err  error
}

// Path names the process in logs and the journal, e.g. "main" or
// "main/3/helper" for a template started by statement 3 of main.
func (p *Process) Path() string { return p.path }

// Spec returns the process description.
func (p *Process) Spec() *program.ProcessSpec { return p.spec }

// State returns the process state.
func (p *Process) State() ProcessState { return p.state }

// Err returns the failure reason of a failed process.
func (p *Process) Err() error { return p.err }

// Frontier returns the number of leading slots that are Up.
func (p *Process) Frontier() int { return p.frontier }

// Len returns the number of statement slots.
func (p *Process) Len() int { return len(p.slots) }

// Slot returns the slot at index i.
func (p *Process) Slot(i int) *Instance { return p.slots[i] }

// Args returns the template arguments (a list), or Invalid for top-level
// processes.
func (p *Process) Args() value.Value { return p.args }

// Paused reports whether the process waits for its owner to call Continue.
func (p *Process) Paused() bool { return p.paused }

// Terminated reports whether Terminate has been called.
func (p *Process) Terminated() bool { return p.terminated }

// Terminate tears every slot down synchronously, highest index first.
// It is idempotent; no event is delivered to the handler afterwards.
func (p *Process) Terminate() {
	if p.terminated {
		return
	}
	p.terminated = true
	p.paused = false
	p.resume = nil
	p.held = nil
	p.teardownAbove(-1)
	p.frontier = 0
	p.state = ProcessTerminated
	if p.argsMem != nil {
		p.argsMem.Release()
	}
	p.interp.observeProcess(p, TransitionProcessTerminated, "")
}

// Continue resumes a paused process: the pending teardown runs, then the
// signals that arrived meanwhile are applied in order. It is a no-op unless
// the process is paused.
func (p *Process) Continue() {
	if p.terminated || !p.paused {
		return
	}
	p.paused = false
	resume := p.resume
	p.resume = nil
	resume()

	held := p.held
	p.held = nil
	for _, s := range held {
		p.handleSignal(s.inst, s.gen, s.kind, s.err)
	}
}

// start queues initialization of the first slot.
func (p *Process) start() {
	p.interp.reactor.Defer(func() {
		if p.terminated {
			return
		}
		p.advance()
	})
}

// advance initializes the slot at the frontier or, at the end, reports Up.
func (p *Process) advance() {
	if p.frontier < len(p.slots) {
		p.initSlot(p.slots[p.frontier])
		return
	}
	if p.state != ProcessUp {
		p.state = ProcessUp
		p.notify(EventUp)
	}
}

// initSlot creates the payload of inst. Failure is handled as DeadError.
func (p *Process) initSlot(inst *Instance) {
	inst.gen++
	inst.state = StateInitializing
	inst.quota = NewQuotaEnforcer(p.interp.maxCycles)
	inst.module = nil

	mem := value.NewMem()
	defer mem.Release()

	args, err := p.evalArgs(inst.index, inst.spec.Args, mem)
	if err != nil {
		p.deadError(inst, err)
		return
	}

	mod, methodUser, err := p.resolveModule(inst)
	if err != nil {
		p.deadError(inst, err)
		return
	}
	inst.module = mod

	p.interp.observe(p, inst, TransitionInit, "")

	stmt, err := mod.New(inst, NewParams{Args: args, MethodUser: methodUser})
	if err != nil {
		p.deadError(inst, err)
		return
	}
	inst.stmt = stmt
}

// resolveModule finds the module for a plain or method statement.
func (p *Process) resolveModule(inst *Instance) (*Module, any, error) {
	spec := inst.spec
	if !spec.IsMethod() {
		mod, ok := p.interp.registry.Lookup(spec.Module)
		if !ok {
			return nil, nil, &RuntimeError{
				Code:    ErrCodeUnknownModule,
				Message: fmt.Sprintf("module %q is not registered", spec.Module),
				Index:   -1,
				Cause:   ErrUnknownModule,
			}
		}
		return mod, nil, nil
	}

	names, err := p.interp.strings.SplitDotted(spec.Object)
	if err != nil {
		return nil, nil, NewUnresolvedError("object", spec.Object)
	}
	obj, ok := p.ResolveObject(inst.index, names)
	if !ok {
		return nil, nil, NewUnresolvedError("object", spec.Object)
	}
	if obj.Type == strtab.Invalid {
		return nil, nil, &RuntimeError{
			Code:    ErrCodeUnknownModule,
			Message: fmt.Sprintf("object %q has no methods", spec.Object),
			Index:   -1,
			Cause:   ErrUnknownModule,
		}
	}
	typ := p.interp.strings.Resolve(obj.Type) + "::" + spec.Method
	mod, ok := p.interp.registry.Lookup(typ)
	if !ok {
		return nil, nil, &RuntimeError{
			Code:    ErrCodeUnknownModule,
			Message: fmt.Sprintf("method module %q is not registered", typ),
			Index:   -1,
			Cause:   ErrUnknownModule,
		}
	}
	return mod, obj.MethodUser, nil
}

// terminateSlot releases the payload of inst. Safe on any state.
func (p *Process) terminateSlot(inst *Instance) {
	if inst.state == StateUninitialized {
		return
	}
	inst.gen++
	stmt := inst.stmt
	inst.stmt = nil
	inst.state = StateUninitialized
	if stmt != nil {
		stmt.Terminate()
	}
	p.interp.observe(p, inst, TransitionTerminate, "")
}

// teardownAbove terminates every slot with index > i, highest first.
func (p *Process) teardownAbove(i int) {
	for j := len(p.slots) - 1; j > i; j-- {
		p.terminateSlot(p.slots[j])
	}
}

// handleSignal applies a signal raised by inst in generation gen.
// Called only from the reactor.
func (p *Process) handleSignal(inst *Instance, gen uint64, kind signalKind, err error) {
	if p.terminated {
		return
	}
	if p.paused {
		p.held = append(p.held, heldSignal{inst: inst, gen: gen, kind: kind, err: err})
		return
	}
	if gen != inst.gen {
		p.interp.logger.Debug("dropping stale signal",
			"process", p.path,
			"statement", inst.index,
			"signal", kind.String(),
		)
		return
	}
	if p.state == ProcessFailed {
		p.interp.logger.Debug("dropping signal on failed process",
			"process", p.path,
			"statement", inst.index,
			"signal", kind.String(),
		)
		return
	}

	switch kind {
	case sigUp:
		p.handleUp(inst)
	case sigDown:
		p.handleDown(inst)
	case sigDownUp:
		p.handleDownUp(inst)
	case sigDead:
		p.dead(inst)
	case sigDeadError:
		if err == nil {
			err = errors.New("statement reported an error")
		}
		p.deadError(inst, err)
	}
}

func (p *Process) invalidSignal(inst *Instance, kind signalKind) {
	p.interp.logger.Error("invalid signal for statement state",
		"process", p.path,
		"statement", inst.index,
		"signal", kind.String(),
		"state", inst.state.String(),
	)
}

func (p *Process) handleUp(inst *Instance) {
	if inst.state != StateInitializing {
		p.invalidSignal(inst, sigUp)
		return
	}
	inst.state = StateUp
	p.frontier = inst.index + 1
	p.interp.observe(p, inst, TransitionUp, "")
	p.advance()
}

// backOff tears down everything after inst and moves the frontier to it.
func (p *Process) backOff(inst *Instance) {
	p.teardownAbove(inst.index)
	inst.state = StateInitializing
	p.frontier = inst.index
	if c, ok := inst.stmt.(Cleaner); ok {
		c.Clean()
	}
}

// settle runs teardown now, or pauses until Continue when the owner of a
// template process is about to learn that it is no longer Up.
func (p *Process) settle(wasUp bool, teardown func()) {
	if !p.owned || !wasUp {
		teardown()
		return
	}
	p.paused = true
	p.resume = teardown
	p.interp.logger.Debug("process paused", "process", p.path)
}

func (p *Process) handleDown(inst *Instance) {
	if inst.state != StateUp {
		p.invalidSignal(inst, sigDown)
		return
	}
	p.interp.observe(p, inst, TransitionDown, "")
	wasUp := p.state == ProcessUp
	p.state = ProcessRunning
	p.settle(wasUp, func() { p.backOff(inst) })
	if wasUp {
		p.notify(EventDown)
	}
}

// handleDownUp runs one backtrack cycle. A DownUp arriving while the slot
// is still Initializing from an earlier one is dropped, so back-to-back
// requests collapse into a single cycle.
func (p *Process) handleDownUp(inst *Instance) {
	if inst.state == StateInitializing {
		p.interp.observe(p, inst, TransitionCoalesced, "")
		return
	}
	if inst.state != StateUp {
		p.invalidSignal(inst, sigDownUp)
		return
	}
	if err := inst.quota.CheckIdle(p.interp.idleCount()); err != nil {
		var ce *CyclesExceededError
		errors.As(err, &ce)
		p.deadError(inst, NewQuotaError(ce))
		return
	}
	p.interp.observe(p, inst, TransitionDownUp, "")
	wasUp := p.state == ProcessUp
	p.state = ProcessRunning
	p.settle(wasUp, func() {
		p.backOff(inst)
		inst.post(sigUp, nil)
	})
	if wasUp {
		p.notify(EventDown)
	}
}

// kill tears down inst and everything after it and marks it Dead.
func (p *Process) kill(inst *Instance) {
	p.teardownAbove(inst.index)
	if inst.stmt != nil {
		stmt := inst.stmt
		inst.stmt = nil
		stmt.Terminate()
	}
	inst.gen++
	inst.state = StateDead
	p.frontier = inst.index
}

func (p *Process) dead(inst *Instance) {
	if inst.state != StateInitializing && inst.state != StateUp {
		p.invalidSignal(inst, sigDead)
		return
	}
	p.interp.observe(p, inst, TransitionDead, "")
	wasUp := p.state == ProcessUp
	p.state = ProcessStalled
	p.settle(wasUp, func() { p.kill(inst) })
	p.notify(EventStalled)
}

// deadError fails the process. Used for SignalDeadError and for
// initialization failures.
func (p *Process) deadError(inst *Instance, err error) {
	rerr := p.wrapError(inst, err)
	p.interp.observe(p, inst, TransitionDeadError, rerr.Error())
	p.interp.logger.Error("statement failed",
		"process", p.path,
		"statement", inst.index,
		"module", inst.spec.Describe(),
		"error", rerr,
	)
	wasUp := p.state == ProcessUp
	p.state = ProcessFailed
	p.err = rerr
	p.settle(wasUp, func() { p.kill(inst) })
	p.notify(EventFailed)
}

// wrapError attaches process context to err.
func (p *Process) wrapError(inst *Instance, err error) *RuntimeError {
	var re *RuntimeError
	if errors.As(err, &re) && re.Process == "" {
		re.Process = p.path
		re.Index = inst.index
		re.Statement = inst.spec.Describe()
		return re
	}
	return &RuntimeError{
		Code:      ErrCodeStatementFailed,
		Message:   fmt.Sprintf("statement %s failed", inst.spec.Describe()),
		Process:   p.path,
		Index:     inst.index,
		Statement: inst.spec.Describe(),
		Cause:     err,
	}
}

// notify records ev and queues it for the handler.
func (p *Process) notify(ev ProcessEvent) {
	p.interp.observeProcess(p, TransitionEvent(ev.String()), errString(p.err, ev))
	if p.handler == nil {
		return
	}
	p.interp.reactor.Defer(func() {
		if p.terminated {
			return
		}
		p.handler.ProcessEvent(p, ev)
	})
}

func errString(err error, ev ProcessEvent) string {
	if ev != EventFailed || err == nil {
		return ""
	}
	return err.Error()
}

// evalArgs builds the argument list of a statement at index from.
func (p *Process) evalArgs(from int, args []program.Arg, mem *value.Mem) (value.Value, error) {
	list := mem.NewList(len(args))
	for _, a := range args {
		v, err := p.evalArg(from, a, mem)
		if err != nil {
			return value.Invalid(), err
		}
		if err := mem.ListAppend(list, v); err != nil {
			return value.Invalid(), fmt.Errorf("build arguments: %w", err)
		}
	}
	return list, nil
}

func (p *Process) evalArg(from int, a program.Arg, mem *value.Mem) (value.Value, error) {
	switch a.Kind {
	case program.ArgString:
		return mem.NewString(a.Str), nil

	case program.ArgList:
		return p.evalArgs(from, a.List, mem)

	case program.ArgMap:
		m := mem.NewMap(len(a.Map))
		for _, e := range a.Map {
			k, err := p.evalArg(from, e.Key, mem)
			if err != nil {
				return value.Invalid(), err
			}
			v, err := p.evalArg(from, e.Value, mem)
			if err != nil {
				return value.Invalid(), err
			}
			if err := mem.MapInsert(m, k, v); err != nil {
				return value.Invalid(), fmt.Errorf("build map argument: %w", err)
			}
		}
		return m, nil

	case program.ArgRef:
		names, err := p.interp.strings.SplitDotted(a.Ref)
		if err != nil {
			return value.Invalid(), NewUnresolvedError("variable", a.Ref)
		}
		v, ok := p.ResolveVar(from, names, mem)
		if !ok {
			return value.Invalid(), NewUnresolvedError("variable", a.Ref)
		}
		if v.Mem() != mem {
			return mem.Copy(v)
		}
		return v, nil

	default:
		return value.Invalid(), fmt.Errorf("%w: argument kind %s", ErrBadArgument, a.Kind)
	}
}
