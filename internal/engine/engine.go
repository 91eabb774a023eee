package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/roach88/ncd/internal/program"
	"github.com/roach88/ncd/internal/reactor"
	"github.com/roach88/ncd/internal/strtab"
	"github.com/roach88/ncd/internal/value"
)

// RunTokenGenerator generates unique run tokens naming one interpreter run
// in the journal. Implemented by UUIDv7Generator (production) and
// FixedGenerator (tests). See token.go.
type RunTokenGenerator interface {
	Generate() string
}

// Interp runs the processes of a program on a reactor.
//
// All process and statement logic runs in reactor jobs. Callers drive the
// reactor (Loop.Run or Loop.Drain) after Start.
//
// Thread-safety model:
//   - New, Start, Terminate: call from the reactor goroutine, or before the
//     reactor runs
//   - the string table and registry may be shared across interpreters
//
// INVARIANTS:
//   - top-level processes start in declaration order and terminate in
//     reverse order
//   - every transition is stamped with a strictly increasing clock value
type Interp struct {
	reactor  reactor.Reactor
	clock    *reactor.Clock
	strings  *strtab.Table
	registry *Registry
	program  *program.Program
	logger   *slog.Logger
	observer Observer
	handler  ProcessHandler

	maxCycles int
	tokenGen  RunTokenGenerator
	runToken  string

	procs []*Process
}

// Option allows configuration of interpreter parameters.
type Option func(*Interp)

// WithLogger sets the logger for engine and statement diagnostics.
// Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(it *Interp) {
		it.logger = l
	}
}

// WithObserver installs an observer that receives every transition.
func WithObserver(o Observer) Option {
	return func(it *Interp) {
		it.observer = o
	}
}

// WithMaxCycles limits the number of back-to-back DownUp cycles of a single
// slot. Exceeding it fails the process with QUOTA_EXCEEDED. The count starts
// over once the reactor has run out of work between two cycles.
//
// Default: 0 (unlimited).
func WithMaxCycles(n int) Option {
	return func(it *Interp) {
		it.maxCycles = n
	}
}

// WithRunToken fixes the run token instead of generating one.
func WithRunToken(token string) Option {
	return func(it *Interp) {
		it.runToken = token
	}
}

// WithTokenGenerator sets the run token generator.
// Default: UUIDv7Generator.
func WithTokenGenerator(gen RunTokenGenerator) Option {
	return func(it *Interp) {
		it.tokenGen = gen
	}
}

// WithClock sets the clock transitions are stamped with. Pass the loop's
// clock so journal sequence numbers and reactor order agree.
func WithClock(c *reactor.Clock) Option {
	return func(it *Interp) {
		it.clock = c
	}
}

// WithProcessHandler installs a handler for events of top-level processes.
func WithProcessHandler(h ProcessHandler) Option {
	return func(it *Interp) {
		it.handler = h
	}
}

// New creates an interpreter for prog.
func New(
	r reactor.Reactor,
	strs *strtab.Table,
	reg *Registry,
	prog *program.Program,
	opts ...Option,
) *Interp {
	it := &Interp{
		reactor:  r,
		strings:  strs,
		registry: reg,
		program:  prog,
		logger:   slog.Default(),
		tokenGen: UUIDv7Generator{},
	}

	for _, opt := range opts {
		opt(it)
	}

	if it.clock == nil {
		it.clock = reactor.NewClock()
	}
	if it.runToken == "" {
		it.runToken = it.tokenGen.Generate()
	}
	return it
}

// RunToken returns the token naming this run.
func (it *Interp) RunToken() string { return it.runToken }

// Strings returns the string table.
func (it *Interp) Strings() *strtab.Table { return it.strings }

// Registry returns the module registry.
func (it *Interp) Registry() *Registry { return it.registry }

// Program returns the program being run.
func (it *Interp) Program() *program.Program { return it.program }

// Logger returns the interpreter logger.
func (it *Interp) Logger() *slog.Logger { return it.logger }

// Clock returns the transition clock.
func (it *Interp) Clock() *reactor.Clock { return it.clock }

// Processes returns the top-level processes in start order.
func (it *Interp) Processes() []*Process {
	out := make([]*Process, len(it.procs))
	copy(out, it.procs)
	return out
}

// Process returns the top-level process with the given path.
func (it *Interp) Process(name string) (*Process, bool) {
	for _, p := range it.procs {
		if p.path == name {
			return p, true
		}
	}
	return nil, false
}

// Start starts the named top-level processes, or every process of the
// program when no name is given.
func (it *Interp) Start(names ...string) error {
	if len(names) == 0 {
		for _, ps := range it.program.Processes {
			names = append(names, ps.Name)
		}
	}

	it.logger.Info("interpreter starting", "run", it.runToken, "processes", len(names))

	for _, name := range names {
		if _, err := it.StartProcess(name); err != nil {
			return err
		}
	}
	return nil
}

// StartProcess starts one top-level process.
func (it *Interp) StartProcess(name string) (*Process, error) {
	spec, ok := it.program.Process(name)
	if !ok {
		return nil, fmt.Errorf("start process: unknown process %q", name)
	}
	if _, running := it.Process(name); running {
		return nil, fmt.Errorf("start process: %q already started", name)
	}

	p := it.newProcess(name, spec, value.Invalid(), nil, ProcessHandlerFunc(it.topLevelEvent))
	it.procs = append(it.procs, p)
	return p, nil
}

// StartTemplate starts template name as a child of caller. args must be a
// list; it is copied, and the child exposes it as _args and _argN.
func (it *Interp) StartTemplate(
	caller *Instance,
	name string,
	args value.Value,
	special SpecialFunc,
	handler ProcessHandler,
) (*Process, error) {
	spec, ok := it.program.Template(name)
	if !ok {
		return nil, fmt.Errorf("%w: unknown template %q", ErrBadArgument, name)
	}
	if !args.IsInvalid() && !args.IsList() {
		return nil, fmt.Errorf("%w: template arguments must be a list", ErrWrongType)
	}

	path := caller.proc.path + "/" + strconv.Itoa(caller.index) + "/" + name
	p := it.newProcess(path, spec, args, special, handler)
	p.owned = true
	return p, nil
}

func (it *Interp) newProcess(
	path string,
	spec *program.ProcessSpec,
	args value.Value,
	special SpecialFunc,
	handler ProcessHandler,
) *Process {
	p := &Process{
		interp:  it,
		path:    path,
		spec:    spec,
		special: special,
		handler: handler,
		args:    value.Invalid(),
	}

	if args.IsList() {
		p.argsMem = value.NewMem()
		if cp, err := p.argsMem.Copy(args); err == nil {
			p.args = cp
		}
	}

	p.slots = make([]*Instance, len(spec.Statements))
	for i := range spec.Statements {
		st := &spec.Statements[i]
		name := strtab.Invalid
		if st.Name != "" {
			name = it.strings.Intern(st.Name)
		}
		p.slots[i] = &Instance{proc: p, index: i, spec: st, name: name}
	}

	it.observeProcess(p, TransitionProcessStart, "")
	p.start()
	return p
}

// idleCounter is implemented by reactors that count how often their queue
// ran empty, such as reactor.Loop.
type idleCounter interface {
	Idle() uint64
}

// idleCount returns the idle count of the reactor, or 0 if it keeps none.
func (it *Interp) idleCount() uint64 {
	if ic, ok := it.reactor.(idleCounter); ok {
		return ic.Idle()
	}
	return 0
}

func (it *Interp) topLevelEvent(p *Process, ev ProcessEvent) {
	switch ev {
	case EventFailed:
		it.logger.Error("process failed", "process", p.path, "error", p.err)
	case EventStalled:
		it.logger.Warn("process stalled", "process", p.path, "frontier", p.frontier)
	default:
		it.logger.Info("process event", "process", p.path, "event", ev.String())
	}
	if it.handler != nil {
		it.handler.ProcessEvent(p, ev)
	}
}

// Terminate tears down every top-level process, last started first.
func (it *Interp) Terminate() {
	for i := len(it.procs) - 1; i >= 0; i-- {
		it.procs[i].Terminate()
	}
	it.logger.Info("interpreter terminated", "run", it.runToken)
}

// Failed returns the joined errors of failed top-level processes, or nil.
func (it *Interp) Failed() error {
	var errs []error
	for _, p := range it.procs {
		if p.err != nil {
			errs = append(errs, p.err)
		}
	}
	return errors.Join(errs...)
}

// AllUp reports whether every top-level process is Up.
func (it *Interp) AllUp() bool {
	for _, p := range it.procs {
		if p.state != ProcessUp {
			return false
		}
	}
	return len(it.procs) > 0
}

func (it *Interp) observe(p *Process, inst *Instance, ev TransitionEvent, detail string) {
	it.logger.Debug("statement transition",
		"process", p.path,
		"statement", inst.index,
		"event", string(ev),
	)
	if it.observer == nil {
		return
	}
	mod := inst.ModuleType()
	if mod == "" {
		mod = inst.spec.Module
		if inst.spec.IsMethod() {
			mod = inst.spec.Object + "->" + inst.spec.Method
		}
	}
	it.observer.Observe(Transition{
		Seq:       it.clock.Next(),
		RunToken:  it.runToken,
		Process:   p.path,
		Index:     inst.index,
		Statement: inst.spec.Name,
		Module:    mod,
		Event:     ev,
		Detail:    detail,
	})
}

func (it *Interp) observeProcess(p *Process, ev TransitionEvent, detail string) {
	it.logger.Debug("process transition", "process", p.path, "event", string(ev))
	if it.observer == nil {
		return
	}
	it.observer.Observe(Transition{
		Seq:      it.clock.Next(),
		RunToken: it.runToken,
		Process:  p.path,
		Index:    -1,
		Event:    ev,
		Detail:   detail,
	})
}
