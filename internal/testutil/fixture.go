package testutil

import (
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/roach88/ncd/internal/engine"
	"github.com/roach88/ncd/internal/modules"
	"github.com/roach88/ncd/internal/program"
	"github.com/roach88/ncd/internal/reactor"
	"github.com/roach88/ncd/internal/strtab"
)

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Fixture is an interpreter wired with the built-in modules, a fresh
// loop, a recorder and a fixed run token.
type Fixture struct {
	Loop     *reactor.Loop
	Strings  *strtab.Table
	Registry *engine.Registry
	Recorder *engine.Recorder
	Interp   *engine.Interp
}

// NewFixture builds a Fixture for prog. Extra options are applied after
// the defaults, so they may override the logger or run token.
func NewFixture(prog *program.Program, opts ...engine.Option) (*Fixture, error) {
	reg := engine.NewRegistry()
	if err := modules.Register(reg); err != nil {
		return nil, fmt.Errorf("register modules: %w", err)
	}

	f := &Fixture{
		Loop:     reactor.NewLoop(),
		Strings:  strtab.New(),
		Registry: reg,
		Recorder: &engine.Recorder{},
	}

	base := []engine.Option{
		engine.WithLogger(DiscardLogger()),
		engine.WithTokenGenerator(NewFixedRunGenerator("")),
		engine.WithClock(f.Loop.Clock()),
		engine.WithObserver(f.Recorder),
	}
	f.Interp = engine.New(f.Loop, f.Strings, f.Registry, prog, append(base, opts...)...)
	return f, nil
}

// MustFixture is NewFixture for tests.
func MustFixture(t testing.TB, prog *program.Program, opts ...engine.Option) *Fixture {
	t.Helper()
	f, err := NewFixture(prog, opts...)
	if err != nil {
		t.Fatalf("NewFixture() failed: %v", err)
	}
	return f
}

// Start starts the named processes (all when empty) and drains the loop.
func (f *Fixture) Start(names ...string) error {
	if err := f.Interp.Start(names...); err != nil {
		return err
	}
	f.Loop.Drain()
	return nil
}

// Terminate tears the interpreter down and drains what that queued.
func (f *Fixture) Terminate() {
	f.Interp.Terminate()
	f.Loop.Drain()
}

// Events renders the recorded transitions of process as "index:event"
// strings, with "-1" for process-level events.
func (f *Fixture) Events(process string) []string {
	var out []string
	for _, t := range f.Recorder.Filter(process) {
		out = append(out, fmt.Sprintf("%d:%s", t.Index, t.Event))
	}
	return out
}
