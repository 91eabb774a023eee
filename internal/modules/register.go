package modules

import (
	"fmt"
	"log/slog"

	"github.com/roach88/ncd/internal/engine"
	"github.com/roach88/ncd/internal/value"
)

// Modules returns every built-in module.
func Modules() []engine.Module {
	return []engine.Module{
		{Type: "concat", New: newConcat},
		{Type: "concatv", New: newConcatv},
		{Type: "alias", New: newAlias},
		{Type: "explode", New: newExplode},
		{Type: "backtrack_point", New: newBacktrackPoint},
		{Type: "backtrack_point::go", New: newBacktrackGo},
		{Type: "call", New: newCall},
		{Type: "call_with_caller_target", New: newCallWithCallerTarget},
		{Type: "embcall2_multif", New: newEmbcallMultif},
		{Type: "try", New: newTry},
		{Type: tryType + "::assert", New: newTryAssert},
	}
}

// Register installs the built-in modules into reg.
func Register(reg *engine.Registry) error {
	for _, m := range Modules() {
		if err := reg.Register(m); err != nil {
			return fmt.Errorf("register built-ins: %w", err)
		}
	}
	return nil
}

// fail logs err on the statement's channel and returns it, so constructors
// can `return nil, fail(inst, err)`.
func fail(inst *engine.Instance, err error) error {
	inst.Log(slog.LevelError, err.Error())
	return err
}

// readArgs returns exactly n arguments.
func readArgs(params engine.NewParams, n int) ([]value.Value, error) {
	args, ok := params.Args.ListRead(n)
	if !ok {
		return nil, fmt.Errorf("%w: expected %d arguments, got %d", engine.ErrWrongArity, n, params.Args.Len())
	}
	return args, nil
}

// readString returns the contents of a string argument.
func readString(v value.Value, what string) (string, error) {
	if !v.IsString() {
		return "", fmt.Errorf("%w: %s must be a string, got %s", engine.ErrWrongType, what, v.Kind())
	}
	return v.String(), nil
}

// noop is the payload of statements that keep no state.
type noop struct{}

func (noop) Terminate() {}
