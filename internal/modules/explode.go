package modules

import (
	"fmt"
	"math"
	"strings"

	"github.com/roach88/ncd/internal/engine"
	"github.com/roach88/ncd/internal/strtab"
	"github.com/roach88/ncd/internal/value"
)

// explode splits input on delim. With a limit, at most limit pieces are
// produced and the last one holds the unsplit remainder.
type explode struct {
	pieces []string
}

func newExplode(inst *engine.Instance, params engine.NewParams) (engine.Statement, error) {
	n := params.Args.Len()
	if !params.Args.IsList() || n < 2 || n > 3 {
		return nil, fail(inst, fmt.Errorf("%w: expected 2 or 3 arguments, got %d", engine.ErrWrongArity, n))
	}
	args := params.Args.Elems()

	delim, err := readString(args[0], "delimiter")
	if err != nil {
		return nil, fail(inst, err)
	}
	input, err := readString(args[1], "input")
	if err != nil {
		return nil, fail(inst, err)
	}
	if delim == "" {
		return nil, fail(inst, fmt.Errorf("%w: delimiter must not be empty", engine.ErrBadArgument))
	}

	limit := -1
	if n == 3 {
		u, err := value.ReadUint(args[2])
		if err != nil {
			return nil, fail(inst, fmt.Errorf("%w: limit: %v", engine.ErrBadArgument, err))
		}
		if u == 0 {
			return nil, fail(inst, fmt.Errorf("%w: limit must be at least 1", engine.ErrBadArgument))
		}
		if u > math.MaxInt32 {
			u = math.MaxInt32
		}
		limit = int(u)
	}

	e := &explode{pieces: strings.SplitN(input, delim, limit)}
	inst.SignalUp()
	return e, nil
}

func (e *explode) GetVar(name strtab.ID, mem *value.Mem) (value.Value, bool) {
	if name != strtab.Empty {
		return value.Invalid(), false
	}
	return mem.NewStringList(e.pieces...), true
}

func (e *explode) Terminate() {}
