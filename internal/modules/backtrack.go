package modules

import (
	"fmt"

	"github.com/roach88/ncd/internal/engine"
)

// backtrackPoint goes Up immediately and serves as the method-user of
// backtrack_point::go().
type backtrackPoint struct {
	inst *engine.Instance
}

func newBacktrackPoint(inst *engine.Instance, params engine.NewParams) (engine.Statement, error) {
	if _, err := readArgs(params, 0); err != nil {
		return nil, fail(inst, err)
	}
	bp := &backtrackPoint{inst: inst}
	inst.SignalUp()
	return bp, nil
}

func (bp *backtrackPoint) Terminate() {}

// newBacktrackGo makes the point go Down and back Up. The DownUp is queued
// before go's own Up, so the backtrack tears go down before it is seen Up.
func newBacktrackGo(inst *engine.Instance, params engine.NewParams) (engine.Statement, error) {
	if _, err := readArgs(params, 0); err != nil {
		return nil, fail(inst, err)
	}
	bp, ok := params.MethodUser.(*backtrackPoint)
	if !ok {
		return nil, fail(inst, fmt.Errorf("%w: go() needs a backtrack_point", engine.ErrWrongType))
	}

	bp.inst.SignalDownUp()
	inst.SignalUp()
	return noop{}, nil
}
