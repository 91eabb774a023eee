package modules

import (
	"bytes"
	"fmt"

	"github.com/roach88/ncd/internal/engine"
	"github.com/roach88/ncd/internal/strtab"
	"github.com/roach88/ncd/internal/value"
)

// concat holds the joined string in a reference-counted buffer. The ""
// variable borrows from it, so aliases and downstream arguments share the
// bytes instead of copying them. The buffer is freed once the statement is
// terminated and every borrower has released.
type concat struct {
	buf *value.RefTarget
}

func newConcat(inst *engine.Instance, params engine.NewParams) (engine.Statement, error) {
	var b bytes.Buffer
	for i, arg := range params.Args.Elems() {
		if !arg.IsString() {
			return nil, fail(inst, fmt.Errorf("%w: argument %d must be a string, got %s", engine.ErrWrongType, i, arg.Kind()))
		}
		b.Write(arg.Bytes())
	}
	return startConcat(inst, b.Bytes()), nil
}

func newConcatv(inst *engine.Instance, params engine.NewParams) (engine.Statement, error) {
	args, err := readArgs(params, 1)
	if err != nil {
		return nil, fail(inst, err)
	}
	if !args[0].IsList() {
		return nil, fail(inst, fmt.Errorf("%w: argument must be a list, got %s", engine.ErrWrongType, args[0].Kind()))
	}

	var b bytes.Buffer
	for i, elem := range args[0].Elems() {
		if !elem.IsString() {
			return nil, fail(inst, fmt.Errorf("%w: element %d must be a string, got %s", engine.ErrWrongType, i, elem.Kind()))
		}
		b.Write(elem.Bytes())
	}
	return startConcat(inst, b.Bytes()), nil
}

func startConcat(inst *engine.Instance, data []byte) *concat {
	c := &concat{buf: value.NewRefTarget(data, nil)}
	inst.SignalUp()
	return c
}

func (c *concat) GetVar(name strtab.ID, mem *value.Mem) (value.Value, bool) {
	if name != strtab.Empty {
		return value.Invalid(), false
	}
	v, err := mem.NewBorrowed(c.buf, 0, len(c.buf.Data()))
	if err != nil {
		return value.Invalid(), false
	}
	return v, true
}

func (c *concat) Terminate() {
	c.buf.Deref()
}
