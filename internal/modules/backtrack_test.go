package modules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ncd/internal/engine"
)

// TestBacktrack_RetryCycle: each go() cycles the point Up->Down->Up once
// and re-creates everything between the point and go() once.
func TestBacktrack_RetryCycle(t *testing.T) {
	h := newHarness(t, mainProgram(
		st("bp", "backtrack_point"),
		st("mid", "concat", s("m")),
		st("g", "gate"),
		method("", "bp", "go"),
	))
	p := h.start()
	require.Equal(t, 2, p.Frontier(), "waiting at the gate")

	const opens = 3
	for i := 1; i <= opens; i++ {
		h.openGate()

		assert.Equal(t, i, h.rec.Count("main", 0, engine.TransitionDownUp), "open %d", i)
		assert.Equal(t, 1+i, h.rec.Count("main", 0, engine.TransitionUp), "open %d", i)
		assert.Equal(t, i, h.rec.Count("main", 1, engine.TransitionTerminate), "open %d", i)
		assert.Equal(t, 1+i, h.rec.Count("main", 1, engine.TransitionInit), "open %d", i)
		assert.Equal(t, i, h.rec.Count("main", 2, engine.TransitionTerminate), "open %d", i)
		assert.Equal(t, i, h.rec.Count("main", 3, engine.TransitionInit), "open %d", i)
		assert.Equal(t, 2, p.Frontier(), "back at the gate after open %d", i)
	}

	assert.Equal(t, 1, h.rec.Count("main", 0, engine.TransitionInit), "the point itself is never re-created")
	assert.Equal(t, 0, h.rec.Count("main", 0, engine.TransitionCoalesced))
}

func TestBacktrack_GoArgumentErrors(t *testing.T) {
	h := newHarness(t, mainProgram(
		st("bp", "backtrack_point"),
		method("", "bp", "go", s("extra")),
	))
	p := h.start()
	assert.Equal(t, engine.ProcessFailed, p.State())
	assert.ErrorIs(t, p.Err(), engine.ErrWrongArity)
}

func TestBacktrack_GoOnWrongObject(t *testing.T) {
	h := newHarness(t, mainProgram(
		st("c", "concat", s("x")),
		method("", "c", "go"),
	))
	p := h.start()
	assert.Equal(t, engine.ProcessFailed, p.State())
	assert.ErrorIs(t, p.Err(), engine.ErrUnknownModule)
}

func TestBacktrack_PointArity(t *testing.T) {
	h := newHarness(t, mainProgram(st("bp", "backtrack_point", s("x"))))
	p := h.start()
	assert.ErrorIs(t, p.Err(), engine.ErrWrongArity)
}
