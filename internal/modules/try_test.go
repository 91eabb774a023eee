package modules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ncd/internal/engine"
)

func TestTry_Succeeds(t *testing.T) {
	h := newHarness(t, withTemplates(mainProgram(
		st("t", "try", s("body"), list(s("v"))),
	), tmpl("body",
		st("x", "concat", ref("_arg0")),
		method("", "_try", "assert", s("true")),
	)))
	p := h.start()
	require.Equal(t, engine.ProcessUp, p.State())

	assert.Equal(t, "true", h.varString(p, "t.succeeded"))
	assert.NotEmpty(t, h.rec.Filter("main/0/body", engine.TransitionProcessTerminated),
		"the template is terminated once it is up")
}

func TestTry_FailedAssert(t *testing.T) {
	h := newHarness(t, withTemplates(mainProgram(
		st("t", "try", s("body"), list()),
		st("after", "concat", ref("t.succeeded")),
	), tmpl("body",
		method("", "_try", "assert", s("false")),
		st("g", "gate"),
	)))
	p := h.start()
	require.Equal(t, engine.ProcessUp, p.State())

	assert.Equal(t, "false", h.varString(p, "after"))
	assert.NotEmpty(t, h.rec.Filter("main/0/body", engine.TransitionProcessTerminated))
}

func TestTry_CallerVisible(t *testing.T) {
	h := newHarness(t, withTemplates(mainProgram(
		st("flag", "concat", s("fa"), s("lse")),
		st("t", "try", s("body"), list()),
	), tmpl("body",
		method("", "_try", "assert", ref("_caller.flag")),
	)))
	p := h.start()
	require.Equal(t, engine.ProcessUp, p.State())

	assert.Equal(t, "false", h.varString(p, "t.succeeded"))
}

func TestTry_TemplateErrorPropagates(t *testing.T) {
	h := newHarness(t, withTemplates(mainProgram(
		st("t", "try", s("body"), list()),
	), tmpl("body", st("c", "concatv", s("x")))))
	p := h.start()

	assert.Equal(t, engine.ProcessFailed, p.State())
	assert.ErrorIs(t, p.Err(), engine.ErrWrongType)
}

func TestTry_TerminatedWhileRunning(t *testing.T) {
	h := newHarness(t, withTemplates(mainProgram(
		st("t", "try", s("body"), list()),
	), tmpl("body", st("g", "gate"))))
	p := h.start()
	assert.Equal(t, 0, p.Frontier())

	h.interp.Terminate()
	h.drain()
	assert.NotEmpty(t, h.rec.Filter("main/0/body", engine.TransitionProcessTerminated))
	assert.Equal(t, engine.ProcessTerminated, p.State())
}

func TestTryAssert_Arity(t *testing.T) {
	h := newHarness(t, withTemplates(mainProgram(
		st("t", "try", s("body"), list()),
	), tmpl("body", method("", "_try", "assert"))))
	p := h.start()

	assert.ErrorIs(t, p.Err(), engine.ErrWrongArity)
}
