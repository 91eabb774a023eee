package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/ncd/internal/engine"
	"github.com/roach88/ncd/internal/value"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s", event.Seq, event.Key())
			if event.Detail != "" {
				fmt.Fprintf(&buf, " (%s)", event.Detail)
			}
			buf.WriteByte('\n')
		}
	}

	return buf.String()
}

// assertTraceOrder checks that events appear in the specified order.
// Events don't need to be consecutive, and a repeated event matches its
// next occurrence after the previous match.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	pos := 0
	for i, want := range assertion.Events {
		found := false
		for pos < len(trace) {
			key := trace[pos].Key()
			pos++
			if key == want {
				found = true
				break
			}
		}
		if !found {
			actual := fmt.Sprintf("missing event: %s", want)
			if i > 0 {
				actual = fmt.Sprintf("%s not found after %s", want, assertion.Events[i-1])
			}
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("events in order: %v", assertion.Events),
				Actual:   actual,
				Trace:    trace,
			}
		}
	}
	return nil
}

// assertTraceCount checks the event appears exactly the specified number
// of times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Key() == assertion.Event {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Event),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertProcessState checks a top-level process's state name.
func assertProcessState(it *engine.Interp, assertion Assertion) error {
	p, ok := it.Process(assertion.Process)
	if !ok {
		return &AssertionError{
			Type:     AssertProcessState,
			Expected: fmt.Sprintf("process %s in state %s", assertion.Process, assertion.State),
			Actual:   "process not started",
		}
	}
	if got := p.State().String(); got != assertion.State {
		actual := got
		if p.Err() != nil {
			actual = fmt.Sprintf("%s (%v)", got, p.Err())
		}
		return &AssertionError{
			Type:     AssertProcessState,
			Expected: fmt.Sprintf("process %s in state %s", assertion.Process, assertion.State),
			Actual:   actual,
		}
	}
	return nil
}

// assertVarEquals resolves a dotted variable against the whole process and
// compares its canonical JSON with the expected value's.
func assertVarEquals(it *engine.Interp, assertion Assertion) error {
	fail := func(actual string) error {
		return &AssertionError{
			Type:     AssertVarEquals,
			Expected: fmt.Sprintf("%s.%s = %v", assertion.Process, assertion.Ref, assertion.Value),
			Actual:   actual,
		}
	}

	p, ok := it.Process(assertion.Process)
	if !ok {
		return fail("process not started")
	}

	names, err := it.Strings().SplitDotted(assertion.Ref)
	if err != nil {
		return fmt.Errorf("var_equals: bad ref %q: %w", assertion.Ref, err)
	}

	mem := value.NewMem()
	defer mem.Release()

	want, err := value.FromGo(mem, assertion.Value)
	if err != nil {
		return fmt.Errorf("var_equals: expected value: %w", err)
	}
	wantJSON, err := value.MarshalCanonical(want)
	if err != nil {
		return fmt.Errorf("var_equals: expected value: %w", err)
	}

	got, ok := p.ResolveVar(p.Len(), names, mem)
	if !ok {
		return fail("variable not resolvable")
	}
	gotJSON, err := value.MarshalCanonical(got)
	if err != nil {
		return fail(fmt.Sprintf("value has no canonical form: %v", err))
	}

	if string(gotJSON) != string(wantJSON) {
		return &AssertionError{
			Type:     AssertVarEquals,
			Expected: fmt.Sprintf("%s.%s = %s", assertion.Process, assertion.Ref, wantJSON),
			Actual:   string(gotJSON),
		}
	}
	return nil
}

// EvaluateAssertions evaluates all assertions against the result and the
// interpreter the result came from.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, it *engine.Interp) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertProcessState:
			if it == nil {
				err = fmt.Errorf("assertion[%d]: process_state requires an interpreter", i)
			} else {
				err = assertProcessState(it, assertion)
			}
		case AssertVarEquals:
			if it == nil {
				err = fmt.Errorf("assertion[%d]: var_equals requires an interpreter", i)
			} else {
				err = assertVarEquals(it, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
