package engine

import "sync"

// TransitionEvent names a lifecycle transition.
type TransitionEvent string

// Statement transitions.
const (
	TransitionInit      TransitionEvent = "init"
	TransitionUp        TransitionEvent = "up"
	TransitionDown      TransitionEvent = "down"
	TransitionDownUp    TransitionEvent = "downup"
	TransitionCoalesced TransitionEvent = "coalesced"
	TransitionDead      TransitionEvent = "dead"
	TransitionDeadError TransitionEvent = "dead_error"
	TransitionTerminate TransitionEvent = "terminate"
)

// Process transitions. Index is -1 for these.
const (
	TransitionProcessStart      TransitionEvent = "process_start"
	TransitionProcessUp         TransitionEvent = "process_up"
	TransitionProcessDown       TransitionEvent = "process_down"
	TransitionProcessFailed     TransitionEvent = "process_failed"
	TransitionProcessStalled    TransitionEvent = "process_stalled"
	TransitionProcessTerminated TransitionEvent = "process_terminated"
)

// Transition is one recorded lifecycle step.
type Transition struct {
	// Seq is the logical clock value; strictly increasing within a run.
	Seq       int64
	RunToken  string
	Process   string
	Index     int
	Statement string
	Module    string
	Event     TransitionEvent
	Detail    string
}

// Observer receives every transition, synchronously on the reactor.
// Implementations must not call back into the engine.
type Observer interface {
	Observe(t Transition)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(t Transition)

// Observe implements Observer.
func (f ObserverFunc) Observe(t Transition) { f(t) }

// Recorder is an Observer that keeps every transition in memory.
//
// Thread-safety: safe for concurrent use, so tests may read while a loop
// runs in another goroutine.
type Recorder struct {
	mu          sync.Mutex
	transitions []Transition
}

// Observe implements Observer.
func (r *Recorder) Observe(t Transition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, t)
}

// Transitions returns a copy of everything recorded so far.
func (r *Recorder) Transitions() []Transition {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Transition, len(r.transitions))
	copy(out, r.transitions)
	return out
}

// Filter returns recorded transitions of process path with one of events.
// With no events, every transition of the process is returned.
func (r *Recorder) Filter(process string, events ...TransitionEvent) []Transition {
	var out []Transition
	for _, t := range r.Transitions() {
		if t.Process != process {
			continue
		}
		if len(events) == 0 || containsEvent(events, t.Event) {
			out = append(out, t)
		}
	}
	return out
}

// Count returns how many times event happened at index of process.
func (r *Recorder) Count(process string, index int, event TransitionEvent) int {
	n := 0
	for _, t := range r.Transitions() {
		if t.Process == process && t.Index == index && t.Event == event {
			n++
		}
	}
	return n
}

// Reset discards everything recorded.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = nil
}

func containsEvent(events []TransitionEvent, ev TransitionEvent) bool {
	for _, e := range events {
		if e == ev {
			return true
		}
	}
	return false
}
