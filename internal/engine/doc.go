// Package engine implements the ncd statement/process execution engine.
//
// A Process owns an ordered list of statement slots. Each slot runs a
// Statement created by a registered Module. Statements become ready
// asynchronously; the process advances its frontier one statement at a
// time and only lets a statement see statements before it that are Up.
//
// ARCHITECTURE:
//
// Deferred Signals:
// Statements never call into their process synchronously. SignalUp,
// SignalDown, SignalDownUp, SignalDead and SignalDeadError queue a job on
// the reactor, so signal delivery is FIFO and never re-entrant.
//
// Lifecycle:
//
//	Uninitialized -> Initializing -> Up -> (Down) Initializing -> Up ...
//	                              \-> Dead
//
// Backtracking:
// SignalDownUp on slot k tears down every slot above k, highest index
// first, then brings k back Up and advances again. A second DownUp that
// arrives while k is still Initializing is dropped.
//
// Failure:
// SignalDeadError (or a constructor error) fails the whole process. The
// owner, either a parent statement such as call() or the interpreter,
// observes EventFailed and decides what to do. The process never retries.
//
// Nesting:
// A template started by a statement pauses when it stops being Up. Its own
// slots stay in place until the owner calls Continue, which call() does
// once the parent has torn down the statements after it. Teardown order is
// thus the same as if the template's statements stood in the parent.
//
// Every transition is stamped from a logical clock and handed to the
// Observer, which the journal uses to persist runs.
package engine
