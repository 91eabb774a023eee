// Package reactor provides the single-threaded job loop the engine runs on.
//
// The engine never calls back into a statement, or a statement into its
// process, on the same call stack: every upward signal is queued with
// Reactor.Defer and delivered on a later tick. Loop is the concrete reactor:
// a FIFO of jobs drained by exactly one goroutine, plus a logical clock used
// to stamp journal records.
package reactor
