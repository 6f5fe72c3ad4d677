// Package engine runs dataflow pipelines of operations connected through
// typed sockets.
//
// ARCHITECTURE:
//
// Single Scheduler Loop:
// Execute starts one goroutine that visits every operation in insertion
// order, once per round. For each operation the loop:
//  1. flushes outputs that downstream inputs refused earlier
//  2. consumes control markers lined up at the heads of a sync group and
//     dispatches them as SyncEvents
//  3. calls Process once for the lowest-numbered ready group
//
// An operation with no connected inputs is a source and is called every
// round until it returns ErrSourceDone. A round that makes no progress
// parks the loop until Wake is called, the context ends, the state changes
// or the idle tick fires.
//
// Threaded operations are called on a dedicated worker goroutine, but the
// loop waits for each call, so at most one Process call is in flight at any
// time and cross-operation ordering follows socket connections only.
//
// Lifecycle:
//
//	Stopped -> Running -> Pausing -> Paused -> Running
//	Running -> Stopping -> Stopped
//	Running -> Stopped (interrupt, completion, execution error)
//
// Topology (AddOperation, Connect, Disconnect) may only change while the
// engine is Stopped.
//
// Stream end:
// When a source finishes, a Stop marker is emitted on all its outputs. An
// operation finishes once every connected input has a Stop marker at its
// head. The engine stops by itself when every operation has finished.
package engine
