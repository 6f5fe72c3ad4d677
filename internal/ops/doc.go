// Package ops provides the built-in operations: value sources, a
// threshold, arithmetic, a matrix splitter, a histogram, a collector and
// digital I/O on top of the shared iothread scheduler.
//
// Register adds every type to an engine.Registry. The type names are the
// ones pipeline definitions refer to.
package ops
