// Package harness runs pipeline scenarios as executable contract tests.
//
// A scenario names a CUE pipeline, how many times to execute it and what
// every run must produce. The harness builds the pipeline with the
// built-in operations, drives it on a simulated I/O board, records every
// emission to an in-memory trace store and checks the trace.
//
// # Scenario Format
//
//	name: binarize
//	description: "threshold splits dark from bright pixels"
//	pipeline: binarize.cue        # relative to the scenario file
//	runs: 2
//	properties:
//	  thr.absoluteThreshold: 2.5
//	edges:
//	  - {channel: 0, high: true}
//	expect:
//	  outputs:
//	    thr.image: [0, 0, 1, 1]
//	assertions:
//	  - type: emitted_count
//	    socket: src.output
//	    count: 4
//
// Instead of pipeline, source may hold the CUE text inline. When the CUE
// defines several pipelines, select picks one.
//
// expect.error turns the scenario around: some run (or the build) must
// fail with an error containing that text.
//
// # Assertion Types
//
//   - emitted_contains: a socket emitted the value in some run
//   - emitted_order: sockets first emit data in the given order
//   - emitted_count: a socket emits exactly count data objects per run
//   - run_status: every recorded run ended with status
//   - signals: the values applied to a board output channel, in order
//
// # Determinism
//
// Run IDs come from testutil.FixedRunIDs, the I/O scheduler is stepped by
// the harness against a fixed clock and the engine schedules in a single
// round-robin loop, so the recorded trace of a scenario is identical on
// every execution. RunWithGolden compares it with
// testdata/golden/<name>.golden.
package harness
