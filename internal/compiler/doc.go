// Package compiler turns CUE pipeline definitions into engines.
//
// A definition lists named operations by registered type and wires their
// sockets with connection expressions:
//
//	pipeline: binarize: {
//		operations: {
//			src:  {type: "value_source", properties: value: [[1, 2], [3, 4]]}
//			thr:  {type: "threshold", properties: absoluteThreshold: 2.5}
//			sink: type: "collector"
//		}
//		connections: [
//			"src.output -> thr.image",
//			"thr.image -> sink.input",
//		]
//	}
//
// Compile reads one pipeline value, Validate reports structural problems
// against a registry, and Build creates and connects the operations.
package compiler
