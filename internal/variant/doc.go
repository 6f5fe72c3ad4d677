// Package variant provides the value type exchanged between operation sockets.
//
// A Variant is a closed tagged union: every payload type in this package
// implements the sealed Variant interface and nothing outside it can. The
// kind tag is fixed by the Go type, so a tag can never disagree with its
// payload.
//
// This package imports nothing internal. socket, engine, store and the CLI
// all build on it.
//
// Key constraints:
//   - nil and Invalid{} are the absent value; IsValid reports false for both
//   - Matrix data always matches its element kind and dimensions
//   - Control markers (StartDelay, EndDelay, Stop) are accepted by every KindSet
//   - MarshalCanonical is the only encoding used for digests
package variant
