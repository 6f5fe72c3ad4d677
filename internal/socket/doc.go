// Package socket implements the typed connection endpoints of operations.
//
// An Input has at most one connected Output (fan-in 1). An Output may feed
// any number of Inputs (fan-out N) and delivers every object synchronously,
// in connection order. A Proxy joins an Input half and an Output half so a
// compound operation can expose an internal socket as its own.
//
// Connection bookkeeping is always bidirectional: Input.ConnectOutput and
// Input.DisconnectOutput update both ends before returning, and listeners on
// the Output are told afterwards.
//
// Sockets are not safe for concurrent use. The engine only mutates topology
// while stopped and drives delivery from a single goroutine.
package socket
