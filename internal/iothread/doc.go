// Package iothread schedules physical output changes and polls physical
// inputs for every I/O driver of a process.
//
// A single Scheduler goroutine wakes on a fixed tick (10ms by default). Each
// tick it asks the drivers to check their polling inputs, then applies every
// waiting output signal whose timestamp has passed. One mutex guards the
// signal queue and the polling list.
//
// Drivers never reach the Scheduler directly. They hold a Handle obtained
// from Acquire, which exposes exactly SendSignal, AddPollingInput and
// RemovePollingInput. The goroutine starts with the first handle and exits
// when the last one is released.
//
// Timestamps are (day, millisecond-of-day) pairs counted from the Unix
// epoch in UTC; millisecond values past midnight roll into the next day.
package iothread
