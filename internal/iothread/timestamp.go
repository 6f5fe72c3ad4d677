package iothread

import (
	"fmt"
	"time"
)

// MsecsPerDay is the number of milliseconds in one day.
const MsecsPerDay = 86_400_000

// Timestamp is a point in time as a day number and a millisecond of that
// day.
type Timestamp struct {
	Day   int
	Msecs int
}

// Normalize folds Msecs into [0, MsecsPerDay), carrying whole days into Day.
func (t Timestamp) Normalize() Timestamp {
	days := t.Msecs / MsecsPerDay
	ms := t.Msecs % MsecsPerDay
	if ms < 0 {
		ms += MsecsPerDay
		days--
	}
	return Timestamp{Day: t.Day + days, Msecs: ms}
}

// Add returns t shifted by ms milliseconds, normalised.
func (t Timestamp) Add(ms int) Timestamp {
	return Timestamp{Day: t.Day, Msecs: t.Msecs + ms}.Normalize()
}

// Compare returns -1, 0 or +1. Both sides are normalised first.
func (t Timestamp) Compare(o Timestamp) int {
	a, b := t.Normalize(), o.Normalize()
	switch {
	case a.Day < b.Day, a.Day == b.Day && a.Msecs < b.Msecs:
		return -1
	case a == b:
		return 0
	default:
		return 1
	}
}

// Before reports whether t is strictly earlier than o.
func (t Timestamp) Before(o Timestamp) bool { return t.Compare(o) < 0 }

// Time converts t to a UTC time.
func (t Timestamp) Time() time.Time {
	n := t.Normalize()
	return time.Unix(0, 0).UTC().AddDate(0, 0, n.Day).Add(time.Duration(n.Msecs) * time.Millisecond)
}

func (t Timestamp) String() string {
	n := t.Normalize()
	return fmt.Sprintf("%d+%dms", n.Day, n.Msecs)
}

// TimestampOf converts a wall-clock time.
func TimestampOf(tm time.Time) Timestamp {
	ms := tm.UTC().UnixMilli()
	return Timestamp{Msecs: int(ms)}.Normalize()
}
