package iothread

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimestamp_Normalize(t *testing.T) {
	tests := []struct {
		name string
		in   Timestamp
		want Timestamp
	}{
		{"in range", Timestamp{Day: 3, Msecs: 100}, Timestamp{Day: 3, Msecs: 100}},
		{"exactly midnight", Timestamp{Day: 3, Msecs: MsecsPerDay}, Timestamp{Day: 4, Msecs: 0}},
		{"past midnight", Timestamp{Day: 3, Msecs: MsecsPerDay + 250}, Timestamp{Day: 4, Msecs: 250}},
		{"several days", Timestamp{Day: 0, Msecs: 3*MsecsPerDay + 1}, Timestamp{Day: 3, Msecs: 1}},
		{"negative", Timestamp{Day: 3, Msecs: -1}, Timestamp{Day: 2, Msecs: MsecsPerDay - 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalize())
		})
	}
}

func TestTimestamp_RolloverEquivalence(t *testing.T) {
	for _, ms := range []int{0, 1, 999, 43_200_000, MsecsPerDay - 1} {
		late := Timestamp{Day: 7, Msecs: MsecsPerDay + ms}
		next := Timestamp{Day: 8, Msecs: ms}
		assert.Equal(t, 0, late.Compare(next), "msecs %d", ms)
		assert.Equal(t, next, late.Normalize())
	}
}

func TestTimestamp_AddAndCompare(t *testing.T) {
	ts := Timestamp{Day: 5, Msecs: MsecsPerDay - 20}

	later := ts.Add(50)

	assert.Equal(t, Timestamp{Day: 6, Msecs: 30}, later)
	assert.True(t, ts.Before(later))
	assert.False(t, later.Before(ts))
	assert.Equal(t, 1, later.Compare(ts))
	assert.Equal(t, 0, ts.Compare(ts))
}

func TestTimestampOf(t *testing.T) {
	tm := time.Date(1970, 1, 6, 0, 0, 0, 150*int(time.Millisecond), time.UTC)

	ts := TimestampOf(tm)

	assert.Equal(t, Timestamp{Day: 5, Msecs: 150}, ts)
	assert.True(t, ts.Time().Equal(tm))
	assert.Equal(t, "5+150ms", ts.String())
}
