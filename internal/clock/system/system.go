// Package system provides a real clock implementation.
package system

import "time"

// Clock reads wall time in UTC.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current time in UTC.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}

// NowParts returns the current UTC time split by Parts.
func (c Clock) NowParts() (time.Time, int) {
	return Parts(c.Now())
}

// Parts splits t into a UTC time truncated to the whole second and the
// millisecond remainder (0-999).
func Parts(t time.Time) (time.Time, int) {
	t = t.UTC()
	return t.Truncate(time.Second), t.Nanosecond() / int(time.Millisecond)
}
