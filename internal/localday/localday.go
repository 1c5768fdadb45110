// Package localday buckets absolute timestamps into local calendar days.
//
// Every day boundary used by streaks, queues and trailing windows is derived
// here so that subsystems never disagree about which day an event falls on.
package localday

import (
	"errors"
	"fmt"
	"time"
)

// Day is the length of a local calendar day. Offsets are fixed, so there is
// no DST-shortened day.
const Day = 24 * time.Hour

// Bounds for a UTC offset in minutes (UTC-12:00 to UTC+14:00).
const (
	MinOffset = -720
	MaxOffset = 840
)

// ErrInvalidOffset is returned for offsets outside [MinOffset, MaxOffset].
var ErrInvalidOffset = errors.New("localday: timezone offset out of range")

// Start returns the start of the local day containing t for a zone that is
// offsetMinutes east of UTC. The result is in UTC.
func Start(t time.Time, offsetMinutes int) time.Time {
	off := time.Duration(offsetMinutes) * time.Minute
	// Truncate works on absolute time since the zero time, which is a UTC
	// midnight, so a shifted UTC instant truncates to local midnight.
	return t.UTC().Add(off).Truncate(Day).Add(-off)
}

// End returns the last instant of the local day containing t.
func End(t time.Time, offsetMinutes int) time.Time {
	return Start(t, offsetMinutes).Add(Day - time.Nanosecond)
}

// Previous returns the start of the day before dayStart.
func Previous(dayStart time.Time) time.Time {
	return dayStart.Add(-Day)
}

// WindowStart returns the start of a trailing window of days local days that
// ends with (and includes) the day containing now.
func WindowStart(now time.Time, offsetMinutes, days int) time.Time {
	if days < 1 {
		days = 1
	}
	return Start(now, offsetMinutes).Add(-time.Duration(days-1) * Day)
}

// OffsetOf returns the offset in minutes east of UTC that loc uses at t.
func OffsetOf(t time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	_, secs := t.In(loc).Zone()
	return secs / 60
}

// ValidOffset reports whether offsetMinutes is a real-world UTC offset.
func ValidOffset(offsetMinutes int) bool {
	return offsetMinutes >= MinOffset && offsetMinutes <= MaxOffset
}

// CheckOffset returns ErrInvalidOffset when offsetMinutes is out of range.
func CheckOffset(offsetMinutes int) error {
	if !ValidOffset(offsetMinutes) {
		return fmt.Errorf("%w: %d", ErrInvalidOffset, offsetMinutes)
	}
	return nil
}
