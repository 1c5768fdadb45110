// Package streak maintains consecutive-study-day counters.
package streak

import (
	"time"

	"github.com/conorfennell/studyhash/internal/domain"
	"github.com/conorfennell/studyhash/internal/localday"
)

// Summary is the streak view returned to callers.
type Summary struct {
	Current int `json:"current_streak"`
	Longest int `json:"longest_streak"`
}

// Summarize returns the counters of s.
func Summarize(s domain.Streak) Summary {
	return Summary{Current: s.Current, Longest: s.Longest}
}

// Record applies a qualifying study action at now, seen from a zone
// offsetMinutes east of UTC. Repeated calls on the same local day leave the
// counters unchanged.
func Record(s domain.Streak, now time.Time, offsetMinutes int) domain.Streak {
	today := localday.Start(now, offsetMinutes)
	yesterday := localday.Previous(today)

	switch {
	case s.LastStudiedDate != nil && s.LastStudiedDate.Equal(today):
		return s
	case s.LastStudiedDate != nil && s.LastStudiedDate.Equal(yesterday):
		s.Current++
	default:
		s.Current = 1
	}
	s.Longest = max(s.Longest, s.Current)
	s.LastStudiedDate = &today
	s.LastOffsetMinutes = offsetMinutes
	return s
}

// Expire resets the current streak when the user missed the whole of
// yesterday, judged with the last offset the user studied from. It reports
// whether s changed. Longest is never touched.
func Expire(s domain.Streak, now time.Time) (domain.Streak, bool) {
	if s.Current <= 0 {
		return s, false
	}
	yesterday := localday.Previous(localday.Start(now, s.LastOffsetMinutes))
	if s.LastStudiedDate != nil && !s.LastStudiedDate.Before(yesterday) {
		return s, false
	}
	s.Current = 0
	return s, true
}
