// Package sm2 implements the SM-2 spaced repetition scheduling algorithm.
//
// All functions are pure: they take the current scheduling state and return
// the next one. Persisting the result is the caller's job.
package sm2

import (
	"math"
	"time"
)

const (
	// DefaultEaseFactor is the ease of a card that was never reviewed.
	DefaultEaseFactor = 2.5
	// MinEaseFactor is the floor the ease factor never drops below.
	MinEaseFactor = 1.3
	// MaxInterval caps the interval, in days, at about a century.
	MaxInterval = 36500
)

// State holds the scheduling fields of a card.
type State struct {
	EaseFactor   float64    `json:"ease_factor"`
	Interval     int        `json:"interval"`    // days
	Repetitions  int        `json:"repetitions"` // consecutive successful recalls
	NextReviewAt time.Time  `json:"next_review_at"`
	LastReviewAt *time.Time `json:"last_review_at,omitempty"` // nil before first review
}

// NewState returns the state of a freshly created card, due immediately.
func NewState(now time.Time) State {
	return State{
		EaseFactor:   DefaultEaseFactor,
		NextReviewAt: now,
	}
}

// Reviewed reports whether the card has been reviewed at least once.
func (s State) Reviewed() bool {
	return s.LastReviewAt != nil
}

// DueBy reports whether the card is due at t. A card without a next review
// time is always due.
func (s State) DueBy(t time.Time) bool {
	return s.NextReviewAt.IsZero() || !s.NextReviewAt.After(t)
}

// Normalize repairs scheduling fields that violate the card invariants.
// A missing (zero, negative or non-finite) ease factor becomes the default.
func Normalize(s State) State {
	switch {
	case math.IsNaN(s.EaseFactor) || math.IsInf(s.EaseFactor, 0) || s.EaseFactor <= 0:
		s.EaseFactor = DefaultEaseFactor
	case s.EaseFactor < MinEaseFactor:
		s.EaseFactor = MinEaseFactor
	}
	if s.Interval < 0 {
		s.Interval = 0
	}
	if s.Interval > MaxInterval {
		s.Interval = MaxInterval
	}
	if s.Repetitions < 0 {
		s.Repetitions = 0
	}
	return s
}

// EaseDelta is the SM-2 ease adjustment for quality q.
func EaseDelta(q Quality) float64 {
	miss := float64(MaxQuality - q)
	return 0.1 - miss*(0.08+miss*0.02)
}

// Next applies one review graded q at now to the current state.
// Qualities outside 0-5 are clamped onto the scale.
func Next(q Quality, current State, now time.Time) State {
	q = min(max(q, Blackout), MaxQuality)
	s := Normalize(current)

	if q.Successful() {
		s.Repetitions++
		switch s.Repetitions {
		case 1:
			s.Interval = 1
		case 2:
			s.Interval = 6
		default:
			s.Interval = int(math.Min(math.Round(float64(s.Interval)*s.EaseFactor), MaxInterval))
		}
	} else {
		s.Repetitions = 0
		s.Interval = 1
	}

	// The ease update uses the pre-review ease and applies on both branches.
	s.EaseFactor = math.Max(MinEaseFactor, s.EaseFactor+EaseDelta(q))

	reviewedAt := now
	s.LastReviewAt = &reviewedAt
	s.NextReviewAt = now.AddDate(0, 0, s.Interval)
	return s
}
