// Package deckstats summarizes the learning stages of a deck's cards.
package deckstats

import (
	"time"

	"github.com/conorfennell/studyhash/internal/domain"
	"github.com/conorfennell/studyhash/internal/localday"
	"github.com/conorfennell/studyhash/internal/sm2"
)

// MatureInterval is the interval, in days, past which a card is mastered.
const MatureInterval = 21

// Stage is a card's learning stage, derived from its repetitions.
type Stage string

const (
	StageNew      Stage = "new"
	StageLearning Stage = "learning"
	StageReview   Stage = "review"
)

// StageOf classifies a card by its consecutive successful recalls.
func StageOf(c domain.Card) Stage {
	switch {
	case c.Repetitions <= 0:
		return StageNew
	case c.Repetitions <= 2:
		return StageLearning
	default:
		return StageReview
	}
}

// Mastered reports whether a card's interval has grown past MatureInterval.
// This is the only mastery rule in the module.
func Mastered(c domain.Card) bool {
	return c.Interval > MatureInterval
}

// Stats is a point-in-time summary of a deck.
type Stats struct {
	DeckID        string     `json:"deck_id"`
	Total         int        `json:"total"`
	New           int        `json:"new"`
	Learning      int        `json:"learning"`
	Review        int        `json:"review"`
	Mastered      int        `json:"mastered"`
	DueNow        int        `json:"due_now"`
	DueToday      int        `json:"due_today"`
	AverageEase   float64    `json:"average_ease"`
	LastStudiedAt *time.Time `json:"last_studied_at,omitempty"`
	ComputedAt    time.Time  `json:"computed_at"`
	OffsetMinutes int        `json:"tz_offset_minutes"`
}

// Compute summarizes cards of deck at now. "Due today" means due before the
// end of the local day in a zone offsetMinutes east of UTC, and excludes
// cards already due now.
func Compute(deck domain.Deck, cards []domain.Card, now time.Time, offsetMinutes int) Stats {
	st := Stats{
		DeckID:        deck.ID.String(),
		Total:         len(cards),
		LastStudiedAt: deck.LastStudiedAt,
		ComputedAt:    now,
		OffsetMinutes: offsetMinutes,
	}
	endOfDay := localday.End(now, offsetMinutes)

	var easeSum float64
	var reviewed int
	for _, c := range cards {
		switch StageOf(c) {
		case StageNew:
			st.New++
		case StageLearning:
			st.Learning++
		case StageReview:
			st.Review++
		}
		if Mastered(c) {
			st.Mastered++
		}

		switch {
		case c.DueBy(now):
			st.DueNow++
		case c.DueBy(endOfDay):
			st.DueToday++
		}

		if c.Reviewed() {
			easeSum += sm2.Normalize(c.State).EaseFactor
			reviewed++
		}
	}

	st.AverageEase = sm2.DefaultEaseFactor
	if reviewed > 0 {
		st.AverageEase = easeSum / float64(reviewed)
	}
	return st
}
