package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/conorfennell/studyhash/internal/sm2"
)

// Card is one flashcard and its memory state.
type Card struct {
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"user_id"`
	DeckID uuid.UUID `json:"deck_id"`
	Front  string    `json:"front"`
	Back   string    `json:"back"`
	sm2.State
	LastRating *sm2.Rating `json:"last_rating,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

// NewCard returns a card that is due immediately.
func NewCard(userID, deckID uuid.UUID, front, back string, now time.Time) Card {
	return Card{
		ID:        uuid.New(),
		UserID:    userID,
		DeckID:    deckID,
		Front:     front,
		Back:      back,
		State:     sm2.NewState(now),
		CreatedAt: now,
	}
}

// Deck is a named collection of cards owned by one user.
type Deck struct {
	ID            uuid.UUID  `json:"id"`
	UserID        uuid.UUID  `json:"user_id"`
	Name          string     `json:"name"`
	CardCount     int        `json:"card_count"`
	LastStudiedAt *time.Time `json:"last_studied_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// ReviewEvent records one completed review. It is never modified.
type ReviewEvent struct {
	ID         uuid.UUID   `json:"id"`
	UserID     uuid.UUID   `json:"user_id"`
	DeckID     uuid.UUID   `json:"deck_id"`
	CardID     uuid.UUID   `json:"card_id"`
	Rating     sm2.Rating  `json:"rating"`
	Quality    sm2.Quality `json:"quality"`
	ReviewedAt time.Time   `json:"reviewed_at"`
}

// ActivityKind names a study action other than a card review.
type ActivityKind string

const (
	QuizCompleted    ActivityKind = "quiz_completed"
	RecordingCreated ActivityKind = "recording_created"
)

// IsValid reports whether k is a known activity kind.
func (k ActivityKind) IsValid() bool {
	return k == QuizCompleted || k == RecordingCreated
}

// ActivityEvent records a quiz completion or recording creation.
type ActivityEvent struct {
	ID         uuid.UUID    `json:"id"`
	UserID     uuid.UUID    `json:"user_id"`
	Kind       ActivityKind `json:"kind"`
	OccurredAt time.Time    `json:"occurred_at"`
}

// DailyQueue is a cached snapshot of a user's due cards for one day.
type DailyQueue struct {
	UserID    uuid.UUID   `json:"user_id"`
	DayStart  time.Time   `json:"day_start"`
	CardIDs   []uuid.UUID `json:"card_ids"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Streak is a user's consecutive-study-day counter.
type Streak struct {
	UserID  uuid.UUID `json:"user_id"`
	Current int       `json:"current_streak"`
	Longest int       `json:"longest_streak"`
	// LastStudiedDate is a local day start, nil before any study.
	LastStudiedDate *time.Time `json:"last_studied_date,omitempty"`
	// LastOffsetMinutes is the offset of the last study action, used by
	// jobs that run without a request offset.
	LastOffsetMinutes int `json:"last_timezone_offset_minutes"`
}
