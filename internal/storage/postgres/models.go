package postgres

import (
	"time"

	"github.com/google/uuid"

	"github.com/conorfennell/studyhash/internal/domain"
	"github.com/conorfennell/studyhash/internal/sm2"
)

type userRow struct {
	ID                  uuid.UUID  `gorm:"type:uuid;primaryKey"`
	CurrentStreak       int        `gorm:"not null;index"`
	LongestStreak       int        `gorm:"not null"`
	LastStudiedDate     *time.Time `gorm:"type:timestamptz"`
	LastTZOffsetMinutes int        `gorm:"column:last_tz_offset_minutes;not null"`
	CreatedAt           time.Time  `gorm:"type:timestamptz;not null"`
}

func (userRow) TableName() string { return "users" }

type deckRow struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserID        uuid.UUID  `gorm:"type:uuid;not null;index"`
	User          userRow    `gorm:"constraint:OnDelete:CASCADE;"`
	Name          string     `gorm:"type:text;not null"`
	CardCount     int        `gorm:"not null"`
	LastStudiedAt *time.Time `gorm:"type:timestamptz"`
	CreatedAt     time.Time  `gorm:"type:timestamptz;not null"`
}

func (deckRow) TableName() string { return "decks" }

type cardRow struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserID       uuid.UUID  `gorm:"type:uuid;not null;index:idx_cards_user_next,priority:1"`
	DeckID       uuid.UUID  `gorm:"type:uuid;not null;index:idx_cards_deck_next,priority:1"`
	Deck         deckRow    `gorm:"constraint:OnDelete:CASCADE;"`
	Front        string     `gorm:"type:text;not null"`
	Back         string     `gorm:"type:text;not null"`
	EaseFactor   float64    `gorm:"not null"`
	IntervalDays int        `gorm:"not null"`
	Repetitions  int        `gorm:"not null"`
	NextReviewAt time.Time  `gorm:"type:timestamptz;not null;index:idx_cards_user_next,priority:2;index:idx_cards_deck_next,priority:2"`
	LastReviewAt *time.Time `gorm:"type:timestamptz"`
	LastRating   *string    `gorm:"type:text"`
	CreatedAt    time.Time  `gorm:"type:timestamptz;not null"`
}

func (cardRow) TableName() string { return "cards" }

type reviewEventRow struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;index:idx_review_events_user_at,priority:1"`
	DeckID     uuid.UUID `gorm:"type:uuid;not null;index:idx_review_events_deck_at,priority:1"`
	CardID     uuid.UUID `gorm:"type:uuid;not null"`
	Rating     string    `gorm:"type:text;not null"`
	Quality    int       `gorm:"not null"`
	ReviewedAt time.Time `gorm:"type:timestamptz;not null;index:idx_review_events_user_at,priority:2;index:idx_review_events_deck_at,priority:2"`
}

func (reviewEventRow) TableName() string { return "review_events" }

type activityEventRow struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;index:idx_activity_events_user_at,priority:1"`
	Kind       string    `gorm:"type:text;not null"`
	OccurredAt time.Time `gorm:"type:timestamptz;not null;index:idx_activity_events_user_at,priority:2"`
}

func (activityEventRow) TableName() string { return "activity_events" }

type dailyQueueRow struct {
	UserID    uuid.UUID   `gorm:"type:uuid;primaryKey"`
	DayStart  time.Time   `gorm:"type:timestamptz;primaryKey"`
	CardIDs   []uuid.UUID `gorm:"serializer:json;type:jsonb;not null"`
	CreatedAt time.Time   `gorm:"type:timestamptz;not null"`
	UpdatedAt time.Time   `gorm:"type:timestamptz;not null"`
}

func (dailyQueueRow) TableName() string { return "daily_queues" }

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func toCardRow(c domain.Card) cardRow {
	row := cardRow{
		ID:           c.ID,
		UserID:       c.UserID,
		DeckID:       c.DeckID,
		Front:        c.Front,
		Back:         c.Back,
		EaseFactor:   c.EaseFactor,
		IntervalDays: c.Interval,
		Repetitions:  c.Repetitions,
		NextReviewAt: c.NextReviewAt.UTC(),
		LastReviewAt: utcPtr(c.LastReviewAt),
		CreatedAt:    c.CreatedAt.UTC(),
	}
	if c.LastRating != nil {
		r := string(*c.LastRating)
		row.LastRating = &r
	}
	return row
}

func (row cardRow) card() domain.Card {
	c := domain.Card{
		ID:     row.ID,
		UserID: row.UserID,
		DeckID: row.DeckID,
		Front:  row.Front,
		Back:   row.Back,
		State: sm2.State{
			EaseFactor:   row.EaseFactor,
			Interval:     row.IntervalDays,
			Repetitions:  row.Repetitions,
			NextReviewAt: row.NextReviewAt.UTC(),
			LastReviewAt: utcPtr(row.LastReviewAt),
		},
		CreatedAt: row.CreatedAt.UTC(),
	}
	if row.LastRating != nil {
		r := sm2.Rating(*row.LastRating)
		c.LastRating = &r
	}
	return c
}

func (row deckRow) deck() domain.Deck {
	return domain.Deck{
		ID:            row.ID,
		UserID:        row.UserID,
		Name:          row.Name,
		CardCount:     row.CardCount,
		LastStudiedAt: utcPtr(row.LastStudiedAt),
		CreatedAt:     row.CreatedAt.UTC(),
	}
}

func (row userRow) streak() domain.Streak {
	return domain.Streak{
		UserID:            row.ID,
		Current:           row.CurrentStreak,
		Longest:           row.LongestStreak,
		LastStudiedDate:   utcPtr(row.LastStudiedDate),
		LastOffsetMinutes: row.LastTZOffsetMinutes,
	}
}
