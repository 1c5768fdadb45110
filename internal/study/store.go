package study

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/conorfennell/studyhash/internal/domain"
)

// Store is the durable state the study service needs. Implementations must
// apply ApplyReview and UpdateStreak atomically and return errors wrapping
// domain.ErrNotFound for missing records.
type Store interface {
	CreateUser(ctx context.Context, id uuid.UUID, now time.Time) error
	// CreateDeck inserts a deck and its cards as one batch.
	CreateDeck(ctx context.Context, deck domain.Deck, cards []domain.Card) error

	GetCard(ctx context.Context, id uuid.UUID) (domain.Card, error)
	GetDeck(ctx context.Context, id uuid.UUID) (domain.Deck, error)
	GetStreak(ctx context.Context, userID uuid.UUID) (domain.Streak, error)

	CardsByDeck(ctx context.Context, deckID uuid.UUID) ([]domain.Card, error)
	// CardsDueBy returns a user's cards with a next review at or before t.
	CardsDueBy(ctx context.Context, userID uuid.UUID, t time.Time) ([]domain.Card, error)

	// ApplyReview loads a card and its owner's streak, hands them to fn and
	// writes the returned commit, all in one transaction.
	ApplyReview(ctx context.Context, cardID uuid.UUID, fn func(domain.ReviewSnapshot) (domain.ReviewCommit, error)) error
	// UpdateStreak is a transactional read-modify-write of a user's streak.
	UpdateStreak(ctx context.Context, userID uuid.UUID, fn func(domain.Streak) (domain.Streak, error)) error

	AppendActivity(ctx context.Context, ev domain.ActivityEvent) error
	ReviewEventsByDeck(ctx context.Context, deckID uuid.UUID, since time.Time) ([]domain.ReviewEvent, error)
	// ActivityTimes returns the times of a user's reviews and other activity
	// events at or after since.
	ActivityTimes(ctx context.Context, userID uuid.UUID, since time.Time) ([]time.Time, error)

	GetDailyQueue(ctx context.Context, userID uuid.UUID, dayStart time.Time) (domain.DailyQueue, error)
	// UpsertDailyQueue replaces the card ids and updated time of an existing
	// snapshot, or inserts q as given.
	UpsertDailyQueue(ctx context.Context, q domain.DailyQueue) error

	// ListUserIDs pages through users ordered by id, starting after after.
	ListUserIDs(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error)
	// ListActiveStreaks pages through streaks with a positive current count.
	ListActiveStreaks(ctx context.Context, after uuid.UUID, limit int) ([]domain.Streak, error)
}
