// Package study wires the scheduling, streak and analytics core to a Store.
package study

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/conorfennell/studyhash/internal/analytics"
	"github.com/conorfennell/studyhash/internal/deckstats"
	"github.com/conorfennell/studyhash/internal/domain"
	"github.com/conorfennell/studyhash/internal/localday"
	"github.com/conorfennell/studyhash/internal/sm2"
	"github.com/conorfennell/studyhash/internal/streak"
)

// ErrInvalidInput marks requests rejected before touching the store.
var ErrInvalidInput = errors.New("invalid input")

// Service holds the dependencies of every study operation.
type Service struct {
	store     Store
	scheduler *sm2.Scheduler
	location  *time.Location
	log       *slog.Logger
}

// NewService creates a service. A nil location means UTC and a nil logger
// means slog.Default().
func NewService(store Store, scheduler *sm2.Scheduler, location *time.Location, log *slog.Logger) *Service {
	if location == nil {
		location = time.UTC
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, scheduler: scheduler, location: location, log: log}
}

// Location is the server location used for daily queues.
func (s *Service) Location() *time.Location {
	return s.location
}

// CreateUser registers a new user with an empty streak.
func (s *Service) CreateUser(ctx context.Context, now time.Time) (uuid.UUID, error) {
	id := uuid.New()
	if err := s.store.CreateUser(ctx, id, now); err != nil {
		return uuid.Nil, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

// CardContent is the text of a card to be created.
type CardContent struct {
	Front string
	Back  string
}

// CreateDeck creates a deck and a fresh card per content entry in one batch.
func (s *Service) CreateDeck(ctx context.Context, userID uuid.UUID, name string, contents []CardContent, now time.Time) (domain.Deck, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Deck{}, fmt.Errorf("create deck: %w: empty name", ErrInvalidInput)
	}
	if _, err := s.store.GetStreak(ctx, userID); err != nil {
		return domain.Deck{}, fmt.Errorf("create deck: %w", err)
	}

	deck := domain.Deck{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      name,
		CardCount: len(contents),
		CreatedAt: now,
	}
	cards := make([]domain.Card, 0, len(contents))
	for _, c := range contents {
		cards = append(cards, domain.NewCard(userID, deck.ID, c.Front, c.Back, now))
	}
	if err := s.store.CreateDeck(ctx, deck, cards); err != nil {
		return domain.Deck{}, fmt.Errorf("create deck: %w", err)
	}
	s.log.Info("deck created", "deck_id", deck.ID, "user_id", userID, "cards", len(cards))
	return deck, nil
}

// ReviewResult is the outcome of one committed review.
type ReviewResult struct {
	Card    domain.Card        `json:"card"`
	Event   domain.ReviewEvent `json:"event"`
	Streak  streak.Summary     `json:"streak"`
	Quality sm2.Quality        `json:"quality"`
}

// Review grades a card for userID and commits the new card state, the
// review event, the deck's last study time and the streak together.
func (s *Service) Review(ctx context.Context, userID, cardID uuid.UUID, rating sm2.Rating, now time.Time, offsetMinutes int) (ReviewResult, error) {
	if !rating.IsValid() {
		return ReviewResult{}, fmt.Errorf("review: %w: %q", sm2.ErrInvalidRating, rating)
	}
	if err := localday.CheckOffset(offsetMinutes); err != nil {
		return ReviewResult{}, fmt.Errorf("review: %w", err)
	}

	var res ReviewResult
	err := s.store.ApplyReview(ctx, cardID, func(snap domain.ReviewSnapshot) (domain.ReviewCommit, error) {
		card := snap.Card
		if card.UserID != userID {
			return domain.ReviewCommit{}, domain.ErrNotOwned
		}
		next, q, err := s.scheduler.ScheduleReview(rating, card.State, now)
		if err != nil {
			return domain.ReviewCommit{}, err
		}
		card.State = next
		card.LastRating = &rating

		ev := domain.ReviewEvent{
			ID:         uuid.New(),
			UserID:     userID,
			DeckID:     card.DeckID,
			CardID:     card.ID,
			Rating:     rating,
			Quality:    q,
			ReviewedAt: now,
		}
		st := streak.Record(snap.Streak, now, offsetMinutes)

		res = ReviewResult{Card: card, Event: ev, Streak: streak.Summarize(st), Quality: q}
		return domain.ReviewCommit{Card: card, Event: ev, Streak: st, DeckStudiedAt: now}, nil
	})
	if err != nil {
		return ReviewResult{}, fmt.Errorf("review card %s: %w", cardID, err)
	}
	return res, nil
}

// RecordStudyActivity counts a study action at now toward the user's streak.
func (s *Service) RecordStudyActivity(ctx context.Context, userID uuid.UUID, now time.Time, offsetMinutes int) (streak.Summary, error) {
	if err := localday.CheckOffset(offsetMinutes); err != nil {
		return streak.Summary{}, fmt.Errorf("record study activity: %w", err)
	}

	var sum streak.Summary
	err := s.store.UpdateStreak(ctx, userID, func(cur domain.Streak) (domain.Streak, error) {
		next := streak.Record(cur, now, offsetMinutes)
		sum = streak.Summarize(next)
		return next, nil
	})
	if err != nil {
		return streak.Summary{}, fmt.Errorf("record study activity: %w", err)
	}
	return sum, nil
}

// RecordActivity appends a quiz or recording event and counts it toward
// the user's streak.
func (s *Service) RecordActivity(ctx context.Context, userID uuid.UUID, kind domain.ActivityKind, now time.Time, offsetMinutes int) (streak.Summary, error) {
	if !kind.IsValid() {
		return streak.Summary{}, fmt.Errorf("record activity: %w: unknown kind %q", ErrInvalidInput, kind)
	}
	if err := localday.CheckOffset(offsetMinutes); err != nil {
		return streak.Summary{}, fmt.Errorf("record activity: %w", err)
	}
	if _, err := s.store.GetStreak(ctx, userID); err != nil {
		return streak.Summary{}, fmt.Errorf("record activity: %w", err)
	}

	ev := domain.ActivityEvent{ID: uuid.New(), UserID: userID, Kind: kind, OccurredAt: now}
	if err := s.store.AppendActivity(ctx, ev); err != nil {
		return streak.Summary{}, fmt.Errorf("record activity: %w", err)
	}
	return s.RecordStudyActivity(ctx, userID, now, offsetMinutes)
}

// Streak returns the user's current and longest streak.
func (s *Service) Streak(ctx context.Context, userID uuid.UUID) (streak.Summary, error) {
	st, err := s.store.GetStreak(ctx, userID)
	if err != nil {
		return streak.Summary{}, fmt.Errorf("get streak: %w", err)
	}
	return streak.Summarize(st), nil
}

// DeckStats computes the summary of a deck at now.
func (s *Service) DeckStats(ctx context.Context, deckID uuid.UUID, now time.Time, offsetMinutes int) (deckstats.Stats, error) {
	if err := localday.CheckOffset(offsetMinutes); err != nil {
		return deckstats.Stats{}, fmt.Errorf("deck stats: %w", err)
	}
	deck, cards, err := s.loadDeck(ctx, deckID)
	if err != nil {
		return deckstats.Stats{}, fmt.Errorf("deck stats: %w", err)
	}
	return deckstats.Compute(deck, cards, now, offsetMinutes), nil
}

// BurnoutLevel classifies the user's recent run of active days.
func (s *Service) BurnoutLevel(ctx context.Context, userID uuid.UUID, now time.Time, offsetMinutes int) (analytics.Burnout, error) {
	if err := localday.CheckOffset(offsetMinutes); err != nil {
		return analytics.Burnout{}, fmt.Errorf("burnout level: %w", err)
	}
	if _, err := s.store.GetStreak(ctx, userID); err != nil {
		return analytics.Burnout{}, fmt.Errorf("burnout level: %w", err)
	}
	since := localday.WindowStart(now, offsetMinutes, analytics.ActivityWindowDays)
	times, err := s.store.ActivityTimes(ctx, userID, since)
	if err != nil {
		return analytics.Burnout{}, fmt.Errorf("burnout level: %w", err)
	}
	return analytics.StreakLevel(times, now, offsetMinutes), nil
}

// ReadinessForecast predicts when the deck's unsettled cards will be done.
func (s *Service) ReadinessForecast(ctx context.Context, deckID uuid.UUID, now time.Time, offsetMinutes int) (analytics.Readiness, error) {
	if err := localday.CheckOffset(offsetMinutes); err != nil {
		return analytics.Readiness{}, fmt.Errorf("readiness forecast: %w", err)
	}
	_, cards, err := s.loadDeck(ctx, deckID)
	if err != nil {
		return analytics.Readiness{}, fmt.Errorf("readiness forecast: %w", err)
	}
	since := localday.WindowStart(now, offsetMinutes, analytics.ThroughputWindowDays)
	events, err := s.store.ReviewEventsByDeck(ctx, deckID, since)
	if err != nil {
		return analytics.Readiness{}, fmt.Errorf("readiness forecast: %w", err)
	}
	return analytics.Forecast(cards, events, now, offsetMinutes), nil
}

// WeakTopics ranks the deck's weakest cards.
func (s *Service) WeakTopics(ctx context.Context, deckID uuid.UUID, now time.Time, offsetMinutes int) ([]analytics.WeakTopic, error) {
	if err := localday.CheckOffset(offsetMinutes); err != nil {
		return nil, fmt.Errorf("weak topics: %w", err)
	}
	_, cards, err := s.loadDeck(ctx, deckID)
	if err != nil {
		return nil, fmt.Errorf("weak topics: %w", err)
	}
	since := localday.WindowStart(now, offsetMinutes, analytics.WeakWindowDays)
	events, err := s.store.ReviewEventsByDeck(ctx, deckID, since)
	if err != nil {
		return nil, fmt.Errorf("weak topics: %w", err)
	}
	return analytics.WeakTopics(cards, events, now, offsetMinutes), nil
}

func (s *Service) loadDeck(ctx context.Context, deckID uuid.UUID) (domain.Deck, []domain.Card, error) {
	deck, err := s.store.GetDeck(ctx, deckID)
	if err != nil {
		return domain.Deck{}, nil, err
	}
	cards, err := s.store.CardsByDeck(ctx, deckID)
	if err != nil {
		return domain.Deck{}, nil, err
	}
	return deck, cards, nil
}
