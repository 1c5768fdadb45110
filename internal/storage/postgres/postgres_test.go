package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/conorfennell/studyhash/internal/domain"
	"github.com/conorfennell/studyhash/internal/sm2"
)

// openTestDB connects to the database named by STUDYHASH_TEST_POSTGRES_DSN
// and skips the test when it is unset.
func openTestDB(t *testing.T) *DB {
	t.Helper()
	dsn := os.Getenv("STUDYHASH_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("STUDYHASH_TEST_POSTGRES_DSN not set")
	}
	db, err := Open(context.Background(), dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

var base = time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)

func TestCardRowRoundTrip(t *testing.T) {
	rating := sm2.Medium
	last := base.Add(-time.Hour)
	c := domain.NewCard(uuid.New(), uuid.New(), "front", "back", base)
	c.LastRating = &rating
	c.LastReviewAt = &last
	c.Interval = 6

	got := toCardRow(c).card()
	if got.ID != c.ID || got.Interval != 6 || got.Front != "front" {
		t.Errorf("Expected %+v, but got %+v", c, got)
	}
	if got.LastRating == nil || *got.LastRating != sm2.Medium {
		t.Errorf("Expected last rating medium, but got %v", got.LastRating)
	}
	if got.LastReviewAt == nil || !got.LastReviewAt.Equal(last) {
		t.Errorf("Expected last review %v, but got %v", last, got.LastReviewAt)
	}
}

func TestStoreRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	userID := uuid.New()
	if err := db.CreateUser(ctx, userID, base); err != nil {
		t.Fatalf("create user: %v", err)
	}
	deck := domain.Deck{ID: uuid.New(), UserID: userID, Name: "pg", CreatedAt: base}
	cards := []domain.Card{
		domain.NewCard(userID, deck.ID, "one", "1", base),
		domain.NewCard(userID, deck.ID, "two", "2", base.Add(48*time.Hour)),
	}
	if err := db.CreateDeck(ctx, deck, cards); err != nil {
		t.Fatalf("create deck: %v", err)
	}

	due, err := db.CardsDueBy(ctx, userID, base.Add(time.Hour))
	if err != nil {
		t.Fatalf("cards due by: %v", err)
	}
	if len(due) != 1 || due[0].ID != cards[0].ID {
		t.Errorf("Expected only the first card due, but got %d", len(due))
	}

	day := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	err = db.ApplyReview(ctx, cards[0].ID, func(snap domain.ReviewSnapshot) (domain.ReviewCommit, error) {
		c := snap.Card
		c.State = sm2.Next(sm2.CorrectHesitant, c.State, base)
		r := sm2.Medium
		c.LastRating = &r
		return domain.ReviewCommit{
			Card:          c,
			Event:         domain.ReviewEvent{ID: uuid.New(), UserID: userID, DeckID: deck.ID, CardID: c.ID, Rating: r, Quality: sm2.CorrectHesitant, ReviewedAt: base},
			Streak:        domain.Streak{Current: 1, Longest: 1, LastStudiedDate: &day},
			DeckStudiedAt: base,
		}, nil
	})
	if err != nil {
		t.Fatalf("apply review: %v", err)
	}

	got, err := db.GetCard(ctx, cards[0].ID)
	if err != nil {
		t.Fatalf("get card: %v", err)
	}
	if got.Repetitions != 1 || !got.NextReviewAt.Equal(base.Add(24*time.Hour)) {
		t.Errorf("Expected one repetition due in a day, but got %+v", got.State)
	}
	st, _ := db.GetStreak(ctx, userID)
	if st.Current != 1 || st.LastStudiedDate == nil || !st.LastStudiedDate.Equal(day) {
		t.Errorf("Expected streak 1 on %v, but got %+v", day, st)
	}
	times, err := db.ActivityTimes(ctx, userID, day)
	if err != nil || len(times) != 1 {
		t.Errorf("Expected 1 activity time, but got %d (%v)", len(times), err)
	}

	q := domain.DailyQueue{UserID: userID, DayStart: day, CardIDs: []uuid.UUID{cards[0].ID}, CreatedAt: base, UpdatedAt: base}
	if err := db.UpsertDailyQueue(ctx, q); err != nil {
		t.Fatalf("upsert queue: %v", err)
	}
	q.CardIDs = nil
	q.CreatedAt = base.Add(time.Hour)
	q.UpdatedAt = base.Add(time.Hour)
	if err := db.UpsertDailyQueue(ctx, q); err != nil {
		t.Fatalf("upsert queue again: %v", err)
	}
	stored, err := db.GetDailyQueue(ctx, userID, day)
	if err != nil {
		t.Fatalf("get queue: %v", err)
	}
	if len(stored.CardIDs) != 0 || !stored.CreatedAt.Equal(base) || !stored.UpdatedAt.Equal(base.Add(time.Hour)) {
		t.Errorf("Expected an emptied queue keeping its creation time, but got %+v", stored)
	}

	if _, err := db.GetDeck(ctx, uuid.New()); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, but got %v", err)
	}
}
