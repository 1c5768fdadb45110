package analytics

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/conorfennell/studyhash/internal/domain"
	"github.com/conorfennell/studyhash/internal/sm2"
)

var now = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func daysAgo(n int) time.Time {
	return now.Add(-time.Duration(n) * 24 * time.Hour)
}

func TestStreakLevel(t *testing.T) {
	consecutive := func(n int) []time.Time {
		var out []time.Time
		for i := 0; i < n; i++ {
			out = append(out, daysAgo(i), daysAgo(i).Add(-time.Hour))
		}
		return out
	}

	testCases := []struct {
		name     string
		activity []time.Time
		streak   int
		level    Level
	}{
		{"no activity", nil, 0, LevelLow},
		{"three days", consecutive(3), 3, LevelLow},
		{"seven days", consecutive(7), 7, LevelMedium},
		{"ten days", consecutive(10), 10, LevelHigh},
		{"gap breaks the run", append(consecutive(2), daysAgo(3), daysAgo(4)), 2, LevelLow},
		{"nothing today", []time.Time{daysAgo(1), daysAgo(2)}, 0, LevelLow},
		{"outside window ignored", []time.Time{daysAgo(61)}, 0, LevelLow},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := StreakLevel(tc.activity, now, 0)
			if got.StreakDays != tc.streak || got.Level != tc.level {
				t.Errorf("Expected %d days (%s), got %d days (%s)", tc.streak, tc.level, got.StreakDays, got.Level)
			}
		})
	}
}

func TestStreakLevelLongRunCapsAtWindow(t *testing.T) {
	var activity []time.Time
	for i := 0; i < 90; i++ {
		activity = append(activity, daysAgo(i))
	}
	got := StreakLevel(activity, now, 0)
	if got.StreakDays != ActivityWindowDays {
		t.Errorf("Expected streak capped at %d, got %d", ActivityWindowDays, got.StreakDays)
	}
	if got.ActiveDays != ActivityWindowDays {
		t.Errorf("Expected %d active days, got %d", ActivityWindowDays, got.ActiveDays)
	}
}

func TestStreakLevelUsesOffset(t *testing.T) {
	// 22:00 UTC yesterday is 05:00 today at UTC+07:00.
	activity := []time.Time{time.Date(2025, 6, 14, 22, 0, 0, 0, time.UTC)}
	if got := StreakLevel(activity, now, 420); got.StreakDays != 1 {
		t.Errorf("Expected activity to fall on today at UTC+07:00, got %d", got.StreakDays)
	}
	if got := StreakLevel(activity, now, 0); got.StreakDays != 0 {
		t.Errorf("Expected activity to fall on yesterday at UTC, got %d", got.StreakDays)
	}
}

func reviewCard(reps int, ease float64, next time.Time) domain.Card {
	return domain.Card{
		ID:    uuid.New(),
		Front: "front",
		State: sm2.State{EaseFactor: ease, Repetitions: reps, NextReviewAt: next},
	}
}

func events(card uuid.UUID, ratings []sm2.Rating, at time.Time) []domain.ReviewEvent {
	out := make([]domain.ReviewEvent, 0, len(ratings))
	for _, r := range ratings {
		out = append(out, domain.ReviewEvent{ID: uuid.New(), CardID: card, Rating: r, ReviewedAt: at})
	}
	return out
}

func TestForecast(t *testing.T) {
	future := now.Add(48 * time.Hour)
	cards := []domain.Card{
		reviewCard(0, 2.5, now),    // new
		reviewCard(2, 2.5, future), // learning
		reviewCard(4, 2.5, now),    // settled but due
		reviewCard(5, 2.5, future), // settled
	}

	t.Run("no reviews in window gives no prediction", func(t *testing.T) {
		old := events(cards[0].ID, []sm2.Rating{sm2.Easy, sm2.Easy}, daysAgo(8))
		got := Forecast(cards, old, now, 0)
		if got.PredictedReadyDate != nil {
			t.Errorf("Expected no prediction, got %v", got.PredictedReadyDate)
		}
		if got.CardsRemaining != 3 {
			t.Errorf("Expected 3 remaining cards, got %d", got.CardsRemaining)
		}
	})

	t.Run("prediction rounds days up", func(t *testing.T) {
		// 2 reviews over 7 days; 3 remaining cards -> ceil(3 / (2/7)) = 11 days.
		recent := events(cards[1].ID, []sm2.Rating{sm2.Hard, sm2.Easy}, daysAgo(2))
		got := Forecast(cards, recent, now, 0)
		if got.PredictedReadyDate == nil {
			t.Fatal("Expected a prediction")
		}
		if want := now.Add(11 * 24 * time.Hour); !got.PredictedReadyDate.Equal(want) {
			t.Errorf("Expected ready at %v, got %v", want, *got.PredictedReadyDate)
		}
		if math.Abs(got.AvgDailyReviews-2.0/7) > 1e-9 {
			t.Errorf("Expected avg %.4f, got %.4f", 2.0/7, got.AvgDailyReviews)
		}
	})

	t.Run("nothing remaining is ready now", func(t *testing.T) {
		settled := []domain.Card{reviewCard(5, 2.5, future)}
		got := Forecast(settled, events(settled[0].ID, []sm2.Rating{sm2.Easy}, now), now, 0)
		if got.PredictedReadyDate == nil || !got.PredictedReadyDate.Equal(now) {
			t.Errorf("Expected ready now, got %v", got.PredictedReadyDate)
		}
	})
}

func TestWeakTopics(t *testing.T) {
	weak := reviewCard(1, 1.3, now)
	weak.Front = "What is the   powerhouse\nof the cell?"
	strong := reviewCard(4, 2.5, now)

	evs := append(events(weak.ID, []sm2.Rating{sm2.Hard, sm2.Hard}, daysAgo(1)),
		events(strong.ID, []sm2.Rating{sm2.Easy, sm2.Medium}, daysAgo(1))...)
	// Hard ratings outside the window must not count.
	evs = append(evs, events(strong.ID, []sm2.Rating{sm2.Hard, sm2.Hard, sm2.Hard}, daysAgo(31))...)

	got := WeakTopics([]domain.Card{strong, weak}, evs, now, 0)
	if len(got) != 2 {
		t.Fatalf("Expected 2 topics, got %d", len(got))
	}
	if got[0].CardID != weak.ID {
		t.Errorf("Expected the 1.3-ease all-hard card first, got %+v", got[0])
	}
	if want := 1/1.3 + 1.0; math.Abs(got[0].Score-want) > 1e-9 {
		t.Errorf("Expected score %.4f, got %.4f", want, got[0].Score)
	}
	if got[1].HardRate != 0 || got[1].Reviews != 2 {
		t.Errorf("Expected strong card with 2 in-window reviews and no hard rate, got %+v", got[1])
	}
	if got[0].Excerpt != "What is the powerhouse of the cell?" {
		t.Errorf("Unexpected excerpt %q", got[0].Excerpt)
	}
}

func TestWeakTopicsCapAndOrder(t *testing.T) {
	var cards []domain.Card
	for i := 0; i < 9; i++ {
		cards = append(cards, reviewCard(1, 1.3+float64(i)*0.15, now))
	}
	cards = append(cards, reviewCard(0, 0, now)) // never reviewed, default ease

	got := WeakTopics(cards, nil, now, 0)
	if len(got) != MaxWeakTopics {
		t.Fatalf("Expected %d topics, got %d", MaxWeakTopics, len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Errorf("Topics not sorted by descending score at %d: %.3f > %.3f", i, got[i].Score, got[i-1].Score)
		}
	}
	if math.Abs(got[0].Score-1/1.3) > 1e-9 {
		t.Errorf("Expected top score 1/1.3 without reviews, got %.4f", got[0].Score)
	}
}

func TestExcerpt(t *testing.T) {
	if got := Excerpt("short", 10); got != "short" {
		t.Errorf("Excerpt(short) = %q", got)
	}
	long := strings.Repeat("é", 80)
	got := Excerpt(long, 60)
	if want := strings.Repeat("é", 60) + "…"; got != want {
		t.Errorf("Excerpt(long) = %q, want %q", got, want)
	}
}
