package sm2

import (
	"math"
	"math/rand"
	"testing"
	"time"
)

var t0 = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func TestEaseDelta(t *testing.T) {
	testCases := []struct {
		q    Quality
		want float64
	}{
		{Perfect, 0.1},
		{CorrectHesitant, 0.0},
		{CorrectDifficult, -0.14},
		{IncorrectEasyRecall, -0.32},
		{Incorrect, -0.54},
		{Blackout, -0.8},
	}
	for _, tc := range testCases {
		if got := EaseDelta(tc.q); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("EaseDelta(%d) = %.4f, want %.4f", tc.q, got, tc.want)
		}
	}
}

func TestNextFirstReviews(t *testing.T) {
	s := NewState(t0)

	t.Run("first success yields interval 1", func(t *testing.T) {
		got := Next(Perfect, s, t0)
		if got.Repetitions != 1 || got.Interval != 1 {
			t.Errorf("Expected reps=1 interval=1, but got reps=%d interval=%d", got.Repetitions, got.Interval)
		}
		if !got.NextReviewAt.Equal(t0.Add(24 * time.Hour)) {
			t.Errorf("Expected next review a day later, but got %v", got.NextReviewAt)
		}
		if got.LastReviewAt == nil || !got.LastReviewAt.Equal(t0) {
			t.Errorf("Expected last review %v, but got %v", t0, got.LastReviewAt)
		}
	})

	t.Run("failure resets repetitions and interval", func(t *testing.T) {
		reviewed := State{EaseFactor: 2.5, Interval: 15, Repetitions: 4, NextReviewAt: t0}
		got := Next(Incorrect, reviewed, t0)
		if got.Repetitions != 0 || got.Interval != 1 {
			t.Errorf("Expected reps=0 interval=1, but got reps=%d interval=%d", got.Repetitions, got.Interval)
		}
		if math.Abs(got.EaseFactor-(2.5-0.54)) > 1e-9 {
			t.Errorf("Expected ease to drop on failure, but got %.4f", got.EaseFactor)
		}
	})

	t.Run("input state is not modified", func(t *testing.T) {
		in := State{EaseFactor: 2.0, Interval: 6, Repetitions: 2, NextReviewAt: t0}
		_ = Next(Perfect, in, t0)
		if in.Repetitions != 2 || in.Interval != 6 || in.LastReviewAt != nil {
			t.Errorf("Next mutated its input: %+v", in)
		}
	})
}

func TestThreeEasyReviews(t *testing.T) {
	s := NewState(t0)
	now := t0
	prevEase := s.EaseFactor
	var efAfterSecond float64
	for i := 1; i <= 3; i++ {
		s = Next(Perfect, s, now)
		if s.EaseFactor <= prevEase {
			t.Fatalf("review %d: ease %.2f did not increase from %.2f", i, s.EaseFactor, prevEase)
		}
		prevEase = s.EaseFactor
		if i == 2 {
			efAfterSecond = s.EaseFactor
			if s.Interval != 6 {
				t.Fatalf("second success interval = %d, want 6", s.Interval)
			}
		}
		now = s.NextReviewAt
	}
	if s.Repetitions != 3 {
		t.Errorf("Expected 3 repetitions, got %d", s.Repetitions)
	}
	// The third interval uses the ease as it stood after the second review.
	if want := int(math.Round(6 * efAfterSecond)); s.Interval != want {
		t.Errorf("Expected third interval %d, got %d", want, s.Interval)
	}
	if s.Interval != 16 {
		t.Errorf("Expected third interval 16 (6 * 2.7 rounded), got %d", s.Interval)
	}
}

func TestFailedThenRecovered(t *testing.T) {
	sched, err := NewScheduler(Policy{Hard: Incorrect, Medium: CorrectHesitant, Easy: Perfect})
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	s := State{EaseFactor: 2.5, Interval: 6, Repetitions: 2, NextReviewAt: t0}

	s, _, err = sched.ScheduleReview(Hard, s, t0)
	if err != nil {
		t.Fatalf("ScheduleReview(hard): %v", err)
	}
	if s.Repetitions != 0 {
		t.Fatalf("Expected failure to reset repetitions, got %d", s.Repetitions)
	}
	s, _, err = sched.ScheduleReview(Easy, s, t0.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("ScheduleReview(easy): %v", err)
	}
	if s.Repetitions != 1 || s.Interval != 1 {
		t.Errorf("Expected reps=1 interval=1 after recovery, got reps=%d interval=%d", s.Repetitions, s.Interval)
	}
}

func TestNextProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 10000; i++ {
		in := State{
			EaseFactor:   rng.Float64()*4 - 0.5,
			Interval:     rng.Intn(400) - 20,
			Repetitions:  rng.Intn(12) - 2,
			NextReviewAt: t0,
		}
		q := Quality(rng.Intn(6))
		out := Next(q, in, t0)

		if out.EaseFactor < MinEaseFactor {
			t.Fatalf("ease %.3f below floor for in=%+v q=%d", out.EaseFactor, in, q)
		}
		if out.Interval < 0 {
			t.Fatalf("negative interval for in=%+v q=%d", in, q)
		}
		norm := Normalize(in)
		if q.Successful() {
			if out.Repetitions < norm.Repetitions {
				t.Fatalf("repetitions decreased on success: %d -> %d", norm.Repetitions, out.Repetitions)
			}
		} else if out.Repetitions != 0 || out.Interval != 1 {
			t.Fatalf("failure gave reps=%d interval=%d", out.Repetitions, out.Interval)
		}
	}
}

func TestLongPerfectRunStaysInFuture(t *testing.T) {
	s := NewState(t0)
	now := t0
	for i := 1; i <= 60; i++ {
		s = Next(Perfect, s, now)
		if s.Interval < 0 || s.Interval > MaxInterval {
			t.Fatalf("review %d: Expected interval within 0-%d, but got %d", i, MaxInterval, s.Interval)
		}
		if !s.NextReviewAt.After(now) {
			t.Fatalf("review %d: Expected next review after %v, but got %v", i, now, s.NextReviewAt)
		}
		now = now.Add(time.Hour)
	}
	if s.Interval != MaxInterval {
		t.Errorf("Expected interval capped at %d, but got %d", MaxInterval, s.Interval)
	}
	if got := Normalize(State{EaseFactor: 2.5, Interval: MaxInterval * 3}); got.Interval != MaxInterval {
		t.Errorf("Expected Normalize to cap interval at %d, but got %d", MaxInterval, got.Interval)
	}
}

func TestNextClampsQuality(t *testing.T) {
	s := NewState(t0)
	if got, want := Next(Quality(9), s, t0), Next(Perfect, s, t0); got.EaseFactor != want.EaseFactor {
		t.Errorf("Quality 9 should behave like 5: ease %.2f vs %.2f", got.EaseFactor, want.EaseFactor)
	}
	if got := Next(Quality(-3), s, t0); got.Repetitions != 0 || math.Abs(got.EaseFactor-1.7) > 1e-9 {
		t.Errorf("Quality -3 should behave like 0, got %+v", got)
	}
}

func TestNormalize(t *testing.T) {
	testCases := []struct {
		name string
		in   State
		ease float64
	}{
		{"missing ease", State{EaseFactor: 0}, DefaultEaseFactor},
		{"NaN ease", State{EaseFactor: math.NaN()}, DefaultEaseFactor},
		{"ease below floor", State{EaseFactor: 1.1}, MinEaseFactor},
		{"valid ease", State{EaseFactor: 2.1}, 2.1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Normalize(tc.in)
			if got.EaseFactor != tc.ease {
				t.Errorf("Expected ease %.2f, got %.2f", tc.ease, got.EaseFactor)
			}
		})
	}
	got := Normalize(State{EaseFactor: 2.5, Interval: -4, Repetitions: -1})
	if got.Interval != 0 || got.Repetitions != 0 {
		t.Errorf("Expected negative counters clamped to 0, got %+v", got)
	}
}

func TestDueBy(t *testing.T) {
	if !(State{}).DueBy(t0) {
		t.Error("Expected state without next review to be due")
	}
	s := State{NextReviewAt: t0}
	if !s.DueBy(t0) {
		t.Error("Expected state due exactly at t0 to be due")
	}
	if s.DueBy(t0.Add(-time.Second)) {
		t.Error("Expected state not yet due before t0")
	}
}
