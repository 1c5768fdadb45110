package analytics

import (
	"time"

	"github.com/conorfennell/studyhash/internal/domain"
	"github.com/conorfennell/studyhash/internal/localday"
)

// ThroughputWindowDays is the trailing window used to measure review pace.
const ThroughputWindowDays = 7

// settledRepetitions is the repetition count at which a card stops counting
// toward the remaining workload, unless it is due.
const settledRepetitions = 3

// Readiness is the predicted date a deck's unsettled cards will be cleared.
type Readiness struct {
	CardsRemaining  int     `json:"cards_remaining"`
	ReviewsInWindow int     `json:"reviews_in_window"`
	AvgDailyReviews float64 `json:"avg_daily_reviews"`
	// PredictedReadyDate is nil when there was no review in the window.
	PredictedReadyDate *time.Time `json:"predicted_ready_date"`
}

// Forecast predicts when cards will be settled at the pace of events over
// the trailing ThroughputWindowDays local days.
func Forecast(cards []domain.Card, events []domain.ReviewEvent, now time.Time, offsetMinutes int) Readiness {
	var r Readiness
	for _, c := range cards {
		if c.Repetitions < settledRepetitions || c.DueBy(now) {
			r.CardsRemaining++
		}
	}

	since := localday.WindowStart(now, offsetMinutes, ThroughputWindowDays)
	for _, ev := range events {
		if !ev.ReviewedAt.Before(since) && !ev.ReviewedAt.After(now) {
			r.ReviewsInWindow++
		}
	}
	if r.ReviewsInWindow == 0 {
		return r
	}

	r.AvgDailyReviews = float64(r.ReviewsInWindow) / ThroughputWindowDays
	// ceil(remaining / (reviews / window)) in integer arithmetic.
	days := (r.CardsRemaining*ThroughputWindowDays + r.ReviewsInWindow - 1) / r.ReviewsInWindow
	ready := now.Add(time.Duration(days) * localday.Day)
	r.PredictedReadyDate = &ready
	return r
}
