package analytics

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/conorfennell/studyhash/internal/domain"
	"github.com/conorfennell/studyhash/internal/localday"
	"github.com/conorfennell/studyhash/internal/sm2"
)

const (
	// WeakWindowDays is the trailing window of reviews used for weak topics.
	WeakWindowDays = 30
	// MaxWeakTopics caps the ranking length.
	MaxWeakTopics = 5
	// ExcerptRunes is the maximum length of a front-text excerpt.
	ExcerptRunes = 60
)

// WeakTopic is one ranked card.
type WeakTopic struct {
	CardID     uuid.UUID `json:"card_id"`
	Excerpt    string    `json:"excerpt"`
	EaseFactor float64   `json:"ease_factor"`
	Reviews    int       `json:"reviews"`
	HardRate   float64   `json:"hard_rate"`
	Score      float64   `json:"score"`
}

// WeakTopics ranks cards by 1/ease plus their share of hard ratings over the
// trailing WeakWindowDays local days and returns at most MaxWeakTopics.
func WeakTopics(cards []domain.Card, events []domain.ReviewEvent, now time.Time, offsetMinutes int) []WeakTopic {
	type tally struct{ hard, total int }
	since := localday.WindowStart(now, offsetMinutes, WeakWindowDays)
	tallies := make(map[uuid.UUID]tally)
	for _, ev := range events {
		if ev.ReviewedAt.Before(since) || ev.ReviewedAt.After(now) {
			continue
		}
		t := tallies[ev.CardID]
		t.total++
		if ev.Rating == sm2.Hard {
			t.hard++
		}
		tallies[ev.CardID] = t
	}

	ranked := make([]WeakTopic, 0, len(cards))
	for _, c := range cards {
		ease := sm2.Normalize(c.State).EaseFactor
		w := WeakTopic{
			CardID:     c.ID,
			Excerpt:    Excerpt(c.Front, ExcerptRunes),
			EaseFactor: ease,
		}
		if t := tallies[c.ID]; t.total > 0 {
			w.Reviews = t.total
			w.HardRate = float64(t.hard) / float64(t.total)
		}
		w.Score = 1/ease + w.HardRate
		ranked = append(ranked, w)
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].CardID.String() < ranked[j].CardID.String()
	})
	if len(ranked) > MaxWeakTopics {
		ranked = ranked[:MaxWeakTopics]
	}
	return ranked
}

// Excerpt collapses whitespace in s and truncates it to n runes, marking a
// cut with an ellipsis.
func Excerpt(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimSpace(string(runes[:n])) + "…"
}
