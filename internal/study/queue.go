package study

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/conorfennell/studyhash/internal/domain"
	"github.com/conorfennell/studyhash/internal/localday"
)

// ServerDay returns the start and end of the local day containing now in
// loc. Queues are keyed by this start.
func ServerDay(now time.Time, loc *time.Location) (start, end time.Time) {
	off := localday.OffsetOf(now, loc)
	return localday.Start(now, off), localday.End(now, off)
}

// BuildQueue computes the user's due cards for the server day containing
// now without persisting anything.
func BuildQueue(ctx context.Context, store Store, userID uuid.UUID, now time.Time, loc *time.Location) (domain.DailyQueue, error) {
	start, end := ServerDay(now, loc)
	cards, err := store.CardsDueBy(ctx, userID, end)
	if err != nil {
		return domain.DailyQueue{}, err
	}
	ids := make([]uuid.UUID, 0, len(cards))
	for _, c := range cards {
		ids = append(ids, c.ID)
	}
	return domain.DailyQueue{
		UserID:    userID,
		DayStart:  start,
		CardIDs:   ids,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Queue is today's due list as served to a client.
type Queue struct {
	domain.DailyQueue
	// Live is set when no snapshot existed and the list was computed on read.
	Live bool `json:"live"`
}

// TodayQueue returns the stored snapshot for today's server day, or the
// live due set when the sweep has not produced one yet.
func (s *Service) TodayQueue(ctx context.Context, userID uuid.UUID, now time.Time) (Queue, error) {
	start, _ := ServerDay(now, s.location)
	q, err := s.store.GetDailyQueue(ctx, userID, start)
	if err == nil {
		return Queue{DailyQueue: q}, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return Queue{}, fmt.Errorf("today queue: %w", err)
	}

	if _, err := s.store.GetStreak(ctx, userID); err != nil {
		return Queue{}, fmt.Errorf("today queue: %w", err)
	}
	live, err := BuildQueue(ctx, s.store, userID, now, s.location)
	if err != nil {
		return Queue{}, fmt.Errorf("today queue: %w", err)
	}
	return Queue{DailyQueue: live, Live: true}, nil
}
