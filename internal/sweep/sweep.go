// Package sweep runs the periodic per-user jobs: daily queue snapshots and
// expired streak resets.
package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/conorfennell/studyhash/internal/domain"
	"github.com/conorfennell/studyhash/internal/streak"
	"github.com/conorfennell/studyhash/internal/study"
)

// DefaultPageSize is the number of users loaded per page.
const DefaultPageSize = 200

// Runner executes sweeps against a store.
type Runner struct {
	store    study.Store
	location *time.Location
	pageSize int
	log      *slog.Logger
}

// Options configures a Runner. Zero values select UTC, DefaultPageSize and
// slog.Default().
type Options struct {
	Location *time.Location
	PageSize int
	Logger   *slog.Logger
}

// NewRunner creates a Runner over store.
func NewRunner(store study.Store, opts Options) *Runner {
	r := &Runner{store: store, location: opts.Location, pageSize: opts.PageSize, log: opts.Logger}
	if r.location == nil {
		r.location = time.UTC
	}
	if r.pageSize <= 0 {
		r.pageSize = DefaultPageSize
	}
	if r.log == nil {
		r.log = slog.Default()
	}
	return r
}

// Report summarizes one sweep.
type Report struct {
	Job       string    `json:"job"`
	Processed int       `json:"processed"`
	Changed   int       `json:"changed"`
	Failed    int       `json:"failed"`
	Cursor    uuid.UUID `json:"cursor"`
	StartedAt time.Time `json:"started_at"`
}

// BuildDailyQueues snapshots every user's cards due by the end of the
// server-local day containing now. A failing user is logged and skipped.
// On cancellation the report holds the last user reached.
func (r *Runner) BuildDailyQueues(ctx context.Context, now time.Time) (Report, error) {
	rep := Report{Job: "daily-queues", StartedAt: now}
	day, _ := study.ServerDay(now, r.location)
	r.log.Info("Starting daily queue build", "day_start", day)

	for {
		ids, err := r.store.ListUserIDs(ctx, rep.Cursor, r.pageSize)
		if err != nil {
			return rep, fmt.Errorf("build daily queues: list users: %w", err)
		}
		if len(ids) == 0 {
			break
		}
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return rep, err
			}
			rep.Processed++
			if err := r.buildQueue(ctx, id, now); err != nil {
				rep.Failed++
				r.log.Error("Failed to build daily queue", "user_id", id, "error", err)
			} else {
				rep.Changed++
			}
			rep.Cursor = id
		}
		if len(ids) < r.pageSize {
			break
		}
	}

	r.log.Info("Daily queue build complete", "users", rep.Processed, "failed", rep.Failed)
	return rep, nil
}

func (r *Runner) buildQueue(ctx context.Context, userID uuid.UUID, now time.Time) error {
	q, err := study.BuildQueue(ctx, r.store, userID, now, r.location)
	if err != nil {
		return err
	}
	return r.store.UpsertDailyQueue(ctx, q)
}

// ResetExpiredStreaks zeroes the current streak of every user who did not
// study yesterday, judged in each user's last known offset. Longest streaks
// are left alone.
func (r *Runner) ResetExpiredStreaks(ctx context.Context, now time.Time) (Report, error) {
	rep := Report{Job: "streak-reset", StartedAt: now}
	r.log.Info("Starting streak reset")

	for {
		page, err := r.store.ListActiveStreaks(ctx, rep.Cursor, r.pageSize)
		if err != nil {
			return rep, fmt.Errorf("reset expired streaks: list streaks: %w", err)
		}
		if len(page) == 0 {
			break
		}
		for _, s := range page {
			if err := ctx.Err(); err != nil {
				return rep, err
			}
			rep.Processed++
			rep.Cursor = s.UserID
			if _, expired := streak.Expire(s, now); !expired {
				continue
			}
			reset, err := r.resetStreak(ctx, s.UserID, now)
			if err != nil {
				rep.Failed++
				r.log.Error("Failed to reset streak", "user_id", s.UserID, "error", err)
				continue
			}
			if reset {
				rep.Changed++
			}
		}
		if len(page) < r.pageSize {
			break
		}
	}

	r.log.Info("Streak reset complete", "users", rep.Processed, "reset", rep.Changed, "failed", rep.Failed)
	return rep, nil
}

// resetStreak re-checks expiry on the fresh row so a study action that
// landed after the page was read is not undone.
func (r *Runner) resetStreak(ctx context.Context, userID uuid.UUID, now time.Time) (bool, error) {
	var reset bool
	err := r.store.UpdateStreak(ctx, userID, func(cur domain.Streak) (domain.Streak, error) {
		next, changed := streak.Expire(cur, now)
		reset = changed
		return next, nil
	})
	return reset, err
}

// Job is one sweep invocation.
type Job func(ctx context.Context, now time.Time) (Report, error)

// Every runs job once per interval until ctx is cancelled. Job errors are
// logged and do not stop the loop.
func Every(ctx context.Context, interval time.Duration, log *slog.Logger, job Job) error {
	if interval <= 0 {
		return fmt.Errorf("sweep: interval must be positive, got %s", interval)
	}
	if log == nil {
		log = slog.Default()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case t := <-ticker.C:
			if _, err := job(ctx, t.UTC()); err != nil && ctx.Err() == nil {
				log.Error("Sweep failed", "error", err)
			}
		}
	}
}
