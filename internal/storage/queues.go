package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/conorfennell/studyhash/internal/domain"
)

// GetDailyQueue retrieves the snapshot for a user's local day.
func (db *DB) GetDailyQueue(ctx context.Context, userID uuid.UUID, dayStart time.Time) (domain.DailyQueue, error) {
	var raw string
	var created, updated int64
	err := db.conn.QueryRowContext(ctx, `
		SELECT card_ids, created_at, updated_at
		FROM daily_queues WHERE user_id = ? AND day_start = ?
	`, userID, millis(dayStart)).Scan(&raw, &created, &updated)
	if err != nil {
		return domain.DailyQueue{}, notFound(err, fmt.Sprintf("get daily queue for user %s", userID))
	}

	q := domain.DailyQueue{
		UserID:    userID,
		DayStart:  dayStart.UTC(),
		CreatedAt: fromMillis(created),
		UpdatedAt: fromMillis(updated),
	}
	if err := json.Unmarshal([]byte(raw), &q.CardIDs); err != nil {
		return domain.DailyQueue{}, fmt.Errorf("failed to decode daily queue card ids: %w", err)
	}
	return q, nil
}

// UpsertDailyQueue writes a snapshot. An existing row keeps its created_at.
func (db *DB) UpsertDailyQueue(ctx context.Context, q domain.DailyQueue) error {
	ids := q.CardIDs
	if ids == nil {
		ids = []uuid.UUID{}
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to encode daily queue card ids: %w", err)
	}

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO daily_queues (user_id, day_start, card_ids, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, day_start) DO UPDATE SET
			card_ids = excluded.card_ids,
			updated_at = excluded.updated_at
	`, q.UserID, millis(q.DayStart), string(raw), millis(q.CreatedAt), millis(q.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert daily queue for user %s: %w", q.UserID, err)
	}
	return nil
}
