package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/conorfennell/studyhash/internal/domain"
)

const streakColumns = `id, current_streak, longest_streak, last_studied_date, last_tz_offset_minutes`

// CreateUser inserts a user with an empty streak.
func (db *DB) CreateUser(ctx context.Context, id uuid.UUID, now time.Time) error {
	_, err := db.conn.ExecContext(ctx, `INSERT INTO users (id, created_at) VALUES (?, ?)`, id, millis(now))
	if err != nil {
		return fmt.Errorf("failed to insert user %s: %w", id, err)
	}
	return nil
}

// CreateDeck inserts a deck and all of its cards in one transaction.
func (db *DB) CreateDeck(ctx context.Context, deck domain.Deck, cards []domain.Card) error {
	return db.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO decks (id, user_id, name, card_count, last_studied_at, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, deck.ID, deck.UserID, deck.Name, len(cards), nullMillis(deck.LastStudiedAt), millis(deck.CreatedAt))
		if err != nil {
			return fmt.Errorf("failed to insert deck %s: %w", deck.ID, err)
		}
		for _, c := range cards {
			if err := insertCard(ctx, tx, c); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetDeck retrieves a deck by id.
func (db *DB) GetDeck(ctx context.Context, id uuid.UUID) (domain.Deck, error) {
	var d domain.Deck
	var studied sql.NullInt64
	var created int64
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, user_id, name, card_count, last_studied_at, created_at
		FROM decks WHERE id = ?
	`, id).Scan(&d.ID, &d.UserID, &d.Name, &d.CardCount, &studied, &created)
	if err != nil {
		return domain.Deck{}, notFound(err, fmt.Sprintf("get deck %s", id))
	}
	d.LastStudiedAt = timePtr(studied)
	d.CreatedAt = fromMillis(created)
	return d, nil
}

func scanStreak(row rowScanner) (domain.Streak, error) {
	var s domain.Streak
	var last sql.NullInt64
	if err := row.Scan(&s.UserID, &s.Current, &s.Longest, &last, &s.LastOffsetMinutes); err != nil {
		return domain.Streak{}, err
	}
	s.LastStudiedDate = timePtr(last)
	return s, nil
}

func getStreak(ctx context.Context, q queryer, userID uuid.UUID) (domain.Streak, error) {
	s, err := scanStreak(q.QueryRowContext(ctx, `SELECT `+streakColumns+` FROM users WHERE id = ?`, userID))
	if err != nil {
		return domain.Streak{}, notFound(err, fmt.Sprintf("get user %s", userID))
	}
	return s, nil
}

func saveStreak(ctx context.Context, q queryer, s domain.Streak) error {
	_, err := q.ExecContext(ctx, `
		UPDATE users
		SET current_streak = ?, longest_streak = ?, last_studied_date = ?, last_tz_offset_minutes = ?
		WHERE id = ?
	`, s.Current, s.Longest, nullMillis(s.LastStudiedDate), s.LastOffsetMinutes, s.UserID)
	if err != nil {
		return fmt.Errorf("failed to update streak for user %s: %w", s.UserID, err)
	}
	return nil
}

// GetStreak retrieves a user's streak state.
func (db *DB) GetStreak(ctx context.Context, userID uuid.UUID) (domain.Streak, error) {
	return getStreak(ctx, db.conn, userID)
}

// UpdateStreak reads a user's streak, applies fn and writes the result in
// one transaction.
func (db *DB) UpdateStreak(ctx context.Context, userID uuid.UUID, fn func(domain.Streak) (domain.Streak, error)) error {
	return db.inTx(ctx, func(tx *sql.Tx) error {
		cur, err := getStreak(ctx, tx, userID)
		if err != nil {
			return err
		}
		next, err := fn(cur)
		if err != nil {
			return err
		}
		next.UserID = userID
		return saveStreak(ctx, tx, next)
	})
}

// ListUserIDs returns up to limit user ids greater than after, in order.
func (db *DB) ListUserIDs(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id FROM users WHERE id > ? ORDER BY id LIMIT ?`, after, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListActiveStreaks returns up to limit streaks with a positive current
// count and a user id greater than after, in id order.
func (db *DB) ListActiveStreaks(ctx context.Context, after uuid.UUID, limit int) ([]domain.Streak, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+streakColumns+`
		FROM users WHERE current_streak > 0 AND id > ?
		ORDER BY id LIMIT ?
	`, after, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list active streaks: %w", err)
	}
	defer rows.Close()

	var out []domain.Streak
	for rows.Next() {
		s, err := scanStreak(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan streak row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
