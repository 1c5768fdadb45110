package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/conorfennell/studyhash/internal/domain"
)

// ApplyReview loads the card and its owner's streak, lets fn decide the new
// state, and writes the card, the review event, the deck's last study time
// and the streak in one transaction.
func (db *DB) ApplyReview(ctx context.Context, cardID uuid.UUID, fn func(domain.ReviewSnapshot) (domain.ReviewCommit, error)) error {
	return db.inTx(ctx, func(tx *sql.Tx) error {
		card, err := scanCard(tx.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = ?`, cardID))
		if err != nil {
			return notFound(err, fmt.Sprintf("get card %s", cardID))
		}
		st, err := getStreak(ctx, tx, card.UserID)
		if err != nil {
			return err
		}

		commit, err := fn(domain.ReviewSnapshot{Card: card, Streak: st})
		if err != nil {
			return err
		}

		if err := updateCardState(ctx, tx, commit.Card); err != nil {
			return err
		}
		if err := insertReviewEvent(ctx, tx, commit.Event); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE decks SET last_studied_at = ? WHERE id = ?`,
			millis(commit.DeckStudiedAt), commit.Card.DeckID); err != nil {
			return fmt.Errorf("failed to update deck %s: %w", commit.Card.DeckID, err)
		}
		commit.Streak.UserID = card.UserID
		return saveStreak(ctx, tx, commit.Streak)
	})
}

func insertReviewEvent(ctx context.Context, q queryer, ev domain.ReviewEvent) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO review_events (id, user_id, deck_id, card_id, rating, quality, reviewed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, ev.ID, ev.UserID, ev.DeckID, ev.CardID, string(ev.Rating), int(ev.Quality), millis(ev.ReviewedAt))
	if err != nil {
		return fmt.Errorf("failed to insert review event for card %s: %w", ev.CardID, err)
	}
	return nil
}

// ReviewEventsByDeck returns a deck's review events at or after since,
// oldest first.
func (db *DB) ReviewEventsByDeck(ctx context.Context, deckID uuid.UUID, since time.Time) ([]domain.ReviewEvent, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, user_id, deck_id, card_id, rating, quality, reviewed_at
		FROM review_events
		WHERE deck_id = ? AND reviewed_at >= ?
		ORDER BY reviewed_at, id
	`, deckID, millis(since))
	if err != nil {
		return nil, fmt.Errorf("failed to query review events for deck %s: %w", deckID, err)
	}
	defer rows.Close()

	var events []domain.ReviewEvent
	for rows.Next() {
		var ev domain.ReviewEvent
		var at int64
		if err := rows.Scan(&ev.ID, &ev.UserID, &ev.DeckID, &ev.CardID, &ev.Rating, &ev.Quality, &at); err != nil {
			return nil, fmt.Errorf("failed to scan review event row: %w", err)
		}
		ev.ReviewedAt = fromMillis(at)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// AppendActivity records a non-review study action.
func (db *DB) AppendActivity(ctx context.Context, ev domain.ActivityEvent) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO activity_events (id, user_id, kind, occurred_at)
		VALUES (?, ?, ?, ?)
	`, ev.ID, ev.UserID, string(ev.Kind), millis(ev.OccurredAt))
	if err != nil {
		return fmt.Errorf("failed to insert activity event for user %s: %w", ev.UserID, err)
	}
	return nil
}

// ActivityTimes returns the times of all reviews and activity events of a
// user at or after since, oldest first.
func (db *DB) ActivityTimes(ctx context.Context, userID uuid.UUID, since time.Time) ([]time.Time, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT reviewed_at AS at FROM review_events WHERE user_id = ? AND reviewed_at >= ?
		UNION ALL
		SELECT occurred_at AS at FROM activity_events WHERE user_id = ? AND occurred_at >= ?
		ORDER BY at
	`, userID, millis(since), userID, millis(since))
	if err != nil {
		return nil, fmt.Errorf("failed to query activity for user %s: %w", userID, err)
	}
	defer rows.Close()

	var times []time.Time
	for rows.Next() {
		var at int64
		if err := rows.Scan(&at); err != nil {
			return nil, fmt.Errorf("failed to scan activity row: %w", err)
		}
		times = append(times, fromMillis(at))
	}
	return times, rows.Err()
}
