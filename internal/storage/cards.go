package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/conorfennell/studyhash/internal/domain"
	"github.com/conorfennell/studyhash/internal/sm2"
)

const cardColumns = `id, user_id, deck_id, front, back, ease_factor, interval_days, repetitions,
	next_review_at, last_review_at, last_rating, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (domain.Card, error) {
	var c domain.Card
	var next, created int64
	var lastReview sql.NullInt64
	var lastRating sql.NullString
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.DeckID,
		&c.Front,
		&c.Back,
		&c.EaseFactor,
		&c.Interval,
		&c.Repetitions,
		&next,
		&lastReview,
		&lastRating,
		&created,
	)
	if err != nil {
		return domain.Card{}, err
	}
	c.NextReviewAt = fromMillis(next)
	c.LastReviewAt = timePtr(lastReview)
	c.CreatedAt = fromMillis(created)
	if lastRating.Valid {
		r := sm2.Rating(lastRating.String)
		c.LastRating = &r
	}
	return c, nil
}

func queryCards(ctx context.Context, q queryer, query string, args ...any) ([]domain.Card, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cards []domain.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan card row: %w", err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

func insertCard(ctx context.Context, q queryer, c domain.Card) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO cards (`+cardColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		c.ID,
		c.UserID,
		c.DeckID,
		c.Front,
		c.Back,
		c.EaseFactor,
		c.Interval,
		c.Repetitions,
		millis(c.NextReviewAt),
		nullMillis(c.LastReviewAt),
		nullRating(c.LastRating),
		millis(c.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert card %s: %w", c.ID, err)
	}
	return nil
}

// updateCardState patches only the scheduling fields of a card.
func updateCardState(ctx context.Context, q queryer, c domain.Card) error {
	res, err := q.ExecContext(ctx, `
		UPDATE cards
		SET ease_factor = ?, interval_days = ?, repetitions = ?, next_review_at = ?, last_review_at = ?, last_rating = ?
		WHERE id = ?
	`,
		c.EaseFactor,
		c.Interval,
		c.Repetitions,
		millis(c.NextReviewAt),
		nullMillis(c.LastReviewAt),
		nullRating(c.LastRating),
		c.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update card state for %s: %w", c.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update card %s: %w", c.ID, domain.ErrNotFound)
	}
	return nil
}

func nullRating(r *sm2.Rating) sql.NullString {
	if r == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*r), Valid: true}
}

// GetCard retrieves a card by id.
func (db *DB) GetCard(ctx context.Context, id uuid.UUID) (domain.Card, error) {
	c, err := scanCard(db.conn.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = ?`, id))
	if err != nil {
		return domain.Card{}, notFound(err, fmt.Sprintf("get card %s", id))
	}
	return c, nil
}

// CardsByDeck retrieves every card of a deck.
func (db *DB) CardsByDeck(ctx context.Context, deckID uuid.UUID) ([]domain.Card, error) {
	cards, err := queryCards(ctx, db.conn, `
		SELECT `+cardColumns+`
		FROM cards WHERE deck_id = ?
		ORDER BY next_review_at, id
	`, deckID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cards for deck %s: %w", deckID, err)
	}
	return cards, nil
}

// CardsDueBy retrieves a user's cards due at or before t, earliest first.
func (db *DB) CardsDueBy(ctx context.Context, userID uuid.UUID, t time.Time) ([]domain.Card, error) {
	cards, err := queryCards(ctx, db.conn, `
		SELECT `+cardColumns+`
		FROM cards WHERE user_id = ? AND next_review_at <= ?
		ORDER BY next_review_at, id
	`, userID, millis(t))
	if err != nil {
		return nil, fmt.Errorf("failed to get due cards for user %s: %w", userID, err)
	}
	return cards, nil
}
