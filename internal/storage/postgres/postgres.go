// Package postgres is the PostgreSQL implementation of the study store,
// built on gorm.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/conorfennell/studyhash/internal/domain"
	"github.com/conorfennell/studyhash/internal/sm2"
	"github.com/conorfennell/studyhash/internal/study"
)

var _ study.Store = (*DB)(nil)

// DB wraps a gorm connection.
type DB struct {
	gorm *gorm.DB
}

// Open connects to dsn, sizes the pool and migrates the schema.
func Open(ctx context.Context, dsn string) (*DB, error) {
	g, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := g.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB from gorm: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	db := &DB{gorm: g}
	if err := db.Migrate(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates every table.
func (db *DB) Migrate(ctx context.Context) error {
	err := db.gorm.WithContext(ctx).AutoMigrate(
		&userRow{},
		&deckRow{},
		&cardRow{},
		&reviewEventRow{},
		&activityEventRow{},
		&dailyQueueRow{},
	)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (db *DB) Close() error {
	sqlDB, err := db.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// CreateUser inserts a user with an empty streak.
func (db *DB) CreateUser(ctx context.Context, id uuid.UUID, now time.Time) error {
	row := userRow{ID: id, CreatedAt: now.UTC()}
	if err := db.gorm.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert user %s: %w", id, err)
	}
	return nil
}

// CreateDeck inserts a deck and all of its cards in one transaction.
func (db *DB) CreateDeck(ctx context.Context, deck domain.Deck, cards []domain.Card) error {
	return db.gorm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := deckRow{
			ID:            deck.ID,
			UserID:        deck.UserID,
			Name:          deck.Name,
			CardCount:     len(cards),
			LastStudiedAt: utcPtr(deck.LastStudiedAt),
			CreatedAt:     deck.CreatedAt.UTC(),
		}
		if err := tx.Omit(clause.Associations).Create(&row).Error; err != nil {
			return fmt.Errorf("failed to insert deck %s: %w", deck.ID, err)
		}
		if len(cards) == 0 {
			return nil
		}
		rows := make([]cardRow, 0, len(cards))
		for _, c := range cards {
			rows = append(rows, toCardRow(c))
		}
		if err := tx.Omit(clause.Associations).CreateInBatches(rows, 500).Error; err != nil {
			return fmt.Errorf("failed to insert cards for deck %s: %w", deck.ID, err)
		}
		return nil
	})
}

// GetCard retrieves a card by id.
func (db *DB) GetCard(ctx context.Context, id uuid.UUID) (domain.Card, error) {
	var row cardRow
	if err := db.gorm.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return domain.Card{}, notFound(err, fmt.Sprintf("get card %s", id))
	}
	return row.card(), nil
}

// GetDeck retrieves a deck by id.
func (db *DB) GetDeck(ctx context.Context, id uuid.UUID) (domain.Deck, error) {
	var row deckRow
	if err := db.gorm.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return domain.Deck{}, notFound(err, fmt.Sprintf("get deck %s", id))
	}
	return row.deck(), nil
}

// GetStreak retrieves a user's streak state.
func (db *DB) GetStreak(ctx context.Context, userID uuid.UUID) (domain.Streak, error) {
	var row userRow
	if err := db.gorm.WithContext(ctx).First(&row, "id = ?", userID).Error; err != nil {
		return domain.Streak{}, notFound(err, fmt.Sprintf("get user %s", userID))
	}
	return row.streak(), nil
}

func toCards(rows []cardRow) []domain.Card {
	out := make([]domain.Card, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.card())
	}
	return out
}

// CardsByDeck retrieves every card of a deck.
func (db *DB) CardsByDeck(ctx context.Context, deckID uuid.UUID) ([]domain.Card, error) {
	var rows []cardRow
	err := db.gorm.WithContext(ctx).
		Where("deck_id = ?", deckID).
		Order("next_review_at, id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get cards for deck %s: %w", deckID, err)
	}
	return toCards(rows), nil
}

// CardsDueBy retrieves a user's cards due at or before t, earliest first.
func (db *DB) CardsDueBy(ctx context.Context, userID uuid.UUID, t time.Time) ([]domain.Card, error) {
	var rows []cardRow
	err := db.gorm.WithContext(ctx).
		Where("user_id = ? AND next_review_at <= ?", userID, t.UTC()).
		Order("next_review_at, id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get due cards for user %s: %w", userID, err)
	}
	return toCards(rows), nil
}

func lockUser(tx *gorm.DB, userID uuid.UUID) (userRow, error) {
	var row userRow
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&row, "id = ?", userID).Error
	if err != nil {
		return userRow{}, notFound(err, fmt.Sprintf("get user %s", userID))
	}
	return row, nil
}

func saveStreak(tx *gorm.DB, s domain.Streak) error {
	err := tx.Model(&userRow{}).Where("id = ?", s.UserID).Updates(map[string]any{
		"current_streak":         s.Current,
		"longest_streak":         s.Longest,
		"last_studied_date":      utcPtr(s.LastStudiedDate),
		"last_tz_offset_minutes": s.LastOffsetMinutes,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to update streak for user %s: %w", s.UserID, err)
	}
	return nil
}

// ApplyReview locks the card and its owner's row, lets fn decide the new
// state, and writes the card, the review event, the deck's last study time
// and the streak in one transaction.
func (db *DB) ApplyReview(ctx context.Context, cardID uuid.UUID, fn func(domain.ReviewSnapshot) (domain.ReviewCommit, error)) error {
	return db.gorm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row cardRow
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&row, "id = ?", cardID).Error; err != nil {
			return notFound(err, fmt.Sprintf("get card %s", cardID))
		}
		user, err := lockUser(tx, row.UserID)
		if err != nil {
			return err
		}

		commit, err := fn(domain.ReviewSnapshot{Card: row.card(), Streak: user.streak()})
		if err != nil {
			return err
		}

		c := toCardRow(commit.Card)
		err = tx.Model(&cardRow{}).Where("id = ?", row.ID).Updates(map[string]any{
			"ease_factor":    c.EaseFactor,
			"interval_days":  c.IntervalDays,
			"repetitions":    c.Repetitions,
			"next_review_at": c.NextReviewAt,
			"last_review_at": c.LastReviewAt,
			"last_rating":    c.LastRating,
		}).Error
		if err != nil {
			return fmt.Errorf("failed to update card state for %s: %w", row.ID, err)
		}

		ev := commit.Event
		evRow := reviewEventRow{
			ID:         ev.ID,
			UserID:     ev.UserID,
			DeckID:     ev.DeckID,
			CardID:     ev.CardID,
			Rating:     string(ev.Rating),
			Quality:    int(ev.Quality),
			ReviewedAt: ev.ReviewedAt.UTC(),
		}
		if err := tx.Create(&evRow).Error; err != nil {
			return fmt.Errorf("failed to insert review event for card %s: %w", row.ID, err)
		}

		err = tx.Model(&deckRow{}).Where("id = ?", row.DeckID).
			Update("last_studied_at", commit.DeckStudiedAt.UTC()).Error
		if err != nil {
			return fmt.Errorf("failed to update deck %s: %w", row.DeckID, err)
		}

		commit.Streak.UserID = row.UserID
		return saveStreak(tx, commit.Streak)
	})
}

// UpdateStreak locks a user's row, applies fn and writes the result.
func (db *DB) UpdateStreak(ctx context.Context, userID uuid.UUID, fn func(domain.Streak) (domain.Streak, error)) error {
	return db.gorm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := lockUser(tx, userID)
		if err != nil {
			return err
		}
		next, err := fn(user.streak())
		if err != nil {
			return err
		}
		next.UserID = userID
		return saveStreak(tx, next)
	})
}

// AppendActivity records a non-review study action.
func (db *DB) AppendActivity(ctx context.Context, ev domain.ActivityEvent) error {
	row := activityEventRow{ID: ev.ID, UserID: ev.UserID, Kind: string(ev.Kind), OccurredAt: ev.OccurredAt.UTC()}
	if err := db.gorm.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert activity event for user %s: %w", ev.UserID, err)
	}
	return nil
}

// ReviewEventsByDeck returns a deck's review events at or after since,
// oldest first.
func (db *DB) ReviewEventsByDeck(ctx context.Context, deckID uuid.UUID, since time.Time) ([]domain.ReviewEvent, error) {
	var rows []reviewEventRow
	err := db.gorm.WithContext(ctx).
		Where("deck_id = ? AND reviewed_at >= ?", deckID, since.UTC()).
		Order("reviewed_at, id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query review events for deck %s: %w", deckID, err)
	}

	events := make([]domain.ReviewEvent, 0, len(rows))
	for _, r := range rows {
		events = append(events, domain.ReviewEvent{
			ID:         r.ID,
			UserID:     r.UserID,
			DeckID:     r.DeckID,
			CardID:     r.CardID,
			Rating:     sm2.Rating(r.Rating),
			Quality:    sm2.Quality(r.Quality),
			ReviewedAt: r.ReviewedAt.UTC(),
		})
	}
	return events, nil
}

// ActivityTimes returns the times of all reviews and activity events of a
// user at or after since, oldest first.
func (db *DB) ActivityTimes(ctx context.Context, userID uuid.UUID, since time.Time) ([]time.Time, error) {
	rows, err := db.gorm.WithContext(ctx).Raw(`
		SELECT reviewed_at AS at FROM review_events WHERE user_id = ? AND reviewed_at >= ?
		UNION ALL
		SELECT occurred_at AS at FROM activity_events WHERE user_id = ? AND occurred_at >= ?
		ORDER BY at
	`, userID, since.UTC(), userID, since.UTC()).Rows()
	if err != nil {
		return nil, fmt.Errorf("failed to query activity for user %s: %w", userID, err)
	}
	defer rows.Close()

	var times []time.Time
	for rows.Next() {
		var at time.Time
		if err := rows.Scan(&at); err != nil {
			return nil, fmt.Errorf("failed to scan activity row: %w", err)
		}
		times = append(times, at.UTC())
	}
	return times, rows.Err()
}

// GetDailyQueue retrieves the snapshot for a user's local day.
func (db *DB) GetDailyQueue(ctx context.Context, userID uuid.UUID, dayStart time.Time) (domain.DailyQueue, error) {
	var row dailyQueueRow
	err := db.gorm.WithContext(ctx).First(&row, "user_id = ? AND day_start = ?", userID, dayStart.UTC()).Error
	if err != nil {
		return domain.DailyQueue{}, notFound(err, fmt.Sprintf("get daily queue for user %s", userID))
	}
	ids := row.CardIDs
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return domain.DailyQueue{
		UserID:    row.UserID,
		DayStart:  row.DayStart.UTC(),
		CardIDs:   ids,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}, nil
}

// UpsertDailyQueue writes a snapshot. An existing row keeps its created_at.
func (db *DB) UpsertDailyQueue(ctx context.Context, q domain.DailyQueue) error {
	ids := q.CardIDs
	if ids == nil {
		ids = []uuid.UUID{}
	}
	row := dailyQueueRow{
		UserID:    q.UserID,
		DayStart:  q.DayStart.UTC(),
		CardIDs:   ids,
		CreatedAt: q.CreatedAt.UTC(),
		UpdatedAt: q.UpdatedAt.UTC(),
	}
	err := db.gorm.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "day_start"}},
		DoUpdates: clause.AssignmentColumns([]string{"card_ids", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to upsert daily queue for user %s: %w", q.UserID, err)
	}
	return nil
}

// ListUserIDs returns up to limit user ids greater than after, in order.
func (db *DB) ListUserIDs(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := db.gorm.WithContext(ctx).Model(&userRow{}).
		Where("id > ?", after).
		Order("id").
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return ids, nil
}

// ListActiveStreaks returns up to limit streaks with a positive current
// count and a user id greater than after, in id order.
func (db *DB) ListActiveStreaks(ctx context.Context, after uuid.UUID, limit int) ([]domain.Streak, error) {
	var rows []userRow
	err := db.gorm.WithContext(ctx).
		Where("current_streak > 0 AND id > ?", after).
		Order("id").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active streaks: %w", err)
	}
	out := make([]domain.Streak, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.streak())
	}
	return out, nil
}
