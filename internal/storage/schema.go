package storage

// SchemaVersion is the current version of the SQLite schema.
const SchemaVersion = 1

// Timestamps are stored as Unix milliseconds so range scans compare numbers.
const schema = `
-- One row per user; the streak counters live here.
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    current_streak INTEGER NOT NULL DEFAULT 0,
    longest_streak INTEGER NOT NULL DEFAULT 0,
    last_studied_date INTEGER,
    last_tz_offset_minutes INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS decks (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    name TEXT NOT NULL,
    card_count INTEGER NOT NULL DEFAULT 0,
    last_studied_at INTEGER,
    created_at INTEGER NOT NULL,

    FOREIGN KEY(user_id) REFERENCES users(id)
);

-- The 'cards' table stores each flashcard and its SM-2 state.
CREATE TABLE IF NOT EXISTS cards (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    deck_id TEXT NOT NULL,
    front TEXT NOT NULL,
    back TEXT NOT NULL,
    ease_factor REAL NOT NULL DEFAULT 2.5,
    interval_days INTEGER NOT NULL DEFAULT 0,
    repetitions INTEGER NOT NULL DEFAULT 0,
    next_review_at INTEGER NOT NULL,
    last_review_at INTEGER,
    last_rating TEXT,
    created_at INTEGER NOT NULL,

    FOREIGN KEY(user_id) REFERENCES users(id),
    FOREIGN KEY(deck_id) REFERENCES decks(id)
);
CREATE INDEX IF NOT EXISTS idx_cards_user_next ON cards(user_id, next_review_at);
CREATE INDEX IF NOT EXISTS idx_cards_deck_next ON cards(deck_id, next_review_at);

-- Append-only review log.
CREATE TABLE IF NOT EXISTS review_events (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    deck_id TEXT NOT NULL,
    card_id TEXT NOT NULL,
    rating TEXT NOT NULL,
    quality INTEGER NOT NULL,
    reviewed_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_review_events_user_at ON review_events(user_id, reviewed_at);
CREATE INDEX IF NOT EXISTS idx_review_events_deck_at ON review_events(deck_id, reviewed_at);

-- Quiz completions and recordings, used only for activity streaks.
CREATE TABLE IF NOT EXISTS activity_events (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    occurred_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_activity_events_user_at ON activity_events(user_id, occurred_at);

-- Cached per-day due lists; card_ids is a JSON array.
CREATE TABLE IF NOT EXISTS daily_queues (
    user_id TEXT NOT NULL,
    day_start INTEGER NOT NULL,
    card_ids TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,

    PRIMARY KEY (user_id, day_start)
);
`
