package storage

const sqliteSchema = `
-- The 'sources' table tracks where cards come from, either a local directory or a git repository.
CREATE TABLE IF NOT EXISTS sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL DEFAULT 'local',
    last_scanned DATETIME
);

-- The 'cards' table stores the content of each study item, keyed by its content hash.
CREATE TABLE IF NOT EXISTS cards (
    hash TEXT PRIMARY KEY,
    front TEXT NOT NULL,
    back TEXT NOT NULL DEFAULT '',
    context TEXT NOT NULL DEFAULT '',
    tags TEXT NOT NULL DEFAULT ''
);

-- The 'card_sources' table records every source a card currently appears in.
CREATE TABLE IF NOT EXISTS card_sources (
    card_hash TEXT NOT NULL,
    source_id INTEGER NOT NULL,

    PRIMARY KEY (card_hash, source_id),
    FOREIGN KEY(card_hash) REFERENCES cards(hash) ON DELETE CASCADE,
    FOREIGN KEY(source_id) REFERENCES sources(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_card_sources_source ON card_sources(source_id);

-- The 'reviews' table holds one SM-2 scheduling record per (learner, card).
CREATE TABLE IF NOT EXISTS reviews (
    id TEXT PRIMARY KEY,
    learner_id TEXT NOT NULL,
    card_hash TEXT NOT NULL,
    repetitions INTEGER NOT NULL DEFAULT 0,
    interval_days INTEGER NOT NULL DEFAULT 1,
    ease_factor REAL NOT NULL DEFAULT 2.5,
    due_date TEXT NOT NULL, -- YYYY-MM-DD
    last_reviewed_at DATETIME,
    last_quality INTEGER,
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL,

    UNIQUE(learner_id, card_hash),
    FOREIGN KEY(card_hash) REFERENCES cards(hash) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_reviews_due ON reviews(learner_id, due_date);

-- The 'review_log' table appends one row per rating applied.
CREATE TABLE IF NOT EXISTS review_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    learner_id TEXT NOT NULL,
    card_hash TEXT NOT NULL,
    quality INTEGER NOT NULL,
    prev_repetitions INTEGER NOT NULL,
    prev_interval INTEGER NOT NULL,
    prev_ease REAL NOT NULL,
    repetitions INTEGER NOT NULL,
    interval_days INTEGER NOT NULL,
    ease_factor REAL NOT NULL,
    due_date TEXT NOT NULL,
    reviewed_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_review_log_card ON review_log(learner_id, card_hash);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS sources (
    id BIGSERIAL PRIMARY KEY,
    path TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL DEFAULT 'local',
    last_scanned TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS cards (
    hash TEXT PRIMARY KEY,
    front TEXT NOT NULL,
    back TEXT NOT NULL DEFAULT '',
    context TEXT NOT NULL DEFAULT '',
    tags TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS card_sources (
    card_hash TEXT NOT NULL REFERENCES cards(hash) ON DELETE CASCADE,
    source_id BIGINT NOT NULL REFERENCES sources(id) ON DELETE CASCADE,
    PRIMARY KEY (card_hash, source_id)
);

CREATE INDEX IF NOT EXISTS idx_card_sources_source ON card_sources(source_id);

CREATE TABLE IF NOT EXISTS reviews (
    id TEXT PRIMARY KEY,
    learner_id TEXT NOT NULL,
    card_hash TEXT NOT NULL REFERENCES cards(hash) ON DELETE CASCADE,
    repetitions INTEGER NOT NULL DEFAULT 0,
    interval_days INTEGER NOT NULL DEFAULT 1,
    ease_factor DOUBLE PRECISION NOT NULL DEFAULT 2.5,
    due_date TEXT NOT NULL,
    last_reviewed_at TIMESTAMPTZ,
    last_quality INTEGER,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL,
    UNIQUE(learner_id, card_hash)
);

CREATE INDEX IF NOT EXISTS idx_reviews_due ON reviews(learner_id, due_date);

CREATE TABLE IF NOT EXISTS review_log (
    id BIGSERIAL PRIMARY KEY,
    learner_id TEXT NOT NULL,
    card_hash TEXT NOT NULL,
    quality INTEGER NOT NULL,
    prev_repetitions INTEGER NOT NULL,
    prev_interval INTEGER NOT NULL,
    prev_ease DOUBLE PRECISION NOT NULL,
    repetitions INTEGER NOT NULL,
    interval_days INTEGER NOT NULL,
    ease_factor DOUBLE PRECISION NOT NULL,
    due_date TEXT NOT NULL,
    reviewed_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_review_log_card ON review_log(learner_id, card_hash);
`
