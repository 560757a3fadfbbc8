package store

// Schema contains all SQL for the engine's state database. Timestamps are
// stored as fixed-width RFC3339 UTC text so text order is time order.
const Schema = `
CREATE TABLE IF NOT EXISTS anchors (
    record_type TEXT PRIMARY KEY,
    cursor      TEXT NOT NULL,
    updated_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tz_history (
    source       TEXT NOT NULL,
    effective_at TEXT NOT NULL,
    tz_name      TEXT NOT NULL,
    country      TEXT NOT NULL DEFAULT '',
    region       TEXT NOT NULL DEFAULT '',
    city         TEXT NOT NULL DEFAULT '',
    origin       TEXT NOT NULL,
    PRIMARY KEY (source, effective_at)
);

CREATE TABLE IF NOT EXISTS seed_batches (
    batch_id        TEXT PRIMARY KEY,
    chunk_total     INTEGER NOT NULL,
    chunk_span_secs INTEGER NOT NULL DEFAULT 0,
    window_start    TEXT NOT NULL,
    window_end      TEXT NOT NULL,
    started_at      TEXT NOT NULL,
    completed_at    TEXT
);

CREATE TABLE IF NOT EXISTS seed_chunks (
    batch_id    TEXT NOT NULL,
    chunk_index INTEGER NOT NULL,
    accepted_at TEXT NOT NULL,
    PRIMARY KEY (batch_id, chunk_index)
);
`
