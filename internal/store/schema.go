package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS kv (
    key                  TEXT PRIMARY KEY,
    value                TEXT NOT NULL,
    rev                  INTEGER NOT NULL,
    origin               TEXT NOT NULL,
    updated_at           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS kv_rev (
    id                   INTEGER PRIMARY KEY CHECK (id = 1),
    rev                  INTEGER NOT NULL
);

INSERT OR IGNORE INTO kv_rev (id, rev) VALUES (1, 0);

CREATE TABLE IF NOT EXISTS catalog_cache (
    id                   INTEGER PRIMARY KEY CHECK (id = 1),
    payload              TEXT NOT NULL,
    fetched_at           TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_kv_rev ON kv(rev);
`
