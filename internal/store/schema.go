package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS files (
    id          INTEGER PRIMARY KEY,
    path        TEXT NOT NULL UNIQUE,
    mtime_ns    INTEGER NOT NULL,
    size_bytes  INTEGER NOT NULL,
    parsed_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
    file_id         INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
    line            INTEGER NOT NULL,
    session_id      TEXT NOT NULL,
    ts_unix_ns      INTEGER NOT NULL,
    role            TEXT NOT NULL,
    model           TEXT NOT NULL,
    input_tokens    INTEGER NOT NULL,
    output_tokens   INTEGER NOT NULL,
    cache_creation  INTEGER NOT NULL,
    cache_read      INTEGER NOT NULL,
    text_sample     TEXT NOT NULL,
    PRIMARY KEY (file_id, line)
);

CREATE TABLE IF NOT EXISTS parse_errors (
    file_id  INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
    line     INTEGER NOT NULL,
    reason   TEXT NOT NULL,
    field    TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (file_id, line)
);

CREATE INDEX IF NOT EXISTS idx_events_session ON events(session_id);
`
