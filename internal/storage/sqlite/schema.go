package sqlite

// Schema creates all tables and indexes. Embeddings are stored as packed
// little-endian float32 blobs; similarity ranking happens in process, so
// the database only needs to hand the vectors back intact.
const Schema = `
CREATE TABLE IF NOT EXISTS chunks (
    id         TEXT PRIMARY KEY,
    doc_id     TEXT NOT NULL,
    scope_id   TEXT NOT NULL,
    text       TEXT NOT NULL,
    embedding  BLOB,
    category   TEXT NOT NULL DEFAULT 'canon',
    path       TEXT NOT NULL DEFAULT '',
    hash       TEXT NOT NULL DEFAULT '',
    reviewed   INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chunks_doc ON chunks(doc_id);
CREATE INDEX IF NOT EXISTS idx_chunks_scope ON chunks(scope_id);

CREATE TABLE IF NOT EXISTS doc_state (
    doc_id      TEXT PRIMARY KEY,
    hash        TEXT NOT NULL DEFAULT '',
    conflicting INTEGER NOT NULL DEFAULT 0,
    last_seen   TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_state (
    file_id    TEXT PRIMARY KEY,
    hash       TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS centroids (
    scope_id   TEXT PRIMARY KEY,
    vector     BLOB NOT NULL,
    count      INTEGER NOT NULL,
    version    INTEGER NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS entities (
    scope_id   TEXT NOT NULL,
    key        TEXT NOT NULL,
    tier       TEXT NOT NULL,
    data       TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (scope_id, key)
);

CREATE TABLE IF NOT EXISTS profiles (
    scope_id    TEXT NOT NULL,
    name        TEXT NOT NULL,
    role        TEXT NOT NULL DEFAULT '',
    personality TEXT NOT NULL DEFAULT '',
    evolution   TEXT NOT NULL DEFAULT '',
    biography   TEXT NOT NULL DEFAULT '',
    doc_id      TEXT NOT NULL DEFAULT '',
    updated_at  TIMESTAMP NOT NULL,
    PRIMARY KEY (scope_id, name)
);
`
