// Package postgres is the server-grade backend. It mirrors the sqlite
// package on lib/pq, with one difference that matters: nearest-neighbour
// ranking is pushed into the database through the pgvector cosine-distance
// operator instead of scanning embeddings in process.
package postgres

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/narravox/sentinel/internal/storage"
)

// Store implements storage.ChunkStore, storage.StateStore, and
// storage.RosterStore on a PostgreSQL database with the pgvector extension.
type Store struct {
	db *sql.DB
}

var (
	_ storage.ChunkStore  = (*Store)(nil)
	_ storage.StateStore  = (*Store)(nil)
	_ storage.RosterStore = (*Store)(nil)
)

// New connects to the database at dsn and ensures the pgvector extension
// and schema exist.
func New(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// The extension may already be installed by an operator without the
	// privilege to create it; only fail later if the vector type is truly
	// absent.
	if _, err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		log.Printf("postgres: could not create vector extension (may already exist): %v", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Schema creates all tables and indexes. Vectors live in pgvector columns
// so similarity ranking can run inside the database.
const Schema = `
CREATE TABLE IF NOT EXISTS chunks (
    id         TEXT PRIMARY KEY,
    doc_id     TEXT NOT NULL,
    scope_id   TEXT NOT NULL,
    text       TEXT NOT NULL,
    embedding  vector,
    category   TEXT NOT NULL DEFAULT 'canon',
    path       TEXT NOT NULL DEFAULT '',
    hash       TEXT NOT NULL DEFAULT '',
    reviewed   BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chunks_doc ON chunks(doc_id);
CREATE INDEX IF NOT EXISTS idx_chunks_scope ON chunks(scope_id);

CREATE TABLE IF NOT EXISTS doc_state (
    doc_id      TEXT PRIMARY KEY,
    hash        TEXT NOT NULL DEFAULT '',
    conflicting BOOLEAN NOT NULL DEFAULT FALSE,
    last_seen   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_state (
    file_id    TEXT PRIMARY KEY,
    hash       TEXT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS centroids (
    scope_id   TEXT PRIMARY KEY,
    vector     vector NOT NULL,
    count      INTEGER NOT NULL,
    version    INTEGER NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS entities (
    scope_id   TEXT NOT NULL,
    key        TEXT NOT NULL,
    tier       TEXT NOT NULL,
    data       JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL,
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
    updated_at  TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (scope_id, name)
);
`
