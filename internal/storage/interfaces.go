// Package storage defines the persistence interfaces behind the narrative
// index: the vector chunk store, the incremental-state store (content
// hashes, audit hashes, scope centroids), and the entity roster. The
// interfaces are small and composable so backends can implement them
// independently; SQLite is the default, PostgreSQL with pgvector the
// server-grade option.
package storage

import (
	"context"

	"github.com/narravox/sentinel/pkg/types"
)

// ChunkStore owns the vector records derived from documents. At most one
// authoritative chunk set exists per document ID: re-indexing deletes stale
// chunks before writing fresh ones so retrieval never returns duplicates.
type ChunkStore interface {
	// UpsertChunk creates or replaces a chunk record.
	UpsertChunk(ctx context.Context, chunk *types.Chunk) error

	// DeleteChunksForDoc removes every chunk owned by the document,
	// deleting in batches to respect per-operation ceilings of the
	// backend. Returns the number of chunks removed.
	DeleteChunksForDoc(ctx context.Context, docID string) (int, error)

	// Nearest returns the k chunks most similar to the query vector
	// within a scope, highest similarity first.
	Nearest(ctx context.Context, scopeID string, query []float32, k int) ([]types.ChunkHit, error)

	// ListDocIDs returns the distinct document IDs present in a scope.
	// Used by the ghost-document prune.
	ListDocIDs(ctx context.Context, scopeID string) ([]string, error)

	// ListChunks streams up to limit chunks of a scope for the bulk
	// drift scan. limit <= 0 means no cap.
	ListChunks(ctx context.Context, scopeID string, limit int) ([]types.Chunk, error)

	// GetChunk fetches one chunk by ID. Returns ErrNotFound when absent.
	GetChunk(ctx context.Context, chunkID string) (*types.Chunk, error)

	// ChunksMentioning returns up to limit chunks in a scope whose text
	// contains the given name, newest first. Used by the personality
	// check to gather a character's recent appearances.
	ChunksMentioning(ctx context.Context, scopeID, name string, limit int) ([]types.Chunk, error)

	// MarkReviewed flags a chunk as acknowledged by the author (drift
	// rescue). The chunk stays in the index.
	MarkReviewed(ctx context.Context, chunkID string) error

	// Close releases backend resources.
	Close() error
}

// StateStore keeps the incremental bookkeeping that makes re-ingestion and
// re-auditing idempotent, plus the versioned scope centroid.
type StateStore interface {
	// GetDocHash returns the content hash from the last successful
	// ingestion of the document, or "" when it was never ingested.
	GetDocHash(ctx context.Context, docID string) (string, error)

	// SetDocHash records the content hash after a successful ingestion.
	SetDocHash(ctx context.Context, docID, hash string) error

	// TouchDoc updates only the last-seen timestamp (hash unchanged).
	TouchDoc(ctx context.Context, docID string) error

	// DeleteDocState removes all bookkeeping for a pruned document.
	DeleteDocState(ctx context.Context, docID string) error

	// GetAuditHash / SetAuditHash are the audit-level equivalents,
	// keyed by file ID.
	GetAuditHash(ctx context.Context, fileID string) (string, error)
	SetAuditHash(ctx context.Context, fileID, hash string) error

	// GetCentroid returns the scope's reference centroid.
	// Returns ErrNotFound when the scope has no centroid yet.
	GetCentroid(ctx context.Context, scopeID string) (*types.Centroid, error)

	// FoldIntoCentroid folds one embedding into the scope centroid as a
	// running mean, bumping the version. Creates the centroid when none
	// exists.
	FoldIntoCentroid(ctx context.Context, scopeID string, embedding []float32) (*types.Centroid, error)

	// SetDocConflicting tags a document as carrying acknowledged
	// conflicting content (drift rescue) without touching its chunks.
	SetDocConflicting(ctx context.Context, docID string, conflicting bool) error

	Close() error
}

// RosterStore persists detected entities and canonical character profiles.
// Entities are keyed by (scope, normalized name); upserts merge rather than
// overwrite so occurrence counters and evidence accumulate.
type RosterStore interface {
	// UpsertEntity merges the entity into any existing record for the
	// same normalized key (types.DetectedEntity.MergeFrom semantics) or
	// creates it.
	UpsertEntity(ctx context.Context, scopeID, key string, entity *types.DetectedEntity) error

	// GetEntity fetches one entity. Returns ErrNotFound when absent.
	GetEntity(ctx context.Context, scopeID, key string) (*types.DetectedEntity, error)

	// ListEntities returns every entity in a scope.
	ListEntities(ctx context.Context, scopeID string) ([]types.DetectedEntity, error)

	// GetProfile fetches a character profile by display name.
	// Returns ErrNotFound when absent.
	GetProfile(ctx context.Context, scopeID, name string) (*types.CharacterProfile, error)

	// SaveProfile creates or replaces a character profile.
	SaveProfile(ctx context.Context, scopeID string, profile *types.CharacterProfile) error

	// HealAnchorLink points the roster record for the given key at the
	// confirmed anchor document so the UI never shows a broken
	// reference.
	HealAnchorLink(ctx context.Context, scopeID, key, docID string) error

	Close() error
}
