package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/narravox/sentinel/internal/similarity"
	"github.com/narravox/sentinel/internal/storage"
	"github.com/narravox/sentinel/pkg/types"
)

const chunkColumns = "id, doc_id, scope_id, text, embedding, category, path, hash, reviewed, created_at"

// UpsertChunk creates or replaces a chunk record.
func (s *Store) UpsertChunk(ctx context.Context, chunk *types.Chunk) error {
	if chunk == nil {
		return storage.ErrInvalidInput
	}
	if chunk.ID == "" || chunk.DocID == "" || chunk.ScopeID == "" {
		return fmt.Errorf("%w: chunk ID, doc ID and scope ID are required", storage.ErrInvalidInput)
	}

	createdAt := chunk.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chunks (`+chunkColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			doc_id = excluded.doc_id,
			scope_id = excluded.scope_id,
			text = excluded.text,
			embedding = excluded.embedding,
			category = excluded.category,
			path = excluded.path,
			hash = excluded.hash,
			reviewed = excluded.reviewed,
			created_at = excluded.created_at`,
		chunk.ID, chunk.DocID, chunk.ScopeID, chunk.Text,
		encodeVector(chunk.Embedding), string(chunk.Category), chunk.Path,
		chunk.Hash, chunk.Reviewed, createdAt)
	if err != nil {
		return fmt.Errorf("failed to upsert chunk: %w", err)
	}
	return nil
}

// DeleteChunksForDoc removes every chunk owned by docID in batches of
// storage.DeleteBatchSize so a huge document never turns into one
// unbounded delete.
func (s *Store) DeleteChunksForDoc(ctx context.Context, docID string) (int, error) {
	if docID == "" {
		return 0, fmt.Errorf("%w: doc ID is required", storage.ErrInvalidInput)
	}

	total := 0
	for {
		res, err := s.db.ExecContext(ctx, `
			DELETE FROM chunks WHERE rowid IN (
				SELECT rowid FROM chunks WHERE doc_id = ? LIMIT ?
			)`, docID, storage.DeleteBatchSize)
		if err != nil {
			return total, fmt.Errorf("failed to delete chunks for %s: %w", docID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, err
		}
		total += int(n)
		if n < int64(storage.DeleteBatchSize) {
			return total, nil
		}
	}
}

// Nearest ranks every embedded chunk of the scope against the query vector
// in process. Scope sizes here are a writer's manuscript, not a corpus, so
// a full scan with an exact ranking beats maintaining an ANN index.
func (s *Store) Nearest(ctx context.Context, scopeID string, query []float32, k int) ([]types.ChunkHit, error) {
	chunks, err := s.ListChunks(ctx, scopeID, 0)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*types.Chunk, len(chunks))
	candidates := make([]similarity.Candidate, 0, len(chunks))
	for i := range chunks {
		if len(chunks[i].Embedding) == 0 {
			continue
		}
		byID[chunks[i].ID] = &chunks[i]
		candidates = append(candidates, similarity.Candidate{ID: chunks[i].ID, Vector: chunks[i].Embedding})
	}

	scored := similarity.TopK(query, candidates, k)
	hits := make([]types.ChunkHit, 0, len(scored))
	for _, sc := range scored {
		hits = append(hits, types.ChunkHit{Chunk: *byID[sc.ID], Score: sc.Score})
	}
	return hits, nil
}

// ListDocIDs returns the distinct document IDs present in the scope.
func (s *Store) ListDocIDs(ctx context.Context, scopeID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT doc_id FROM chunks WHERE scope_id = ? ORDER BY doc_id`, scopeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list doc IDs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListChunks returns up to limit chunks of a scope, oldest first.
// limit <= 0 means no cap.
func (s *Store) ListChunks(ctx context.Context, scopeID string, limit int) ([]types.Chunk, error) {
	query := `SELECT ` + chunkColumns + ` FROM chunks WHERE scope_id = ? ORDER BY created_at, id`
	args := []interface{}{scopeID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

// GetChunk fetches one chunk by ID.
func (s *Store) GetChunk(ctx context.Context, chunkID string) (*types.Chunk, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+chunkColumns+` FROM chunks WHERE id = ?`, chunkID)

	chunk, err := scanChunk(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chunk %s: %w", chunkID, err)
	}
	return chunk, nil
}

// ChunksMentioning returns up to limit chunks whose text contains name,
// newest first. The match is case-insensitive and substring-based; the
// caller is expected to pass a display name, not a pattern.
func (s *Store) ChunksMentioning(ctx context.Context, scopeID, name string, limit int) ([]types.Chunk, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", storage.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+chunkColumns+` FROM chunks
		WHERE scope_id = ? AND instr(lower(text), lower(?)) > 0
		ORDER BY created_at DESC, id LIMIT ?`, scopeID, name, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

// MarkReviewed flags a chunk as acknowledged by the author.
func (s *Store) MarkReviewed(ctx context.Context, chunkID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE chunks SET reviewed = 1 WHERE id = ?`, chunkID)
	if err != nil {
		return fmt.Errorf("failed to mark chunk reviewed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanChunk(row rowScanner) (*types.Chunk, error) {
	var (
		chunk    types.Chunk
		blob     []byte
		category string
	)
	err := row.Scan(&chunk.ID, &chunk.DocID, &chunk.ScopeID, &chunk.Text,
		&blob, &category, &chunk.Path, &chunk.Hash, &chunk.Reviewed, &chunk.CreatedAt)
	if err != nil {
		return nil, err
	}
	chunk.Embedding = decodeVector(blob)
	chunk.Category = types.DocumentCategory(category)
	return &chunk, nil
}

func scanChunks(rows *sql.Rows) ([]types.Chunk, error) {
	var chunks []types.Chunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *chunk)
	}
	return chunks, rows.Err()
}
