package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	pgvector "github.com/pgvector/pgvector-go"

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

	var embedding interface{}
	if len(chunk.Embedding) > 0 {
		embedding = pgvector.NewVector(chunk.Embedding)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chunks (`+chunkColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
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
		embedding, string(chunk.Category), chunk.Path,
		chunk.Hash, chunk.Reviewed, createdAt)
	if err != nil {
		return fmt.Errorf("failed to upsert chunk: %w", err)
	}
	return nil
}

// DeleteChunksForDoc removes every chunk owned by docID in batches of
// storage.DeleteBatchSize.
func (s *Store) DeleteChunksForDoc(ctx context.Context, docID string) (int, error) {
	if docID == "" {
		return 0, fmt.Errorf("%w: doc ID is required", storage.ErrInvalidInput)
	}

	total := 0
	for {
		res, err := s.db.ExecContext(ctx, `
			DELETE FROM chunks WHERE id IN (
				SELECT id FROM chunks WHERE doc_id = $1 LIMIT $2
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

// Nearest ranks chunks by the pgvector cosine-distance operator. Cosine
// similarity is one minus the reported distance.
func (s *Store) Nearest(ctx context.Context, scopeID string, query []float32, k int) ([]types.ChunkHit, error) {
	if len(query) == 0 || k <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+chunkColumns+`, 1 - (embedding <=> $2) AS score
		FROM chunks
		WHERE scope_id = $1 AND embedding IS NOT NULL
		ORDER BY embedding <=> $2, id
		LIMIT $3`, scopeID, pgvector.NewVector(query), k)
	if err != nil {
		return nil, fmt.Errorf("failed to query nearest chunks: %w", err)
	}
	defer rows.Close()

	var hits []types.ChunkHit
	for rows.Next() {
		var (
			chunk    types.Chunk
			vec      pgvector.Vector
			category string
			score    float64
		)
		err := rows.Scan(&chunk.ID, &chunk.DocID, &chunk.ScopeID, &chunk.Text,
			&vec, &category, &chunk.Path, &chunk.Hash, &chunk.Reviewed,
			&chunk.CreatedAt, &score)
		if err != nil {
			return nil, err
		}
		chunk.Embedding = vec.Slice()
		chunk.Category = types.DocumentCategory(category)
		hits = append(hits, types.ChunkHit{Chunk: chunk, Score: score})
	}
	return hits, rows.Err()
}

// ListDocIDs returns the distinct document IDs present in the scope.
func (s *Store) ListDocIDs(ctx context.Context, scopeID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT doc_id FROM chunks WHERE scope_id = $1 ORDER BY doc_id`, scopeID)
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
	query := `SELECT ` + chunkColumns + ` FROM chunks WHERE scope_id = $1 ORDER BY created_at, id`
	args := []interface{}{scopeID}
	if limit > 0 {
		query += " LIMIT $2"
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
		`SELECT `+chunkColumns+` FROM chunks WHERE id = $1`, chunkID)

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
// newest first.
func (s *Store) ChunksMentioning(ctx context.Context, scopeID, name string, limit int) ([]types.Chunk, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", storage.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+chunkColumns+` FROM chunks
		WHERE scope_id = $1 AND position(lower($2) in lower(text)) > 0
		ORDER BY created_at DESC, id LIMIT $3`, scopeID, name, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

// MarkReviewed flags a chunk as acknowledged by the author.
func (s *Store) MarkReviewed(ctx context.Context, chunkID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE chunks SET reviewed = TRUE WHERE id = $1`, chunkID)
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

// nullVector scans a nullable vector column. Chunks indexed before their
// embedding call succeeded carry NULL; they surface as a zero-length
// vector, matching the sqlite backend.
type nullVector struct {
	vec   pgvector.Vector
	valid bool
}

func (n *nullVector) Scan(src interface{}) error {
	if src == nil {
		n.valid = false
		return nil
	}
	n.valid = true
	return n.vec.Scan(src)
}

func (n *nullVector) Slice() []float32 {
	if !n.valid {
		return nil
	}
	return n.vec.Slice()
}

func scanChunk(row rowScanner) (*types.Chunk, error) {
	var (
		chunk    types.Chunk
		vec      nullVector
		category string
	)
	err := row.Scan(&chunk.ID, &chunk.DocID, &chunk.ScopeID, &chunk.Text,
		&vec, &category, &chunk.Path, &chunk.Hash, &chunk.Reviewed, &chunk.CreatedAt)
	if err != nil {
		return nil, err
	}
	chunk.Embedding = vec.Slice()
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
