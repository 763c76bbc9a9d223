package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/narravox/sentinel/internal/storage"
	"github.com/narravox/sentinel/pkg/types"
)

// GetDocHash returns the hash from the last successful ingestion, or ""
// when the document was never ingested.
func (s *Store) GetDocHash(ctx context.Context, docID string) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx,
		`SELECT hash FROM doc_state WHERE doc_id = ?`, docID).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get doc hash: %w", err)
	}
	return hash, nil
}

// SetDocHash records the content hash after a successful ingestion.
func (s *Store) SetDocHash(ctx context.Context, docID, hash string) error {
	if docID == "" {
		return fmt.Errorf("%w: doc ID is required", storage.ErrInvalidInput)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO doc_state (doc_id, hash, last_seen) VALUES (?, ?, ?)
		ON CONFLICT(doc_id) DO UPDATE SET hash = excluded.hash, last_seen = excluded.last_seen`,
		docID, hash, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set doc hash: %w", err)
	}
	return nil
}

// TouchDoc updates only the last-seen timestamp.
func (s *Store) TouchDoc(ctx context.Context, docID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO doc_state (doc_id, last_seen) VALUES (?, ?)
		ON CONFLICT(doc_id) DO UPDATE SET last_seen = excluded.last_seen`,
		docID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to touch doc: %w", err)
	}
	return nil
}

// DeleteDocState removes all bookkeeping for a pruned document.
func (s *Store) DeleteDocState(ctx context.Context, docID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM doc_state WHERE doc_id = ?`, docID)
	if err != nil {
		return fmt.Errorf("failed to delete doc state: %w", err)
	}
	return nil
}

// GetAuditHash returns the content hash of the last completed audit for the
// file, or "" when never audited.
func (s *Store) GetAuditHash(ctx context.Context, fileID string) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx,
		`SELECT hash FROM audit_state WHERE file_id = ?`, fileID).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get audit hash: %w", err)
	}
	return hash, nil
}

// SetAuditHash records the content hash of a completed audit.
func (s *Store) SetAuditHash(ctx context.Context, fileID, hash string) error {
	if fileID == "" {
		return fmt.Errorf("%w: file ID is required", storage.ErrInvalidInput)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_state (file_id, hash, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(file_id) DO UPDATE SET hash = excluded.hash, updated_at = excluded.updated_at`,
		fileID, hash, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set audit hash: %w", err)
	}
	return nil
}

// GetCentroid returns the scope's reference centroid.
func (s *Store) GetCentroid(ctx context.Context, scopeID string) (*types.Centroid, error) {
	var (
		centroid = types.Centroid{ScopeID: scopeID}
		blob     []byte
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT vector, count, version, updated_at FROM centroids WHERE scope_id = ?`,
		scopeID).Scan(&blob, &centroid.Count, &centroid.Version, &centroid.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get centroid: %w", err)
	}
	centroid.Vector = decodeVector(blob)
	return &centroid, nil
}

// FoldIntoCentroid folds one embedding into the scope centroid as a running
// mean and bumps the version. The read-modify-write runs inside a
// transaction so concurrent folds never lose an update.
func (s *Store) FoldIntoCentroid(ctx context.Context, scopeID string, embedding []float32) (*types.Centroid, error) {
	if scopeID == "" || len(embedding) == 0 {
		return nil, fmt.Errorf("%w: scope ID and embedding are required", storage.ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin centroid fold: %w", err)
	}
	defer tx.Rollback()

	centroid := types.Centroid{ScopeID: scopeID}
	var blob []byte
	err = tx.QueryRowContext(ctx,
		`SELECT vector, count, version FROM centroids WHERE scope_id = ?`,
		scopeID).Scan(&blob, &centroid.Count, &centroid.Version)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		centroid.Vector = append([]float32(nil), embedding...)
		centroid.Count = 1
		centroid.Version = 1
	case err != nil:
		return nil, fmt.Errorf("failed to read centroid: %w", err)
	default:
		centroid.Vector = decodeVector(blob)
		if len(centroid.Vector) != len(embedding) {
			return nil, fmt.Errorf("%w: embedding has %d dims, centroid has %d",
				storage.ErrInvalidInput, len(embedding), len(centroid.Vector))
		}
		n := float32(centroid.Count)
		for i := range centroid.Vector {
			centroid.Vector[i] = (centroid.Vector[i]*n + embedding[i]) / (n + 1)
		}
		centroid.Count++
		centroid.Version++
	}

	centroid.UpdatedAt = time.Now()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO centroids (scope_id, vector, count, version, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(scope_id) DO UPDATE SET
			vector = excluded.vector,
			count = excluded.count,
			version = excluded.version,
			updated_at = excluded.updated_at`,
		scopeID, encodeVector(centroid.Vector), centroid.Count, centroid.Version, centroid.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to write centroid: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit centroid fold: %w", err)
	}
	return &centroid, nil
}

// SetDocConflicting tags a document as carrying acknowledged conflicting
// content without touching its chunks.
func (s *Store) SetDocConflicting(ctx context.Context, docID string, conflicting bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO doc_state (doc_id, conflicting, last_seen) VALUES (?, ?, ?)
		ON CONFLICT(doc_id) DO UPDATE SET conflicting = excluded.conflicting, last_seen = excluded.last_seen`,
		docID, conflicting, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set conflicting flag: %w", err)
	}
	return nil
}
