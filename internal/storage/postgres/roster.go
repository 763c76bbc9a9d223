package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/narravox/sentinel/internal/storage"
	"github.com/narravox/sentinel/pkg/types"
)

// UpsertEntity merges the sighting into any existing record for the same
// normalized key, or creates it. The row is locked for the duration of the
// transaction so concurrent discoveries of the same entity serialise.
func (s *Store) UpsertEntity(ctx context.Context, scopeID, key string, entity *types.DetectedEntity) error {
	if entity == nil || scopeID == "" || key == "" {
		return fmt.Errorf("%w: scope ID, key and entity are required", storage.ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin entity upsert: %w", err)
	}
	defer tx.Rollback()

	var data []byte
	err = tx.QueryRowContext(ctx,
		`SELECT data FROM entities WHERE scope_id = $1 AND key = $2 FOR UPDATE`,
		scopeID, key).Scan(&data)

	record := *entity
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if record.Occurrences < 1 {
			record.Occurrences = 1
		}
		record.UpdatedAt = time.Now()
	case err != nil:
		return fmt.Errorf("failed to read entity: %w", err)
	default:
		var existing types.DetectedEntity
		if err := json.Unmarshal(data, &existing); err != nil {
			return fmt.Errorf("failed to decode entity %s/%s: %w", scopeID, key, err)
		}
		existing.MergeFrom(entity)
		record = existing
	}

	encoded, err := json.Marshal(&record)
	if err != nil {
		return fmt.Errorf("failed to encode entity: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO entities (scope_id, key, tier, data, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT(scope_id, key) DO UPDATE SET
			tier = excluded.tier,
			data = excluded.data,
			updated_at = excluded.updated_at`,
		scopeID, key, string(record.Tier), encoded, record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to write entity: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit entity upsert: %w", err)
	}
	return nil
}

// GetEntity fetches one entity by normalized key.
func (s *Store) GetEntity(ctx context.Context, scopeID, key string) (*types.DetectedEntity, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM entities WHERE scope_id = $1 AND key = $2`,
		scopeID, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entity: %w", err)
	}

	var entity types.DetectedEntity
	if err := json.Unmarshal(data, &entity); err != nil {
		return nil, fmt.Errorf("failed to decode entity %s/%s: %w", scopeID, key, err)
	}
	return &entity, nil
}

// ListEntities returns every entity in a scope, strongest tier first.
func (s *Store) ListEntities(ctx context.Context, scopeID string) ([]types.DetectedEntity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT data FROM entities WHERE scope_id = $1
		ORDER BY CASE tier WHEN 'ANCHOR' THEN 0 WHEN 'LIMBO' THEN 1 ELSE 2 END, key`,
		scopeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}
	defer rows.Close()

	var entities []types.DetectedEntity
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var entity types.DetectedEntity
		if err := json.Unmarshal(data, &entity); err != nil {
			return nil, fmt.Errorf("failed to decode entity: %w", err)
		}
		entities = append(entities, entity)
	}
	return entities, rows.Err()
}

// GetProfile fetches a character profile by display name.
func (s *Store) GetProfile(ctx context.Context, scopeID, name string) (*types.CharacterProfile, error) {
	var profile types.CharacterProfile
	err := s.db.QueryRowContext(ctx, `
		SELECT name, role, personality, evolution, biography, doc_id, updated_at
		FROM profiles WHERE scope_id = $1 AND name = $2`,
		scopeID, name).Scan(&profile.Name, &profile.Role, &profile.Personality,
		&profile.Evolution, &profile.Biography, &profile.DocID, &profile.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &profile, nil
}

// SaveProfile creates or replaces a character profile.
func (s *Store) SaveProfile(ctx context.Context, scopeID string, profile *types.CharacterProfile) error {
	if profile == nil || profile.Name == "" {
		return fmt.Errorf("%w: profile with a name is required", storage.ErrInvalidInput)
	}

	updatedAt := profile.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (scope_id, name, role, personality, evolution, biography, doc_id, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT(scope_id, name) DO UPDATE SET
			role = excluded.role,
			personality = excluded.personality,
			evolution = excluded.evolution,
			biography = excluded.biography,
			doc_id = excluded.doc_id,
			updated_at = excluded.updated_at`,
		scopeID, profile.Name, profile.Role, profile.Personality,
		profile.Evolution, profile.Biography, profile.DocID, updatedAt)
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// HealAnchorLink points the roster record at the confirmed anchor document.
func (s *Store) HealAnchorLink(ctx context.Context, scopeID, key, docID string) error {
	entity, err := s.GetEntity(ctx, scopeID, key)
	if err != nil {
		return err
	}
	if entity.AnchorDocID == docID {
		return nil
	}

	entity.AnchorDocID = docID
	entity.UpdatedAt = time.Now()
	encoded, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("failed to encode entity: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE entities SET data = $1, updated_at = $2 WHERE scope_id = $3 AND key = $4`,
		encoded, entity.UpdatedAt, scopeID, key)
	if err != nil {
		return fmt.Errorf("failed to heal anchor link: %w", err)
	}
	return nil
}
