package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narravox/sentinel/internal/storage"
	"github.com/narravox/sentinel/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "sentinel.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testChunk(id, docID string, embedding []float32) *types.Chunk {
	return &types.Chunk{
		ID:        id,
		DocID:     docID,
		ScopeID:   "scope-1",
		Text:      "text of " + id,
		Embedding: embedding,
		Category:  types.CategoryCanon,
	}
}

func TestChunkRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	chunk := testChunk("c1", "doc-1", []float32{0.25, -1, 3.5})
	chunk.Path = "chapters/one.md"
	chunk.Hash = "abc123"
	require.NoError(t, store.UpsertChunk(ctx, chunk))

	got, err := store.GetChunk(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, chunk.DocID, got.DocID)
	assert.Equal(t, chunk.Text, got.Text)
	assert.Equal(t, chunk.Embedding, got.Embedding)
	assert.Equal(t, chunk.Path, got.Path)
	assert.Equal(t, types.CategoryCanon, got.Category)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestChunkUpsertReplaces(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertChunk(ctx, testChunk("c1", "doc-1", []float32{1, 0})))

	updated := testChunk("c1", "doc-1", []float32{0, 1})
	updated.Text = "revised"
	require.NoError(t, store.UpsertChunk(ctx, updated))

	got, err := store.GetChunk(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "revised", got.Text)
	assert.Equal(t, []float32{0, 1}, got.Embedding)

	chunks, err := store.ListChunks(ctx, "scope-1", 0)
	require.NoError(t, err)
	assert.Len(t, chunks, 1)
}

func TestGetChunkNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetChunk(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDeleteChunksForDocBatches(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// More than two delete batches worth of chunks for one document.
	total := storage.DeleteBatchSize*2 + 17
	for i := 0; i < total; i++ {
		require.NoError(t, store.UpsertChunk(ctx, testChunk(fmt.Sprintf("c%d", i), "doc-big", []float32{1})))
	}
	require.NoError(t, store.UpsertChunk(ctx, testChunk("other", "doc-other", []float32{1})))

	deleted, err := store.DeleteChunksForDoc(ctx, "doc-big")
	require.NoError(t, err)
	assert.Equal(t, total, deleted)

	ids, err := store.ListDocIDs(ctx, "scope-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"doc-other"}, ids)
}

func TestNearestRanksBySimilarity(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertChunk(ctx, testChunk("aligned", "d1", []float32{1, 0})))
	require.NoError(t, store.UpsertChunk(ctx, testChunk("diagonal", "d2", []float32{1, 1})))
	require.NoError(t, store.UpsertChunk(ctx, testChunk("orthogonal", "d3", []float32{0, 1})))

	hits, err := store.Nearest(ctx, "scope-1", []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "aligned", hits[0].Chunk.ID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
	assert.Equal(t, "diagonal", hits[1].Chunk.ID)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestChunksMentioning(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	hero := testChunk("c1", "d1", []float32{1})
	hero.Text = "Aria crossed the bridge at dawn."
	require.NoError(t, store.UpsertChunk(ctx, hero))

	other := testChunk("c2", "d2", []float32{1})
	other.Text = "The castle stood empty."
	require.NoError(t, store.UpsertChunk(ctx, other))

	chunks, err := store.ChunksMentioning(ctx, "scope-1", "aria", 5)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "c1", chunks[0].ID)
}

func TestMarkReviewed(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertChunk(ctx, testChunk("c1", "d1", []float32{1})))
	require.NoError(t, store.MarkReviewed(ctx, "c1"))

	got, err := store.GetChunk(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, got.Reviewed)

	assert.ErrorIs(t, store.MarkReviewed(ctx, "missing"), storage.ErrNotFound)
}

func TestDocHashLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	hash, err := store.GetDocHash(ctx, "doc-1")
	require.NoError(t, err)
	assert.Empty(t, hash)

	require.NoError(t, store.SetDocHash(ctx, "doc-1", "h1"))
	hash, err = store.GetDocHash(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "h1", hash)

	// Touch keeps the hash intact.
	require.NoError(t, store.TouchDoc(ctx, "doc-1"))
	hash, err = store.GetDocHash(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "h1", hash)

	require.NoError(t, store.DeleteDocState(ctx, "doc-1"))
	hash, err = store.GetDocHash(ctx, "doc-1")
	require.NoError(t, err)
	assert.Empty(t, hash)
}

func TestAuditHash(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	hash, err := store.GetAuditHash(ctx, "file-1")
	require.NoError(t, err)
	assert.Empty(t, hash)

	require.NoError(t, store.SetAuditHash(ctx, "file-1", "a1"))
	require.NoError(t, store.SetAuditHash(ctx, "file-1", "a2"))

	hash, err = store.GetAuditHash(ctx, "file-1")
	require.NoError(t, err)
	assert.Equal(t, "a2", hash)
}

func TestFoldIntoCentroidRunningMean(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.GetCentroid(ctx, "scope-1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	first, err := store.FoldIntoCentroid(ctx, "scope-1", []float32{1, 0})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Count)
	assert.Equal(t, 1, first.Version)
	assert.Equal(t, []float32{1, 0}, first.Vector)

	second, err := store.FoldIntoCentroid(ctx, "scope-1", []float32{0, 1})
	require.NoError(t, err)
	assert.Equal(t, 2, second.Count)
	assert.Equal(t, 2, second.Version)
	assert.InDelta(t, 0.5, float64(second.Vector[0]), 1e-6)
	assert.InDelta(t, 0.5, float64(second.Vector[1]), 1e-6)

	got, err := store.GetCentroid(ctx, "scope-1")
	require.NoError(t, err)
	assert.Equal(t, second.Version, got.Version)
	assert.Equal(t, second.Vector, got.Vector)
}

func TestFoldIntoCentroidDimensionMismatch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.FoldIntoCentroid(ctx, "scope-1", []float32{1, 0})
	require.NoError(t, err)

	_, err = store.FoldIntoCentroid(ctx, "scope-1", []float32{1, 0, 0})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestUpsertEntityMerges(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ghost := &types.DetectedEntity{
		Name:       "elena",
		Tier:       types.TierGhost,
		Category:   types.CategoryPerson,
		Confidence: 40,
	}
	require.NoError(t, store.UpsertEntity(ctx, "scope-1", "elena", ghost))

	anchor := &types.DetectedEntity{
		Name:        "Élena",
		Tier:        types.TierAnchor,
		Confidence:  95,
		AnchorDocID: "characters/elena.md",
	}
	require.NoError(t, store.UpsertEntity(ctx, "scope-1", "elena", anchor))

	got, err := store.GetEntity(ctx, "scope-1", "elena")
	require.NoError(t, err)
	assert.Equal(t, "Élena", got.Name)
	assert.Equal(t, types.TierAnchor, got.Tier)
	assert.Equal(t, types.CategoryPerson, got.Category)
	assert.Equal(t, 95, got.Confidence)
	assert.Equal(t, "characters/elena.md", got.AnchorDocID)
	assert.Equal(t, 2, got.Occurrences)
}

func TestListEntitiesOrdersByTier(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertEntity(ctx, "scope-1", "shade",
		&types.DetectedEntity{Name: "Shade", Tier: types.TierGhost}))
	require.NoError(t, store.UpsertEntity(ctx, "scope-1", "thomas",
		&types.DetectedEntity{Name: "Thomas", Tier: types.TierAnchor}))
	require.NoError(t, store.UpsertEntity(ctx, "scope-1", "tavernkeep",
		&types.DetectedEntity{Name: "Tavernkeep", Tier: types.TierLimbo}))

	entities, err := store.ListEntities(ctx, "scope-1")
	require.NoError(t, err)
	require.Len(t, entities, 3)
	assert.Equal(t, "Thomas", entities[0].Name)
	assert.Equal(t, "Tavernkeep", entities[1].Name)
	assert.Equal(t, "Shade", entities[2].Name)
}

func TestProfileRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.GetProfile(ctx, "scope-1", "Aria")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	profile := &types.CharacterProfile{
		Name:        "Aria",
		Role:        "protagonist",
		Personality: "stubborn, loyal",
		DocID:       "characters/aria.md",
	}
	require.NoError(t, store.SaveProfile(ctx, "scope-1", profile))

	got, err := store.GetProfile(ctx, "scope-1", "Aria")
	require.NoError(t, err)
	assert.Equal(t, "protagonist", got.Role)
	assert.Equal(t, "stubborn, loyal", got.Personality)
	assert.Equal(t, "characters/aria.md", got.DocID)
}

func TestHealAnchorLink(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertEntity(ctx, "scope-1", "thomas",
		&types.DetectedEntity{Name: "Thomas", Tier: types.TierAnchor, AnchorDocID: "old/path.md"}))

	require.NoError(t, store.HealAnchorLink(ctx, "scope-1", "thomas", "characters/thomas.md"))

	got, err := store.GetEntity(ctx, "scope-1", "thomas")
	require.NoError(t, err)
	assert.Equal(t, "characters/thomas.md", got.AnchorDocID)

	assert.ErrorIs(t, store.HealAnchorLink(ctx, "scope-1", "missing", "x.md"), storage.ErrNotFound)
}
