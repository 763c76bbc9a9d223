package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narravox/sentinel/internal/notify"
	"github.com/narravox/sentinel/internal/storage"
	"github.com/narravox/sentinel/internal/storage/sqlite"
	"github.com/narravox/sentinel/pkg/types"
)

// fakeSource serves documents from a map.
type fakeSource struct {
	docs map[string]string
	refs []types.DocumentRef
}

func (f *fakeSource) ListDocuments(ctx context.Context, scopeID string) ([]types.DocumentRef, error) {
	return f.refs, nil
}

func (f *fakeSource) ReadText(ctx context.Context, id string) (string, error) {
	text, ok := f.docs[id]
	if !ok {
		return "", errors.New("document not found")
	}
	return text, nil
}

// fakeEmbedder returns a deterministic vector; fails when broken.
type fakeEmbedder struct {
	broken bool
	calls  int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.broken {
		return nil, errors.New("embedding service down")
	}
	return []float32{float32(len(text)), 1}, nil
}

func (f *fakeEmbedder) GetModel() string { return "fake-embed" }

type recordingNotifier struct {
	events []notify.Event
}

func (r *recordingNotifier) Notify(event notify.Event) error {
	r.events = append(r.events, event)
	return nil
}

func canonRef(id string) types.DocumentRef {
	return types.DocumentRef{ID: id, Name: filepath.Base(id), Category: types.CategoryCanon, Path: id}
}

func newTestPipeline(t *testing.T, src *fakeSource) (*Pipeline, *sqlite.Store, *fakeEmbedder, *recordingNotifier) {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "sentinel.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	embedder := &fakeEmbedder{}
	notifier := &recordingNotifier{}
	return NewPipeline(src, store, store, embedder, notifier), store, embedder, notifier
}

func TestIngestDocumentCreatesChunk(t *testing.T) {
	src := &fakeSource{docs: map[string]string{"one.md": "It begins."}}
	pipeline, store, _, notifier := newTestPipeline(t, src)
	ctx := context.Background()

	result := pipeline.IngestDocument(ctx, "scope-1", canonRef("one.md"))
	assert.Equal(t, types.IngestProcessed, result.Status)
	assert.Equal(t, 1, result.ChunksCreated)

	chunks, err := store.ListChunks(ctx, "scope-1", 0)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "one.md", chunks[0].DocID)
	assert.Equal(t, "It begins.", chunks[0].Text)
	assert.NotEmpty(t, chunks[0].Embedding)

	require.Len(t, notifier.events, 1)
	assert.Equal(t, notify.EventDocumentIndexed, notifier.events[0].Type)
}

func TestIngestDocumentSkipsUnchanged(t *testing.T) {
	src := &fakeSource{docs: map[string]string{"one.md": "stable content"}}
	pipeline, _, embedder, _ := newTestPipeline(t, src)
	ctx := context.Background()

	first := pipeline.IngestDocument(ctx, "scope-1", canonRef("one.md"))
	assert.Equal(t, types.IngestProcessed, first.Status)

	second := pipeline.IngestDocument(ctx, "scope-1", canonRef("one.md"))
	assert.Equal(t, types.IngestSkipped, second.Status)
	assert.Equal(t, 1, embedder.calls, "unchanged content must not be re-embedded")
}

func TestIngestDocumentReplacesOnChange(t *testing.T) {
	src := &fakeSource{docs: map[string]string{"one.md": "first draft"}}
	pipeline, store, _, _ := newTestPipeline(t, src)
	ctx := context.Background()

	pipeline.IngestDocument(ctx, "scope-1", canonRef("one.md"))
	src.docs["one.md"] = "second draft"

	result := pipeline.IngestDocument(ctx, "scope-1", canonRef("one.md"))
	assert.Equal(t, types.IngestProcessed, result.Status)
	assert.Equal(t, 1, result.ChunksDeleted)

	chunks, err := store.ListChunks(ctx, "scope-1", 0)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "second draft", chunks[0].Text)
}

func TestIngestDocumentSkipsEmpty(t *testing.T) {
	src := &fakeSource{docs: map[string]string{"empty.md": "  \n\t  "}}
	pipeline, store, embedder, _ := newTestPipeline(t, src)
	ctx := context.Background()

	result := pipeline.IngestDocument(ctx, "scope-1", canonRef("empty.md"))
	assert.Equal(t, types.IngestSkipped, result.Status)
	assert.Equal(t, 0, embedder.calls)

	chunks, err := store.ListChunks(ctx, "scope-1", 0)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestIngestDocumentTruncatesPrefix(t *testing.T) {
	long := make([]byte, 0, 200)
	for i := 0; i < 200; i++ {
		long = append(long, 'a')
	}
	src := &fakeSource{docs: map[string]string{"long.md": string(long)}}
	pipeline, store, _, _ := newTestPipeline(t, src)
	pipeline.MaxChunkChars = 50
	ctx := context.Background()

	result := pipeline.IngestDocument(ctx, "scope-1", canonRef("long.md"))
	assert.Equal(t, types.IngestProcessed, result.Status)

	chunks, err := store.ListChunks(ctx, "scope-1", 0)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Len(t, chunks[0].Text, 50)
}

func TestIngestCanonFoldsCentroid(t *testing.T) {
	src := &fakeSource{docs: map[string]string{
		"chapter.md": "canon text",
		"note.md":    "reference text",
	}}
	pipeline, store, _, _ := newTestPipeline(t, src)
	ctx := context.Background()

	note := canonRef("note.md")
	note.Category = types.CategoryReference
	pipeline.IngestDocument(ctx, "scope-1", note)

	_, err := store.GetCentroid(ctx, "scope-1")
	assert.ErrorIs(t, err, storage.ErrNotFound, "reference material must not move the baseline")

	pipeline.IngestDocument(ctx, "scope-1", canonRef("chapter.md"))
	centroid, err := store.GetCentroid(ctx, "scope-1")
	require.NoError(t, err)
	assert.Equal(t, 1, centroid.Count)
}

func TestIngestDocumentEmbedFailureKeepsOldChunks(t *testing.T) {
	src := &fakeSource{docs: map[string]string{"one.md": "first"}}
	pipeline, store, embedder, _ := newTestPipeline(t, src)
	ctx := context.Background()

	pipeline.IngestDocument(ctx, "scope-1", canonRef("one.md"))

	src.docs["one.md"] = "second"
	embedder.broken = true
	result := pipeline.IngestDocument(ctx, "scope-1", canonRef("one.md"))
	assert.Equal(t, types.IngestError, result.Status)
	assert.NotEmpty(t, result.Err)

	chunks, err := store.ListChunks(ctx, "scope-1", 0)
	require.NoError(t, err)
	require.Len(t, chunks, 1, "failed re-ingest must not destroy the existing index")
	assert.Equal(t, "first", chunks[0].Text)
}

func TestIngestAllAggregatesAndPrunes(t *testing.T) {
	src := &fakeSource{
		docs: map[string]string{
			"a.md": "alpha",
			"b.md": "beta",
			"c.md": "",
		},
		refs: []types.DocumentRef{canonRef("a.md"), canonRef("b.md"), canonRef("c.md")},
	}
	pipeline, store, _, notifier := newTestPipeline(t, src)
	ctx := context.Background()

	// A document indexed earlier but gone from the source now.
	ghost := canonRef("ghost.md")
	src.docs["ghost.md"] = "was here"
	result := pipeline.IngestDocument(ctx, "scope-1", ghost)
	require.Equal(t, types.IngestProcessed, result.Status)
	delete(src.docs, "ghost.md")

	report, err := pipeline.IngestAll(ctx, "scope-1")
	require.NoError(t, err)
	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, 1, report.Pruned)

	ids, err := store.ListDocIDs(ctx, "scope-1")
	require.NoError(t, err)
	assert.NotContains(t, ids, "ghost.md")

	var pruned bool
	for _, event := range notifier.events {
		if event.Type == notify.EventDocumentPruned && event.SubjectID == "ghost.md" {
			pruned = true
		}
	}
	assert.True(t, pruned)
}

func TestIngestAllIsolatesFailures(t *testing.T) {
	src := &fakeSource{
		docs: map[string]string{"good.md": "fine"},
		refs: []types.DocumentRef{canonRef("good.md"), canonRef("missing.md")},
	}
	pipeline, _, _, _ := newTestPipeline(t, src)

	report, err := pipeline.IngestAll(context.Background(), "scope-1")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, report.Failed)
}
