// Package ingest turns source documents into indexed, embedded chunks.
// Ingestion is idempotent: a content hash is kept per document and
// unchanged documents are skipped without touching the index.
package ingest

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/narravox/sentinel/internal/genai"
	"github.com/narravox/sentinel/internal/notify"
	"github.com/narravox/sentinel/internal/source"
	"github.com/narravox/sentinel/internal/storage"
	"github.com/narravox/sentinel/pkg/types"
)

// DefaultMaxChunkChars bounds the embedded prefix of a document. One chunk
// is kept per document; content past the budget is not indexed. Known
// recall tradeoff, revisit if long chapters start missing retrieval.
const DefaultMaxChunkChars = 8000

// Notifier receives engine events. The file journal and the websocket hub
// both satisfy it.
type Notifier interface {
	Notify(event notify.Event) error
}

// Pipeline ingests documents from a source into the chunk index.
type Pipeline struct {
	source   source.DocumentSource
	chunks   storage.ChunkStore
	state    storage.StateStore
	embedder genai.EmbeddingGenerator
	notifier Notifier

	// MaxChunkChars overrides DefaultMaxChunkChars when positive.
	MaxChunkChars int
}

// NewPipeline wires an ingestion pipeline. notifier may be nil.
func NewPipeline(src source.DocumentSource, chunks storage.ChunkStore, state storage.StateStore, embedder genai.EmbeddingGenerator, notifier Notifier) *Pipeline {
	return &Pipeline{
		source:   src,
		chunks:   chunks,
		state:    state,
		embedder: embedder,
		notifier: notifier,
	}
}

// IngestDocument ingests one document. Empty content and unchanged content
// (hash match) are skipped; otherwise the document's chunk set is replaced
// wholesale so at most one authoritative set exists at any time.
func (p *Pipeline) IngestDocument(ctx context.Context, scopeID string, ref types.DocumentRef) types.IngestResult {
	result := types.IngestResult{DocID: ref.ID, CompletedAt: time.Now()}

	text, err := p.source.ReadText(ctx, ref.ID)
	if err != nil {
		return p.fail(result, fmt.Errorf("failed to read document: %w", err))
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		result.Status = types.IngestSkipped
		return result
	}

	hash := fmt.Sprintf("%x", sha256.Sum256([]byte(trimmed)))
	prev, err := p.state.GetDocHash(ctx, ref.ID)
	if err != nil {
		return p.fail(result, fmt.Errorf("failed to load document state: %w", err))
	}
	if prev == hash {
		if err := p.state.TouchDoc(ctx, ref.ID); err != nil {
			log.Printf("ingest: failed to touch %s: %v", ref.ID, err)
		}
		result.Status = types.IngestSkipped
		p.emit(notify.Event{Type: notify.EventDocumentSkipped, ScopeID: scopeID, SubjectID: ref.ID})
		return result
	}

	prefix := truncateRunes(trimmed, p.maxChunkChars())
	embedding, err := p.embedder.Embed(ctx, prefix)
	if err != nil {
		return p.fail(result, fmt.Errorf("failed to embed document: %w", err))
	}

	// Replace, never append: stale chunks go first so retrieval can never
	// see two generations of the same document.
	deleted, err := p.chunks.DeleteChunksForDoc(ctx, ref.ID)
	if err != nil {
		return p.fail(result, fmt.Errorf("failed to clear stale chunks: %w", err))
	}
	result.ChunksDeleted = deleted

	chunk := &types.Chunk{
		ID:        uuid.NewString(),
		DocID:     ref.ID,
		ScopeID:   scopeID,
		Text:      prefix,
		Embedding: embedding,
		Category:  ref.Category,
		Path:      ref.Path,
		Hash:      hash,
		CreatedAt: time.Now(),
	}
	if err := p.chunks.UpsertChunk(ctx, chunk); err != nil {
		return p.fail(result, fmt.Errorf("failed to store chunk: %w", err))
	}
	result.ChunksCreated = 1

	// Only established narrative moves the scope baseline.
	if ref.Category == types.CategoryCanon {
		if _, err := p.state.FoldIntoCentroid(ctx, scopeID, embedding); err != nil {
			log.Printf("ingest: failed to fold centroid for %s: %v", ref.ID, err)
		}
	}

	if err := p.state.SetDocHash(ctx, ref.ID, hash); err != nil {
		return p.fail(result, fmt.Errorf("failed to record document hash: %w", err))
	}

	result.Status = types.IngestProcessed
	p.emit(notify.Event{Type: notify.EventDocumentIndexed, ScopeID: scopeID, SubjectID: ref.ID})
	return result
}

// IngestAll re-indexes every document in the scope, one goroutine per
// document. A failing document never affects its siblings. Documents that
// disappeared from the source since the last pass are pruned afterwards.
func (p *Pipeline) IngestAll(ctx context.Context, scopeID string) (*types.BatchIngestReport, error) {
	refs, err := p.source.ListDocuments(ctx, scopeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	log.Printf("ingest: indexing %d documents in scope %s", len(refs), scopeID)

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make([]types.IngestResult, 0, len(refs))
	)
	for _, ref := range refs {
		wg.Add(1)
		go func(ref types.DocumentRef) {
			defer wg.Done()
			result := p.IngestDocument(ctx, scopeID, ref)
			mu.Lock()
			results = append(results, result)
			mu.Unlock()
		}(ref)
	}
	wg.Wait()

	report := &types.BatchIngestReport{Results: results}
	for _, result := range results {
		switch result.Status {
		case types.IngestProcessed:
			report.Processed++
		case types.IngestSkipped:
			report.Skipped++
		case types.IngestError:
			report.Failed++
		}
	}

	pruned, err := p.PruneMissing(ctx, scopeID, refs)
	if err != nil {
		log.Printf("ingest: prune failed for scope %s: %v", scopeID, err)
	}
	report.Pruned = pruned

	log.Printf("ingest: scope %s done (processed=%d skipped=%d failed=%d pruned=%d)",
		scopeID, report.Processed, report.Skipped, report.Failed, report.Pruned)
	return report, nil
}

// PruneMissing removes chunks and state for documents that exist in the
// index but not in the fresh listing. Returns the number of documents
// pruned.
func (p *Pipeline) PruneMissing(ctx context.Context, scopeID string, present []types.DocumentRef) (int, error) {
	indexed, err := p.chunks.ListDocIDs(ctx, scopeID)
	if err != nil {
		return 0, fmt.Errorf("failed to list indexed documents: %w", err)
	}

	alive := make(map[string]bool, len(present))
	for _, ref := range present {
		alive[ref.ID] = true
	}

	pruned := 0
	for _, docID := range indexed {
		if alive[docID] {
			continue
		}
		if _, err := p.chunks.DeleteChunksForDoc(ctx, docID); err != nil {
			log.Printf("ingest: failed to prune chunks of %s: %v", docID, err)
			continue
		}
		if err := p.state.DeleteDocState(ctx, docID); err != nil {
			log.Printf("ingest: failed to prune state of %s: %v", docID, err)
		}
		pruned++
		p.emit(notify.Event{Type: notify.EventDocumentPruned, ScopeID: scopeID, SubjectID: docID})
	}
	return pruned, nil
}

func (p *Pipeline) maxChunkChars() int {
	if p.MaxChunkChars > 0 {
		return p.MaxChunkChars
	}
	return DefaultMaxChunkChars
}

func (p *Pipeline) fail(result types.IngestResult, err error) types.IngestResult {
	log.Printf("ingest: %s: %v", result.DocID, err)
	result.Status = types.IngestError
	result.Err = err.Error()
	return result
}

func (p *Pipeline) emit(event notify.Event) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.Notify(event); err != nil {
		log.Printf("ingest: failed to emit %s event: %v", event.Type, err)
	}
}

// truncateRunes cuts s to at most n runes without splitting a character.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
