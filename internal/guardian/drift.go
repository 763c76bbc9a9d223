package guardian

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/narravox/sentinel/internal/notify"
	"github.com/narravox/sentinel/internal/similarity"
	"github.com/narravox/sentinel/internal/storage"
	"github.com/narravox/sentinel/pkg/types"
)

// Bucket heuristics for critical chunks: first the path, then keywords in
// the text, else uncategorized.
var (
	identityPathMarkers   = []string{"personaje", "character", "perfil", "profile", "cast"}
	geographyPathMarkers  = []string{"lugar", "location", "mapa", "map", "geograf", "geography", "region"}
	continuityPathMarkers = []string{"timeline", "cronolog", "historia", "history"}

	identityKeywords   = []string{"nombre", "name", "identidad", "identity", "rostro", "face"}
	geographyKeywords  = []string{"ciudad", "city", "norte", "north", "sur", "south", "reino", "kingdom", "rio", "river"}
	continuityKeywords = []string{"antes", "before", "despues", "after", "edad", "age", "anos", "years"}
)

// ScanDrift sweeps the scope's chunks against the centroid and buckets
// every critical chunk. A scope with no centroid has nothing to drift
// from: the scan reports skipped, not an error.
func (g *Guardian) ScanDrift(ctx context.Context, scopeID string) (*types.DriftScanResult, error) {
	result := &types.DriftScanResult{
		Success: true,
		Alerts:  make(map[types.DriftCategory][]types.DriftAlert),
	}

	centroid, err := g.state.GetCentroid(ctx, scopeID)
	if errors.Is(err, storage.ErrNotFound) {
		result.Status = "skipped"
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load centroid: %w", err)
	}

	// One row past the cap distinguishes "exactly at the cap" from
	// "truncated".
	chunks, err := g.chunks.ListChunks(ctx, scopeID, ScanCap+1)
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}
	if len(chunks) > ScanCap {
		result.Partial = true
		chunks = chunks[:ScanCap]
	}

	alerts := 0
	for _, chunk := range chunks {
		if len(chunk.Embedding) == 0 || chunk.Reviewed {
			continue
		}
		result.Scanned++

		score, err := similarity.Cosine(chunk.Embedding, centroid.Vector)
		if err != nil {
			log.Printf("guardian: scan skipping chunk %s: %v", chunk.ID, err)
			continue
		}
		drift := 1 - score
		if drift < DriftCriticalMin {
			continue
		}

		bucket := categorizeAlert(chunk.Path, chunk.Text)
		if len(result.Alerts[bucket]) >= maxAlertsPerBucket {
			continue
		}
		result.Alerts[bucket] = append(result.Alerts[bucket], types.DriftAlert{
			ChunkID: chunk.ID,
			DocID:   chunk.DocID,
			Path:    chunk.Path,
			Score:   drift,
			Excerpt: excerptPrefix(chunk.Text),
			Bucket:  bucket,
		})
		alerts++
	}

	if result.Partial {
		result.Status = "partial"
	} else {
		result.Status = "ok"
	}

	if alerts > 0 {
		g.emit(notify.Event{
			Type:      notify.EventDriftAlert,
			ScopeID:   scopeID,
			SubjectID: scopeID,
			Detail:    fmt.Sprintf("%d critical chunks", alerts),
		})
	}
	log.Printf("guardian: drift scan of %s: scanned=%d alerts=%d partial=%t",
		scopeID, result.Scanned, alerts, result.Partial)
	return result, nil
}

// Rescue acknowledges a flagged chunk: the author has reviewed the drift
// and accepts it. The chunk stays indexed, marked reviewed, and its parent
// document is tagged as carrying conflicting content.
func (g *Guardian) Rescue(ctx context.Context, chunkID string) error {
	chunk, err := g.chunks.GetChunk(ctx, chunkID)
	if err != nil {
		return err
	}
	if err := g.chunks.MarkReviewed(ctx, chunkID); err != nil {
		return fmt.Errorf("failed to mark chunk reviewed: %w", err)
	}
	if err := g.state.SetDocConflicting(ctx, chunk.DocID, true); err != nil {
		return fmt.Errorf("failed to tag document conflicting: %w", err)
	}
	log.Printf("guardian: rescued chunk %s (doc %s)", chunkID, chunk.DocID)
	return nil
}

// Purge hard-deletes a document's chunks and state. The document must
// belong to the scope; purging across scopes is refused.
func (g *Guardian) Purge(ctx context.Context, scopeID, docID string) (int, error) {
	ids, err := g.chunks.ListDocIDs(ctx, scopeID)
	if err != nil {
		return 0, fmt.Errorf("failed to verify document ownership: %w", err)
	}
	owned := false
	for _, id := range ids {
		if id == docID {
			owned = true
			break
		}
	}
	if !owned {
		return 0, fmt.Errorf("%w: document %s is not indexed in scope %s", storage.ErrNotFound, docID, scopeID)
	}

	deleted, err := g.chunks.DeleteChunksForDoc(ctx, docID)
	if err != nil {
		return deleted, fmt.Errorf("failed to purge chunks: %w", err)
	}
	if err := g.state.DeleteDocState(ctx, docID); err != nil {
		return deleted, fmt.Errorf("failed to purge document state: %w", err)
	}
	log.Printf("guardian: purged document %s (%d chunks)", docID, deleted)
	return deleted, nil
}

// categorizeAlert buckets a critical chunk by path markers first, text
// keywords second.
func categorizeAlert(path, text string) types.DriftCategory {
	p := strings.ToLower(path)
	switch {
	case containsAny(p, identityPathMarkers):
		return types.DriftCategoryIdentity
	case containsAny(p, geographyPathMarkers):
		return types.DriftCategoryGeography
	case containsAny(p, continuityPathMarkers):
		return types.DriftCategoryContinuity
	}

	t := strings.ToLower(text)
	switch {
	case containsAny(t, identityKeywords):
		return types.DriftCategoryIdentity
	case containsAny(t, geographyKeywords):
		return types.DriftCategoryGeography
	case containsAny(t, continuityKeywords):
		return types.DriftCategoryContinuity
	}
	return types.DriftCategoryUncategorized
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func excerptPrefix(text string) string {
	const limit = 160
	text = strings.TrimSpace(text)
	if len(text) <= limit {
		return text
	}
	cut := text[:limit]
	if idx := strings.LastIndexByte(cut, ' '); idx > limit/2 {
		cut = cut[:idx]
	}
	return cut + "..."
}
