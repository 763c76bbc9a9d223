package triage

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/narravox/sentinel/internal/genai"
	"github.com/narravox/sentinel/internal/notify"
	"github.com/narravox/sentinel/internal/storage"
	"github.com/narravox/sentinel/pkg/types"
)

// EnrichWorkers is the fixed size of the enrichment pool. Enrichment
// issues one or two generation calls per entity, so the fan-out is bounded
// to stay inside external rate limits.
const EnrichWorkers = 5

// ghostConfidence is assigned to names surfaced only by the extraction
// sweep, with no structural backing.
const ghostConfidence = 40

// Notifier receives engine events.
type Notifier interface {
	Notify(event notify.Event) error
}

// Sorter discovers, tiers, deduplicates, enriches, and persists the entity
// roster of a scope.
type Sorter struct {
	gen      *genai.Generator
	embedder genai.EmbeddingGenerator
	chunks   storage.ChunkStore
	roster   storage.RosterStore
	notifier Notifier
	batcher  genai.Batcher
}

// NewSorter wires a sorter. notifier may be nil.
func NewSorter(gen *genai.Generator, embedder genai.EmbeddingGenerator, chunks storage.ChunkStore, roster storage.RosterStore, notifier Notifier) *Sorter {
	return &Sorter{
		gen:      gen,
		embedder: embedder,
		chunks:   chunks,
		roster:   roster,
		notifier: notifier,
	}
}

// IdentifyEntities runs the full triage pass over the given documents:
// heuristic cascade per document, one extraction sweep over the combined
// prose, enrichment, then persistence. The returned map is keyed by
// normalized name.
func (s *Sorter) IdentifyEntities(ctx context.Context, scopeID string, docs []types.Document) (map[string]*types.DetectedEntity, error) {
	roster := make(map[string]*types.DetectedEntity)

	for _, doc := range docs {
		for _, candidate := range Classify(doc) {
			candidate := candidate
			s.merge(roster, &candidate)
		}
	}
	log.Printf("triage: structural pass found %d entities in %d documents", len(roster), len(docs))

	s.extractGhosts(ctx, roster, docs)
	s.enrich(ctx, scopeID, roster)

	if err := s.persist(ctx, scopeID, roster); err != nil {
		return roster, err
	}
	return roster, nil
}

// merge folds a sighting into the roster. Exact normalized-key matches and
// near-duplicate keys (edit distance 1 on long names) land on the same
// record.
func (s *Sorter) merge(roster map[string]*types.DetectedEntity, candidate *types.DetectedEntity) {
	key := Key(candidate.Name)
	if key == "" {
		return
	}

	if existing, ok := roster[key]; ok {
		existing.MergeFrom(candidate)
		return
	}
	for existingKey, existing := range roster {
		if KeysMatch(existingKey, key) {
			existing.MergeFrom(candidate)
			return
		}
	}

	copied := *candidate
	if copied.Occurrences < 1 {
		copied.Occurrences = 1
	}
	roster[key] = &copied
}

// extractGhosts sweeps the combined prose (front matter stripped) through
// the generation layer in size-bounded batches. Unknown names become GHOST
// candidates; known names merge evidence and backfill category only. A
// failed batch is skipped, never fatal.
func (s *Sorter) extractGhosts(ctx context.Context, roster map[string]*types.DetectedEntity, docs []types.Document) {
	var bodies []string
	for _, doc := range docs {
		_, body := splitFrontMatter(doc.Content)
		if trimmed := strings.TrimSpace(body); trimmed != "" {
			bodies = append(bodies, trimmed)
		}
	}
	if len(bodies) == 0 {
		return
	}

	batches := s.batcher.Split(strings.Join(bodies, "\n\n"))
	for i, batch := range batches {
		text, err := s.gen.Generate(ctx, genai.EntityExtractionPrompt(batch), genai.Options{
			UseFlash: true,
			JSONMode: true,
			Label:    fmt.Sprintf("entity-extraction batch %d/%d", i+1, len(batches)),
		})
		if err != nil {
			log.Printf("triage: extraction batch %d/%d failed: %v", i+1, len(batches), err)
			continue
		}

		names, err := genai.ParseExtractedNames(text)
		if err != nil {
			log.Printf("triage: extraction batch %d/%d unparseable: %v", i+1, len(batches), err)
			continue
		}

		for category, group := range map[types.EntityCategory][]string{
			types.CategoryPerson:   names.People,
			types.CategoryCreature: names.Creatures,
			types.CategoryFlora:    names.Flora,
			types.CategoryLocation: names.Locations,
			types.CategoryObject:   names.Objects,
		} {
			for _, name := range group {
				s.merge(roster, &types.DetectedEntity{
					Name:       name,
					Tier:       types.TierGhost,
					Category:   category,
					Confidence: ghostConfidence,
					Reasoning:  "named in narrative prose",
				})
			}
		}
	}
}

// enrich runs the bounded worker pool: ghosts get a real excerpt from
// their nearest chunk, limbo notes get a preview and up to three traits.
// Individual failures never drop the base entity.
func (s *Sorter) enrich(ctx context.Context, scopeID string, roster map[string]*types.DetectedEntity) {
	jobs := make(chan *types.DetectedEntity)
	var wg sync.WaitGroup

	for w := 1; w <= EnrichWorkers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for entity := range jobs {
				s.enrichOne(ctx, workerID, scopeID, entity)
			}
		}(w)
	}

	for _, entity := range roster {
		jobs <- entity
	}
	close(jobs)
	wg.Wait()
}

func (s *Sorter) enrichOne(ctx context.Context, workerID int, scopeID string, entity *types.DetectedEntity) {
	switch entity.Tier {
	case types.TierGhost:
		embedding, err := s.embedder.Embed(ctx, entity.Name)
		if err != nil {
			log.Printf("triage: worker %d: embed %q failed: %v", workerID, entity.Name, err)
			return
		}
		hits, err := s.chunks.Nearest(ctx, scopeID, embedding, 1)
		if err != nil || len(hits) == 0 {
			if err != nil {
				log.Printf("triage: worker %d: lookup for %q failed: %v", workerID, entity.Name, err)
			}
			return
		}
		if len(entity.FoundIn) < types.MaxEvidence {
			entity.FoundIn = append(entity.FoundIn, types.Evidence{
				DocID:   hits[0].Chunk.DocID,
				Excerpt: excerptAround(hits[0].Chunk.Text, entity.Name),
			})
		}

	case types.TierLimbo:
		if entity.RawContent == "" || entity.Preview != "" {
			return
		}
		text, err := s.gen.Generate(ctx, genai.LimboPreviewPrompt(entity.Name, entity.RawContent), genai.Options{
			UseFlash: true,
			JSONMode: true,
			Label:    "limbo preview for " + entity.Name,
		})
		if err != nil {
			log.Printf("triage: worker %d: preview for %q failed: %v", workerID, entity.Name, err)
			return
		}
		preview, err := genai.ParseLimboPreview(text)
		if err != nil {
			log.Printf("triage: worker %d: preview for %q unparseable: %v", workerID, entity.Name, err)
			return
		}
		entity.Preview = preview.Preview
		entity.Traits = preview.Traits
	}
}

// persist upserts the roster and heals anchor links for confirmed anchors.
func (s *Sorter) persist(ctx context.Context, scopeID string, roster map[string]*types.DetectedEntity) error {
	var firstErr error
	for key, entity := range roster {
		if err := s.roster.UpsertEntity(ctx, scopeID, key, entity); err != nil {
			log.Printf("triage: failed to persist %q: %v", entity.Name, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if entity.Tier == types.TierAnchor && entity.AnchorDocID != "" {
			if err := s.roster.HealAnchorLink(ctx, scopeID, key, entity.AnchorDocID); err != nil {
				log.Printf("triage: failed to heal anchor link for %q: %v", entity.Name, err)
			}
		}
		if s.notifier != nil {
			if err := s.notifier.Notify(notify.Event{
				Type:      notify.EventEntityDetected,
				ScopeID:   scopeID,
				SubjectID: key,
				Detail:    string(entity.Tier),
			}); err != nil {
				log.Printf("triage: failed to emit entity event: %v", err)
			}
		}
	}
	return firstErr
}

// excerptAround returns a window of text centered on the first
// case-insensitive occurrence of name, or a prefix when absent.
func excerptAround(text, name string) string {
	const window = 80

	idx := strings.Index(strings.ToLower(text), strings.ToLower(name))
	if idx < 0 {
		if len(text) > 2*window {
			return strings.TrimSpace(text[:2*window]) + "..."
		}
		return strings.TrimSpace(text)
	}

	start := idx - window
	for start > 0 && !isSpaceByte(text[start]) {
		start--
	}
	if start < 0 {
		start = 0
	}
	end := idx + len(name) + window
	for end < len(text) && !isSpaceByte(text[end]) {
		end++
	}
	if end > len(text) {
		end = len(text)
	}

	excerpt := strings.TrimSpace(text[start:end])
	if start > 0 {
		excerpt = "..." + excerpt
	}
	if end < len(text) {
		excerpt += "..."
	}
	return excerpt
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r'
}
