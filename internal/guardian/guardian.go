// Package guardian is the consistency layer: per-edit audits that check a
// draft against everything already indexed, and a bulk scan that sweeps the
// whole index for semantic drift. Findings are advisory; the guardian never
// blocks a write.
package guardian

import (
	"log"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/narravox/sentinel/internal/genai"
	"github.com/narravox/sentinel/internal/notify"
	"github.com/narravox/sentinel/internal/storage"
)

// Drift thresholds. Score is one minus cosine similarity to the scope
// centroid.
const (
	DriftStableMax   = 0.35
	DriftCriticalMin = 0.65
)

// Per-audit check budgets. Every extra claim is one or two generation
// calls, so the fan-out is capped per category.
const (
	maxFactChecks       = 10
	maxLawChecks        = 5
	maxBehaviorChecks   = 3
	factConfidenceFloor = 0.4
	retrievalK          = 3
	resonanceK          = 5
)

// ScanCap is the hard ceiling of the bulk drift scan. Hitting it flags the
// result as partial instead of letting the scan run unbounded.
const ScanCap = 2000

// maxAlertsPerBucket caps each scan bucket.
const maxAlertsPerBucket = 20

// auditCacheSize bounds the in-process audit-hash cache in front of the
// StateStore record.
const auditCacheSize = 256

// DefaultLoreGlobs mark paths whose chunks count as high-priority evidence
// in law checks.
var DefaultLoreGlobs = []string{"**/lore/**", "**/canon/**", "**/worldbuilding/**", "lore/**", "canon/**"}

// Notifier receives engine events.
type Notifier interface {
	Notify(event notify.Event) error
}

// Guardian audits drafts and scans the index for drift.
type Guardian struct {
	gen      *genai.Generator
	embedder genai.EmbeddingGenerator
	chunks   storage.ChunkStore
	state    storage.StateStore
	roster   storage.RosterStore
	notifier Notifier

	// LoreGlobs override DefaultLoreGlobs when non-nil.
	LoreGlobs []string

	auditCache *lru.Cache[string, string]
}

// New wires a guardian. notifier may be nil.
func New(gen *genai.Generator, embedder genai.EmbeddingGenerator, chunks storage.ChunkStore, state storage.StateStore, roster storage.RosterStore, notifier Notifier) (*Guardian, error) {
	cache, err := lru.New[string, string](auditCacheSize)
	if err != nil {
		return nil, err
	}
	return &Guardian{
		gen:        gen,
		embedder:   embedder,
		chunks:     chunks,
		state:      state,
		roster:     roster,
		notifier:   notifier,
		auditCache: cache,
	}, nil
}

func (g *Guardian) loreGlobs() []string {
	if g.LoreGlobs != nil {
		return g.LoreGlobs
	}
	return DefaultLoreGlobs
}

func (g *Guardian) emit(event notify.Event) {
	if g.notifier == nil {
		return
	}
	if err := g.notifier.Notify(event); err != nil {
		log.Printf("guardian: failed to emit %s event: %v", event.Type, err)
	}
}
