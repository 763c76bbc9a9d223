package triage

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narravox/sentinel/internal/genai"
	"github.com/narravox/sentinel/internal/storage/sqlite"
	"github.com/narravox/sentinel/pkg/types"
)

// routingProvider answers prompts by matching on their task line.
type routingProvider struct {
	extraction string
	preview    string
}

func (p *routingProvider) Complete(ctx context.Context, prompt string, opts genai.Options) (*genai.Completion, error) {
	switch {
	case strings.Contains(prompt, "Extract the proper names"):
		if p.extraction == "" {
			return nil, errors.New("no extraction scripted")
		}
		return &genai.Completion{Text: p.extraction}, nil
	case strings.Contains(prompt, "rough note"):
		if p.preview == "" {
			return nil, errors.New("no preview scripted")
		}
		return &genai.Completion{Text: p.preview}, nil
	}
	return nil, errors.New("unexpected prompt")
}

func (p *routingProvider) GetModel() string { return "fake" }

type fixedEmbedder struct{}

func (fixedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (fixedEmbedder) GetModel() string { return "fake-embed" }

func newTestSorter(t *testing.T, provider genai.Provider) (*Sorter, *sqlite.Store) {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "sentinel.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	gen := genai.NewGenerator(provider, provider, genai.GeneratorConfig{
		MaxAttempts: 1,
		BackoffBase: time.Millisecond,
	})
	return NewSorter(gen, fixedEmbedder{}, store, store, nil), store
}

// A front-matter declaration and a prose mention of the same name must end
// up as one ANCHOR record, never an ANCHOR plus a duplicate GHOST.
func TestIdentifyEntitiesNoDuplicateGhostForAnchor(t *testing.T) {
	provider := &routingProvider{
		extraction: `{"people":["Thomas","Mira"],"creatures":[],"flora":[],"locations":[],"objects":[]}`,
	}
	sorter, store := newTestSorter(t, provider)
	ctx := context.Background()

	docs := []types.Document{
		doc("thomas.md", "---\nname: Thomas\ntype: persona\n---\n\nFicha de Thomas."),
		doc("chapter1.md", "Thomas cruzó la plaza donde Mira vendía hierbas."),
	}

	roster, err := sorter.IdentifyEntities(ctx, "scope-1", docs)
	require.NoError(t, err)

	thomas, ok := roster["thomas"]
	require.True(t, ok)
	assert.Equal(t, types.TierAnchor, thomas.Tier, "prose mention must not downgrade the anchor")
	assert.Equal(t, "Thomas", thomas.Name)
	assert.Equal(t, 2, thomas.Occurrences)

	mira, ok := roster["mira"]
	require.True(t, ok)
	assert.Equal(t, types.TierGhost, mira.Tier)
	assert.Equal(t, types.CategoryPerson, mira.Category)

	// Both persisted.
	stored, err := store.ListEntities(ctx, "scope-1")
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestIdentifyEntitiesMergesAccentVariants(t *testing.T) {
	provider := &routingProvider{
		extraction: `{"people":["Élena"],"creatures":[],"flora":[],"locations":[],"objects":[]}`,
	}
	sorter, _ := newTestSorter(t, provider)

	docs := []types.Document{
		doc("elena.md", "---\nname: elena\n---\n\nFicha."),
		doc("chapter1.md", "Élena miró el mar."),
	}

	roster, err := sorter.IdentifyEntities(context.Background(), "scope-1", docs)
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Contains(t, roster, "elena")
	assert.Equal(t, types.TierAnchor, roster["elena"].Tier)
}

func TestIdentifyEntitiesLimboEnrichment(t *testing.T) {
	provider := &routingProvider{
		extraction: `{"people":[],"creatures":[],"flora":[],"locations":[],"objects":[]}`,
		preview:    `{"preview":"Una criatura entre dos mundos.","traits":["esquiva","antigua","silenciosa","extra"]}`,
	}
	sorter, _ := newTestSorter(t, provider)

	docs := []types.Document{
		doc("idea-umbral.md", "Umbral: una criatura que vive entre dos mundos."),
	}

	roster, err := sorter.IdentifyEntities(context.Background(), "scope-1", docs)
	require.NoError(t, err)

	umbral, ok := roster["umbral"]
	require.True(t, ok)
	assert.Equal(t, types.TierLimbo, umbral.Tier)
	assert.Equal(t, "Una criatura entre dos mundos.", umbral.Preview)
	assert.Len(t, umbral.Traits, 3, "traits cap at three")
}

func TestIdentifyEntitiesGhostGetsExcerptEvidence(t *testing.T) {
	provider := &routingProvider{
		extraction: `{"people":["Mira"],"creatures":[],"flora":[],"locations":[],"objects":[]}`,
	}
	sorter, store := newTestSorter(t, provider)
	ctx := context.Background()

	require.NoError(t, store.UpsertChunk(ctx, &types.Chunk{
		ID:        "c1",
		DocID:     "chapter1.md",
		ScopeID:   "scope-1",
		Text:      "Al caer la tarde, Mira cerró el puesto de hierbas y se marchó.",
		Embedding: []float32{1, 0},
	}))

	docs := []types.Document{doc("chapter1.md", "Mira vendía hierbas.")}
	roster, err := sorter.IdentifyEntities(ctx, "scope-1", docs)
	require.NoError(t, err)

	mira := roster["mira"]
	require.NotNil(t, mira)
	require.NotEmpty(t, mira.FoundIn)
	assert.Contains(t, mira.FoundIn[0].Excerpt, "Mira")
	assert.Equal(t, "chapter1.md", mira.FoundIn[0].DocID)
}

// A failing generation layer degrades the sweep, never the structural pass.
func TestIdentifyEntitiesSurvivesExtractionFailure(t *testing.T) {
	sorter, _ := newTestSorter(t, &routingProvider{})

	docs := []types.Document{
		doc("thomas.md", "---\nname: Thomas\n---\n\nFicha."),
		doc("chapter1.md", "Prosa sin extraer."),
	}

	roster, err := sorter.IdentifyEntities(context.Background(), "scope-1", docs)
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, types.TierAnchor, roster["thomas"].Tier)
}

func TestExcerptAround(t *testing.T) {
	text := strings.Repeat("palabra ", 40) + "Mira apareció aquí " + strings.Repeat("palabra ", 40)
	excerpt := excerptAround(text, "mira")
	assert.Contains(t, excerpt, "Mira apareció")
	assert.Less(t, len(excerpt), len(text))
	assert.True(t, strings.HasPrefix(excerpt, "..."))
}
