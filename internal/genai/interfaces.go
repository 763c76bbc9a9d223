// Package genai provides the resilient generation layer every Sentinel
// subsystem depends on: provider clients for external text-generation
// services, a two-tier escalation policy with retry and circuit breaking,
// and a defensive JSON repair pass for malformed structured output.
package genai

import "context"

// Options controls a single generation request.
type Options struct {
	// UseFlash selects the cheap/fast tier; the strict tier is used when
	// false or when the fast tier fails.
	UseFlash bool

	// Temperature is the decoding temperature (0 = deterministic).
	Temperature float64

	// JSONMode asks the provider for a JSON-only response when supported.
	JSONMode bool

	// Label is a free-form context tag carried into diagnostics.
	Label string
}

// Completion is the raw outcome of one provider call. Text may be non-empty
// even when BlockReason is set: upstream safety filters are known to
// over-trigger on fiction, so any generated text counts as success.
type Completion struct {
	Text        string
	BlockReason string // Provider safety/policy flag, empty when none
	Model       string
}

// Provider is a single model tier capable of text completion.
type Provider interface {
	Complete(ctx context.Context, prompt string, opts Options) (*Completion, error)
	GetModel() string
}

// EmbeddingGenerator produces vector embeddings for indexing and retrieval.
type EmbeddingGenerator interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	GetModel() string
}
