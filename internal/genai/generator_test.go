package genai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider scripts a sequence of completions/errors for one tier.
type fakeProvider struct {
	model   string
	results []fakeResult
	calls   int
}

type fakeResult struct {
	completion *Completion
	err        error
}

func (f *fakeProvider) Complete(ctx context.Context, prompt string, opts Options) (*Completion, error) {
	idx := f.calls
	if idx >= len(f.results) {
		idx = len(f.results) - 1
	}
	f.calls++
	r := f.results[idx]
	return r.completion, r.err
}

func (f *fakeProvider) GetModel() string { return f.model }

func quickConfig() GeneratorConfig {
	return GeneratorConfig{MaxAttempts: 2, BackoffBase: time.Millisecond}
}

func TestGenerateFastTierSuccess(t *testing.T) {
	fast := &fakeProvider{model: "flash", results: []fakeResult{
		{completion: &Completion{Text: "hello"}},
	}}
	strict := &fakeProvider{model: "pro"}

	g := NewGenerator(fast, strict, quickConfig())
	text, err := g.Generate(context.Background(), "p", Options{UseFlash: true})
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
	assert.Equal(t, 1, fast.calls)
	assert.Equal(t, 0, strict.calls)
}

// Any text in the response wins even when a safety flag is attached.
func TestGeneratePriorityExtraction(t *testing.T) {
	fast := &fakeProvider{model: "flash", results: []fakeResult{
		{completion: &Completion{Text: "dark but fine", BlockReason: "safety"}},
	}}

	g := NewGenerator(fast, fast, quickConfig())
	text, err := g.Generate(context.Background(), "p", Options{UseFlash: true})
	require.NoError(t, err)
	assert.Equal(t, "dark but fine", text)
}

func TestGenerateEscalatesToStrictTier(t *testing.T) {
	fast := &fakeProvider{model: "flash", results: []fakeResult{
		{completion: &Completion{BlockReason: "safety"}},
	}}
	strict := &fakeProvider{model: "pro", results: []fakeResult{
		{completion: &Completion{Text: "rescued"}},
	}}

	g := NewGenerator(fast, strict, quickConfig())
	text, err := g.Generate(context.Background(), "p", Options{UseFlash: true})
	require.NoError(t, err)
	assert.Equal(t, "rescued", text)
	assert.Equal(t, 1, strict.calls)
}

func TestGenerateStrictTierHasNoFallback(t *testing.T) {
	strict := &fakeProvider{model: "pro", results: []fakeResult{
		{completion: &Completion{BlockReason: "safety"}},
	}}

	g := NewGenerator(nil, strict, quickConfig())
	_, err := g.Generate(context.Background(), "p", Options{})
	var genErr *GenError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, KindContentBlocked, genErr.Kind)
	assert.Equal(t, 1, strict.calls)
}

func TestGenerateFailureKinds(t *testing.T) {
	cases := []struct {
		name   string
		result fakeResult
		kind   FailureKind
	}{
		{"explicit block", fakeResult{completion: &Completion{BlockReason: "policy"}}, KindContentBlocked},
		{"silent block", fakeResult{completion: &Completion{}}, KindSilentBlock},
		{"transport error", fakeResult{err: errors.New("connection refused")}, KindGenerationFailed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			strict := &fakeProvider{model: "pro", results: []fakeResult{tc.result}}
			g := NewGenerator(nil, strict, quickConfig())

			_, err := g.Generate(context.Background(), "p", Options{Label: "test"})
			var genErr *GenError
			require.ErrorAs(t, err, &genErr)
			assert.Equal(t, tc.kind, genErr.Kind)
		})
	}
}

func TestGenerateRetriesTransientErrors(t *testing.T) {
	strict := &fakeProvider{model: "pro", results: []fakeResult{
		{err: errors.New("429 too many requests")},
		{completion: &Completion{Text: "after retry"}},
	}}

	g := NewGenerator(nil, strict, quickConfig())
	text, err := g.Generate(context.Background(), "p", Options{})
	require.NoError(t, err)
	assert.Equal(t, "after retry", text)
	assert.Equal(t, 2, strict.calls)
}

func TestGenerateDoesNotRetryTerminalErrors(t *testing.T) {
	strict := &fakeProvider{model: "pro", results: []fakeResult{
		{err: errors.New("invalid api key")},
	}}

	g := NewGenerator(nil, strict, quickConfig())
	_, err := g.Generate(context.Background(), "p", Options{})
	require.Error(t, err)
	assert.Equal(t, 1, strict.calls)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, isTransient(errors.New("HTTP 503 service unavailable")))
	assert.True(t, isTransient(errors.New("rate limit exceeded")))
	assert.False(t, isTransient(errors.New("model not found")))
	assert.False(t, isTransient(nil))
}
