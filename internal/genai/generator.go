package genai

import (
	"context"
	"log"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultMaxAttempts = 3
	defaultBackoffBase = 500 * time.Millisecond
)

// Generator is the resilient front door to the external generation service.
// It holds two provider tiers — a cheap/fast one and a strict/expensive
// one — and applies the escalation policy: a failed fast-tier call is
// retried once on the strict tier before the failure is surfaced.
type Generator struct {
	fast        Provider
	strict      Provider
	limiter     *rate.Limiter
	maxAttempts int
	backoffBase time.Duration
}

// GeneratorConfig tunes the resilient generator.
type GeneratorConfig struct {
	// RequestsPerSecond throttles outbound calls across all callers.
	// Zero disables throttling.
	RequestsPerSecond float64

	// MaxAttempts is the per-tier attempt count for transient failures.
	MaxAttempts int

	// BackoffBase is the first backoff delay; it doubles per attempt.
	BackoffBase time.Duration
}

// NewGenerator creates a generator with the given tiers. strict is required;
// fast may equal strict when only one tier is configured.
func NewGenerator(fast, strict Provider, cfg GeneratorConfig) *Generator {
	g := &Generator{
		fast:        fast,
		strict:      strict,
		maxAttempts: cfg.MaxAttempts,
		backoffBase: cfg.BackoffBase,
	}
	if g.maxAttempts <= 0 {
		g.maxAttempts = defaultMaxAttempts
	}
	if g.backoffBase <= 0 {
		g.backoffBase = defaultBackoffBase
	}
	if cfg.RequestsPerSecond > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return g
}

// Generate invokes the selected tier and returns the generated text.
//
// The priority extraction rule applies: if the response carries any text,
// it is returned as success even when the provider attached a safety flag,
// because upstream filters are known to over-trigger on fiction. Only a
// response with no text at all counts as blocked.
//
// Failures come back as *GenError with one of three kinds; callers must
// treat all of them as "no usable answer" and skip, never abort a batch.
func (g *Generator) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	tier := g.strict
	escalatable := false
	if opts.UseFlash && g.fast != nil {
		tier = g.fast
		escalatable = g.strict != nil && g.strict != g.fast
	}

	text, genErr := g.generateOnTier(ctx, tier, prompt, opts)
	if genErr == nil {
		return text, nil
	}

	if escalatable {
		log.Printf("genai: %s tier failed for %q (%s), escalating to %s",
			tier.GetModel(), opts.Label, genErr.Kind, g.strict.GetModel())
		text, genErr = g.generateOnTier(ctx, g.strict, prompt, opts)
		if genErr == nil {
			return text, nil
		}
	}

	return "", genErr
}

// generateOnTier runs one tier with transient-failure retry and classifies
// the outcome.
func (g *Generator) generateOnTier(ctx context.Context, tier Provider, prompt string, opts Options) (string, *GenError) {
	completion, err := g.completeWithRetry(ctx, tier, prompt, opts)
	if err != nil {
		return "", &GenError{Kind: KindGenerationFailed, Label: opts.Label, Err: err}
	}

	// Priority extraction: any text wins, safety flag or not.
	if completion.Text != "" {
		if completion.BlockReason != "" {
			log.Printf("genai: %s flagged %q (%s) but returned text, keeping it",
				tier.GetModel(), opts.Label, completion.BlockReason)
		}
		return completion.Text, nil
	}

	if completion.BlockReason != "" {
		return "", &GenError{Kind: KindContentBlocked, Label: opts.Label}
	}
	return "", &GenError{Kind: KindSilentBlock, Label: opts.Label}
}

// completeWithRetry retries transient provider failures with exponential
// backoff. Non-transient failures are terminal for the call.
func (g *Generator) completeWithRetry(ctx context.Context, tier Provider, prompt string, opts Options) (*Completion, error) {
	var lastErr error

	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := g.backoffBase << (attempt - 1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		completion, err := tier.Complete(ctx, prompt, opts)
		if err == nil {
			return completion, nil
		}
		lastErr = err

		if !isTransient(err) {
			return nil, err
		}
		log.Printf("genai: transient failure on %s (attempt %d/%d): %v",
			tier.GetModel(), attempt+1, g.maxAttempts, err)
	}

	return nil, lastErr
}

// isTransient reports whether an error looks like a rate-limit or
// temporary-unavailability response worth retrying.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"429", "503", "rate limit", "overloaded", "unavailable", "timeout"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
