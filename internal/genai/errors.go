package genai

import "fmt"

// FailureKind distinguishes why a generation call produced no usable text.
// Callers treat every kind as "no answer, skip gracefully" — a failed
// generation must never crash a batch.
type FailureKind string

const (
	// KindContentBlocked: the provider refused with an explicit policy reason.
	KindContentBlocked FailureKind = "CONTENT_BLOCKED"

	// KindSilentBlock: the provider returned an empty body with no reason.
	KindSilentBlock FailureKind = "SILENT_BLOCK"

	// KindGenerationFailed: transport or parse error.
	KindGenerationFailed FailureKind = "GENERATION_FAILED"
)

// GenError is the typed, non-throwing failure of a generation call.
type GenError struct {
	Kind  FailureKind
	Label string // Context label from the request options
	Err   error  // Underlying cause, when any
}

func (e *GenError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("genai: %s (%s): %v", e.Kind, e.Label, e.Err)
	}
	return fmt.Sprintf("genai: %s (%s)", e.Kind, e.Label)
}

func (e *GenError) Unwrap() error { return e.Err }

// RepairError reports that every JSON repair strategy failed. It carries a
// truncated snippet of the offending text for diagnostics.
type RepairError struct {
	Snippet string
	Err     error
}

func (e *RepairError) Error() string {
	return fmt.Sprintf("genai: JSON_PARSE_FAILED: %v (snippet: %q)", e.Err, e.Snippet)
}

func (e *RepairError) Unwrap() error { return e.Err }
