// Package similarity implements the pure vector-math kernel shared by the
// ingestion pipeline, entity triage, and the consistency guardian: cosine
// similarity and stable top-k selection. No I/O, no dependencies.
package similarity

import (
	"errors"
	"math"
	"sort"
)

// ErrDimensionMismatch is returned when two vectors of different lengths
// are compared.
var ErrDimensionMismatch = errors.New("similarity: vector dimension mismatch")

// Cosine computes the cosine similarity between two equal-length vectors.
// It returns 0 when either vector has zero magnitude rather than dividing
// by zero, and ErrDimensionMismatch when the lengths differ.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrDimensionMismatch
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// Candidate pairs an opaque ID with its embedding vector.
type Candidate struct {
	ID     string
	Vector []float32
}

// Scored is a candidate with its similarity to the query.
type Scored struct {
	ID    string
	Score float64
}

// TopK returns the k candidates most similar to query, highest score first.
// Ties keep their original order (stable sort). Candidates whose dimension
// does not match the query score 0 instead of failing the whole selection.
func TopK(query []float32, candidates []Candidate, k int) []Scored {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}

	scored := make([]Scored, len(candidates))
	for i, c := range candidates {
		score, err := Cosine(query, c.Vector)
		if err != nil {
			score = 0
		}
		scored[i] = Scored{ID: c.ID, Score: score}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if k < len(scored) {
		scored = scored[:k]
	}
	return scored
}
