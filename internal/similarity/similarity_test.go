package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineIdenticalVector(t *testing.T) {
	v := []float32{0.5, -1.25, 3.0, 0.1}

	score, err := Cosine(v, v)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 1e-9)
}

func TestCosineOrthogonal(t *testing.T) {
	score, err := Cosine([]float32{1, 0}, []float32{0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, score, 1e-9)
}

func TestCosineOpposite(t *testing.T) {
	score, err := Cosine([]float32{1, 2}, []float32{-1, -2})
	require.NoError(t, err)
	assert.InDelta(t, -1.0, score, 1e-9)
}

func TestCosineDimensionMismatch(t *testing.T) {
	_, err := Cosine([]float32{1, 2, 3}, []float32{1, 2})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestCosineZeroMagnitude(t *testing.T) {
	score, err := Cosine([]float32{0, 0, 0}, []float32{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)

	score, err = Cosine([]float32{1, 2, 3}, []float32{0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)
}

func TestTopKOrdering(t *testing.T) {
	query := []float32{1, 0}
	candidates := []Candidate{
		{ID: "orthogonal", Vector: []float32{0, 1}},
		{ID: "exact", Vector: []float32{2, 0}},
		{ID: "close", Vector: []float32{1, 0.5}},
	}

	got := TopK(query, candidates, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "exact", got[0].ID)
	assert.Equal(t, "close", got[1].ID)
}

func TestTopKStableTies(t *testing.T) {
	query := []float32{1, 0}
	// Both candidates are identical in direction; original order must hold.
	candidates := []Candidate{
		{ID: "first", Vector: []float32{3, 0}},
		{ID: "second", Vector: []float32{5, 0}},
	}

	got := TopK(query, candidates, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].ID)
	assert.Equal(t, "second", got[1].ID)
}

func TestTopKMismatchedCandidateScoresZero(t *testing.T) {
	query := []float32{1, 0}
	candidates := []Candidate{
		{ID: "bad-dim", Vector: []float32{1, 2, 3}},
		{ID: "good", Vector: []float32{1, 0}},
	}

	got := TopK(query, candidates, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "good", got[0].ID)
	assert.Equal(t, 0.0, got[1].Score)
}

func TestTopKBounds(t *testing.T) {
	assert.Nil(t, TopK([]float32{1}, nil, 3))
	assert.Nil(t, TopK([]float32{1}, []Candidate{{ID: "a", Vector: []float32{1}}}, 0))

	got := TopK([]float32{1}, []Candidate{{ID: "a", Vector: []float32{1}}}, 10)
	assert.Len(t, got, 1)
}
