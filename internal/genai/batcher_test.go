package genai

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatcherEmpty(t *testing.T) {
	assert.Nil(t, Batcher{}.Split(""))
	assert.Nil(t, Batcher{}.Split("   \n\t  "))
}

func TestBatcherSingleBatch(t *testing.T) {
	got := Batcher{MaxBatchChars: 100}.Split("short corpus")
	require.Len(t, got, 1)
	assert.Equal(t, "short corpus", got[0])
}

func TestBatcherSplitsOnParagraphs(t *testing.T) {
	para := strings.Repeat("a", 40)
	corpus := para + "\n\n" + para + "\n\n" + para

	got := Batcher{MaxBatchChars: 90}.Split(corpus)
	require.Len(t, got, 2)
	for _, batch := range got {
		assert.LessOrEqual(t, len(batch), 90)
	}
}

func TestBatcherHardCutsOversizedParagraph(t *testing.T) {
	corpus := strings.Repeat("x", 250)

	got := Batcher{MaxBatchChars: 100}.Split(corpus)
	require.Len(t, got, 3)
	assert.Len(t, got[0], 100)
	assert.Len(t, got[1], 100)
	assert.Len(t, got[2], 50)
}

// Hard cuts must land on rune boundaries so no batch ends mid-character.
func TestBatcherHardCutNeverBisectsRune(t *testing.T) {
	corpus := strings.Repeat("ñé", 120) // 2 bytes per rune, 480 bytes total

	got := Batcher{MaxBatchChars: 99}.Split(corpus)
	require.Greater(t, len(got), 1)

	var rejoined strings.Builder
	for _, batch := range got {
		assert.True(t, utf8.ValidString(batch))
		assert.LessOrEqual(t, len(batch), 99)
		rejoined.WriteString(batch)
	}
	assert.Equal(t, corpus, rejoined.String())
}
