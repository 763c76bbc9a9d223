package genai

import (
	"strings"
	"unicode/utf8"
)

// Batcher splits a large corpus into batches under a character ceiling so a
// single extraction prompt never exceeds the service's input budget. Splits
// prefer paragraph boundaries and fall back to hard cuts for pathological
// single-paragraph input.
type Batcher struct {
	MaxBatchChars int // default: 24000
}

const defaultMaxBatchChars = 24000

// Split returns the corpus in order, batch by batch. Empty and
// whitespace-only input yields no batches.
func (b Batcher) Split(corpus string) []string {
	limit := b.MaxBatchChars
	if limit <= 0 {
		limit = defaultMaxBatchChars
	}

	corpus = strings.TrimSpace(corpus)
	if corpus == "" {
		return nil
	}
	if len(corpus) <= limit {
		return []string{corpus}
	}

	paragraphs := strings.Split(corpus, "\n\n")
	var batches []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			batches = append(batches, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}

	for _, para := range paragraphs {
		if len(para) > limit {
			// A single paragraph over the ceiling gets hard-cut, backing
			// up to a rune boundary so no batch ends mid-character.
			flush()
			for len(para) > limit {
				cut := limit
				for cut > 0 && !utf8.RuneStart(para[cut]) {
					cut--
				}
				if cut == 0 {
					cut = limit
				}
				batches = append(batches, para[:cut])
				para = para[cut:]
			}
			if strings.TrimSpace(para) != "" {
				current.WriteString(para)
			}
			continue
		}

		if current.Len()+len(para)+2 > limit {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	flush()

	return batches
}
