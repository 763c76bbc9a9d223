// Package triage is the entity discovery pass ("soul sorting"): it runs
// heuristic classifiers over every document, backstops them with one
// generation-layer extraction sweep, and merges all sightings into a
// deduplicated roster keyed by normalized name.
package triage

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Key normalizes a display name into the roster identity key: lower-cased,
// accents stripped, everything but letters and digits removed. "Élena",
// "elena" and "-Elena-" all share one key.
func Key(name string) string {
	folded, _, err := transform.String(stripMarks, strings.ToLower(name))
	if err != nil {
		folded = strings.ToLower(name)
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// minFuzzyLen guards the edit-distance rule: short keys produce too many
// false merges ("ana" vs "asa").
const minFuzzyLen = 5

// KeysMatch reports whether two normalized keys identify the same entity:
// exact match always, or edit distance <= 1 when both keys are long enough.
func KeysMatch(a, b string) bool {
	if a == b {
		return true
	}
	if len(a) < minFuzzyLen || len(b) < minFuzzyLen {
		return false
	}
	return levenshtein(a, b) <= 1
}

// levenshtein computes edit distance with a two-row rolling table.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
