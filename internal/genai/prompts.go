package genai

import (
	"fmt"
	"strings"
)

// Prompt templates for every structured call the engine makes. All of them
// demand strict JSON-only output and answers in the language of the source
// text, since projects are written in whatever language the author uses.

// EntityExtractionPrompt asks for proper names grouped by narrative
// category. Used by the triage ghost-detection pass over corpus batches.
func EntityExtractionPrompt(corpus string) string {
	return fmt.Sprintf(`TASK: Extract the proper names of fictional entities from narrative text.
OUTPUT: ONLY valid JSON. NO markdown. NO code blocks. NO explanations.

CATEGORIES (ONLY these 5 keys, each an array of name strings):
- people: named individual characters
- creatures: named beasts, monsters, species
- flora: named plants or plant species
- locations: named places, cities, regions, buildings
- objects: named artifacts, weapons, items

RULES:
1. Only proper names that designate a SPECIFIC entity. No generic nouns.
2. Keep each name in its original language and spelling.
3. A name mentioned many times appears ONCE.
4. Missing categories are empty arrays, never omitted.

REQUIRED JSON STRUCTURE:
{"people":["X"],"creatures":[],"flora":[],"locations":["Y"],"objects":[]}

TEXT:
%s

RESPOND WITH ONLY THE JSON OBJECT:`, corpus)
}

// LimboPreviewPrompt asks for a short preview and up to three traits for a
// loosely declared entity, in the language of the note itself.
func LimboPreviewPrompt(name, rawNote string) string {
	return fmt.Sprintf(`TASK: Summarize a writer's rough note about the entity %q.
OUTPUT: ONLY valid JSON. NO markdown. Answer in the SAME LANGUAGE as the note.

REQUIRED JSON STRUCTURE:
{"preview":"one short sentence describing the entity","traits":["trait1","trait2","trait3"]}

RULES:
1. preview: at most 160 characters.
2. traits: at most 3 short descriptive traits; fewer is fine; empty array if none.

NOTE:
%s

RESPOND WITH ONLY THE JSON OBJECT:`, name, rawNote)
}

// AuditExtractionPrompt asks one call to extract facts, world-law
// candidates, character-behavior observations, and a structural-phase guess
// from a new draft.
func AuditExtractionPrompt(content string) string {
	return fmt.Sprintf(`TASK: Analyze a narrative draft and extract verifiable claims.
OUTPUT: ONLY valid JSON. NO markdown. All strings in the SAME LANGUAGE as the draft.

REQUIRED JSON STRUCTURE:
{
  "facts": [{"entity":"name","fact":"claim about the entity","confidence":0.9}],
  "laws": [{"rule":"a rule about how this world works","confidence":0.8}],
  "behaviors": [{"character":"name","behavior":"what they do or decide here"}],
  "phase": "exposition|rising_action|climax|falling_action|resolution|unknown"
}

RULES:
1. facts: concrete statements about named entities (states, relations, attributes).
2. laws: candidate world rules (magic systems, physics, social laws).
3. behaviors: observed decisions or actions revealing character.
4. confidence: 0.0-1.0. Missing arrays must be empty arrays.

DRAFT:
%s

RESPOND WITH ONLY THE JSON OBJECT:`, content)
}

// ContradictionVerdictPrompt asks for a yes/no contradiction judgment
// between an extracted fact and established passages.
func ContradictionVerdictPrompt(entity, fact string, passages []string) string {
	return fmt.Sprintf(`TASK: Decide whether a new claim contradicts established canon.
OUTPUT: ONLY valid JSON. NO markdown. The reason in the SAME LANGUAGE as the passages.

NEW CLAIM about %q:
%s

ESTABLISHED PASSAGES:
%s

REQUIRED JSON STRUCTURE:
{"has_conflict":false,"reason":"short explanation"}

RULES:
1. has_conflict is true ONLY for a direct factual contradiction.
2. New information that merely adds detail is NOT a conflict.

RESPOND WITH ONLY THE JSON OBJECT:`, entity, fact, numberedList(passages))
}

// LawViolationPrompt asks for a severity classification of a candidate
// world-law against established passages.
func LawViolationPrompt(rule string, passages []string) string {
	return fmt.Sprintf(`TASK: Decide whether a draft breaks an established rule of this fictional world.
OUTPUT: ONLY valid JSON. NO markdown. The reason in the SAME LANGUAGE as the passages.

CANDIDATE RULE OBSERVED IN THE DRAFT:
%s

ESTABLISHED WORLD PASSAGES:
%s

REQUIRED JSON STRUCTURE:
{"severity":"NONE","reason":"short explanation"}

RULES:
1. severity MUST be exactly one of: CRITICAL, WARNING, NONE.
2. CRITICAL: the draft directly violates an established world law.
3. WARNING: tension or ambiguity with established material.
4. NONE: compatible with everything established.

RESPOND WITH ONLY THE JSON OBJECT:`, rule, numberedList(passages))
}

// PersonalityVerdictPrompt asks whether newly observed behavior is
// consistent with a character's canonical profile.
func PersonalityVerdictPrompt(character, profile, behavior string, recent []string) string {
	return fmt.Sprintf(`TASK: Judge whether a character acts in line with their established personality.
OUTPUT: ONLY valid JSON. NO markdown. The reason in the SAME LANGUAGE as the source material.

CHARACTER: %s
CANONICAL PROFILE:
%s

NEW BEHAVIOR OBSERVED:
%s

RECENT APPEARANCES:
%s

REQUIRED JSON STRUCTURE:
{"verdict":"consistent","reason":"short explanation"}

RULES:
1. verdict MUST be exactly one of: consistent, evolved, traitor.
2. consistent: in character.
3. evolved: a plausible development given their arc.
4. traitor: behavior canon cannot support.

RESPOND WITH ONLY THE JSON OBJECT:`, character, profile, behavior, numberedList(recent))
}

// ResonancePrompt asks whether a draft echoes previously indexed material.
func ResonancePrompt(draft string, passages []string) string {
	return fmt.Sprintf(`TASK: Detect whether a new draft echoes previously written material.
OUTPUT: ONLY valid JSON. NO markdown. Reasons in the SAME LANGUAGE as the draft.

NEW DRAFT:
%s

PREVIOUSLY INDEXED PASSAGES:
%s

REQUIRED JSON STRUCTURE:
{"matches":[{"type":"plot","excerpt":"the echoed passage fragment","reason":"why it echoes"}]}

RULES:
1. type MUST be exactly one of: plot, vibe, lore_seed.
2. plot: the draft continues or mirrors an existing plot thread.
3. vibe: strong tonal/thematic resemblance.
4. lore_seed: the draft picks up a previously planted detail.
5. No matches means an empty matches array.

RESPOND WITH ONLY THE JSON OBJECT:`, draft, numberedList(passages))
}

// ProfileExtractionPrompt synthesizes a character profile from a biography
// when no structured profile exists yet.
func ProfileExtractionPrompt(name, biography string) string {
	return fmt.Sprintf(`TASK: Build a character profile for %q from their biography.
OUTPUT: ONLY valid JSON. NO markdown. Values in the SAME LANGUAGE as the biography.

REQUIRED JSON STRUCTURE:
{"role":"their narrative role","personality":"core personality in one or two sentences","evolution":"how they change over the story, or empty string"}

BIOGRAPHY:
%s

RESPOND WITH ONLY THE JSON OBJECT:`, name, biography)
}

func numberedList(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for i, item := range items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, item)
	}
	return b.String()
}
