package triage

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/narravox/sentinel/pkg/types"
)

// The classifier cascade. Evaluated in order, first match wins; the
// generation-layer sweep in the sorter catches everything these miss.
var cascade = []func(doc types.Document) []types.DetectedEntity{
	classifyContainer,
	classifyFrontMatter,
	classifyHeader,
	classifyLimboFilename,
}

// Classify runs the heuristic cascade over one document and returns the
// structural entity candidates, or nil when nothing matches.
func Classify(doc types.Document) []types.DetectedEntity {
	for _, classifier := range cascade {
		if found := classifier(doc); len(found) > 0 {
			return found
		}
	}
	return nil
}

// containerNames are filenames (sans extension) of roster-style documents
// holding many entities at once.
var containerNames = map[string]bool{
	"personajes": true, "characters": true, "cast": true, "elenco": true,
	"roster": true, "bestiario": true, "bestiary": true,
	"criaturas": true, "creatures": true, "lugares": true, "locations": true,
}

// metadataKeys mark a document as a structured entity sheet.
var metadataKeys = map[string]bool{
	"edad": true, "age": true, "rol": true, "role": true,
	"personalidad": true, "personality": true, "apariencia": true,
	"appearance": true, "ocupacion": true, "occupation": true,
	"especie": true, "species": true, "origen": true, "origin": true,
	"altura": true, "height": true, "raza": true, "race": true,
}

// nameKeys are explicit name declarations in key-value form.
var nameKeys = map[string]bool{"nombre": true, "name": true}

// genericTerms never name an entity on their own.
var genericTerms = map[string]bool{
	"nota": true, "note": true, "idea": true, "todo": true,
	"titulo": true, "title": true, "fecha": true, "date": true,
	"capitulo": true, "chapter": true, "resumen": true, "summary": true,
	"importante": true, "important": true, "pendiente": true,
}

// draftMarkers in a filename flag loosely structured notes.
var draftMarkers = []string{"idea", "nota", "note", "draft", "borrador", "boceto", "apunte", "wip"}

// chapterPrefixes reject narrative headings from the entity-sheet check.
var chapterPrefixes = []string{
	"capitulo", "chapter", "escena", "scene", "acto", "act",
	"prologo", "prologue", "epilogo", "epilogue", "parte", "part",
}

// cutoffMarkers end a container block's raw content early.
var cutoffMarkers = []string{"gustos", "disgustos", "likes", "dislikes"}

var (
	keyValueRe = regexp.MustCompile(`^\s*([\p{L}]+)\s*:\s*(.+?)\s*$`)
	headingRe  = regexp.MustCompile(`^#\s+(.+?)\s*$`)
	blockRe    = regexp.MustCompile(`^(?:#{2,}\s+|[-*]\s+)(.+?)\s*$`)
)

// classifyContainer handles roster documents: one LIMBO candidate per
// heading or bullet block carrying a plausible name.
func classifyContainer(doc types.Document) []types.DetectedEntity {
	if !containerNames[Key(baseName(doc.Name))] {
		return nil
	}

	_, body := splitFrontMatter(doc.Content)
	lines := strings.Split(body, "\n")

	var (
		found   []types.DetectedEntity
		current *types.DetectedEntity
		block   []string
	)
	flush := func() {
		if current == nil {
			return
		}
		current.RawContent = strings.TrimSpace(strings.Join(block, "\n"))
		found = append(found, *current)
		current, block = nil, nil
	}

	for _, line := range lines {
		if m := blockRe.FindStringSubmatch(line); m != nil {
			flush()
			name := entityName(m[1])
			if name == "" {
				continue
			}
			current = &types.DetectedEntity{
				Name:       name,
				Tier:       types.TierLimbo,
				Confidence: 60,
				Reasoning:  "listed in roster document " + doc.Name,
				FoundIn:    []types.Evidence{{DocID: doc.ID, Excerpt: strings.TrimSpace(line)}},
			}
			continue
		}
		if current == nil {
			continue
		}
		if m := keyValueRe.FindStringSubmatch(line); m != nil && isCutoff(m[1]) {
			flush()
			continue
		}
		block = append(block, line)
	}
	flush()
	return found
}

// classifyFrontMatter promotes a document with a front-matter name field to
// a single ANCHOR.
func classifyFrontMatter(doc types.Document) []types.DetectedEntity {
	meta, _ := splitFrontMatter(doc.Content)
	if meta == nil {
		return nil
	}

	var name string
	for key, value := range meta {
		if nameKeys[Key(key)] {
			name = strings.TrimSpace(value)
			break
		}
	}
	if name == "" {
		return nil
	}

	category := types.CategoryPerson
	for key, value := range meta {
		switch Key(key) {
		case "type", "tipo", "category", "categoria":
			category = categoryFromHint(value)
		}
	}

	return []types.DetectedEntity{{
		Name:        name,
		Tier:        types.TierAnchor,
		Category:    category,
		Confidence:  95,
		Reasoning:   "front matter declares the name",
		AnchorDocID: doc.ID,
		FoundIn:     []types.Evidence{{DocID: doc.ID, Excerpt: "front matter: " + name}},
	}}
}

// classifyHeader handles entity sheets without front matter: a level-1
// heading backed by metadata keys, or an explicit "Name: X" line near the
// top. A bare heading with no supporting keys is narrative structure, not
// an entity, and yields nothing.
func classifyHeader(doc types.Document) []types.DetectedEntity {
	_, body := splitFrontMatter(doc.Content)
	lines := strings.Split(body, "\n")

	head := lines
	if len(head) > 10 {
		head = head[:10]
	}

	anchor := func(name, reasoning string) []types.DetectedEntity {
		return []types.DetectedEntity{{
			Name:        name,
			Tier:        types.TierAnchor,
			Confidence:  90,
			Reasoning:   reasoning,
			AnchorDocID: doc.ID,
			FoundIn:     []types.Evidence{{DocID: doc.ID, Excerpt: reasoning}},
		}}
	}

	for _, line := range head {
		if m := keyValueRe.FindStringSubmatch(line); m != nil && nameKeys[Key(m[1])] {
			if name := entityName(m[2]); name != "" {
				return anchor(name, "explicit name declaration")
			}
		}
	}

	for _, line := range head {
		m := headingRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name := entityName(m[1])
		if name == "" || isChapterHeading(m[1]) {
			continue
		}
		if !hasMetadataKeys(body) {
			return nil
		}
		return anchor(name, "heading with supporting metadata keys")
	}
	return nil
}

// classifyLimboFilename scans draft-looking notes for a capitalized
// "Word: ..." pattern and yields a LIMBO candidate carrying the note body.
func classifyLimboFilename(doc types.Document) []types.DetectedEntity {
	base := strings.ToLower(baseName(doc.Name))
	draft := false
	for _, marker := range draftMarkers {
		if strings.Contains(base, marker) {
			draft = true
			break
		}
	}
	if !draft {
		return nil
	}

	_, body := splitFrontMatter(doc.Content)
	for _, line := range strings.Split(body, "\n") {
		m := keyValueRe.FindStringSubmatch(line)
		if m == nil || !startsUpper(m[1]) {
			continue
		}
		if genericTerms[Key(m[1])] || nameKeys[Key(m[1])] || metadataKeys[Key(m[1])] {
			continue
		}
		return []types.DetectedEntity{{
			Name:       m[1],
			Tier:       types.TierLimbo,
			Confidence: 50,
			Reasoning:  "named in draft note " + doc.Name,
			RawContent: strings.TrimSpace(body),
			FoundIn:    []types.Evidence{{DocID: doc.ID, Excerpt: strings.TrimSpace(line)}},
		}}
	}
	return nil
}

// splitFrontMatter separates a leading YAML front-matter block from the
// body. Returns a nil map when no block exists. Values are flattened to
// strings; nested structures are ignored.
func splitFrontMatter(content string) (map[string]string, string) {
	trimmed := strings.TrimLeft(content, "\uFEFF\n\r ")
	if !strings.HasPrefix(trimmed, "---") {
		return nil, content
	}

	rest := trimmed[3:]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return nil, content
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal([]byte(rest[:end]), &raw); err != nil || len(raw) == 0 {
		return nil, content
	}

	meta := make(map[string]string, len(raw))
	for key, value := range raw {
		if s, ok := value.(string); ok {
			meta[key] = s
		}
	}

	body := rest[end+4:]
	if idx := strings.Index(body, "\n"); idx >= 0 {
		body = body[idx+1:]
	} else {
		body = ""
	}
	return meta, body
}

// categoryFromHint maps a free-form type/category value onto a narrative
// category by substring vocabulary, defaulting to person.
func categoryFromHint(hint string) types.EntityCategory {
	h := Key(hint)
	switch {
	case containsAny(h, "criatura", "creature", "bestia", "beast", "monstruo", "monster"):
		return types.CategoryCreature
	case containsAny(h, "flora", "planta", "plant", "arbol", "tree"):
		return types.CategoryFlora
	case containsAny(h, "lugar", "location", "ciudad", "city", "region", "place", "reino", "kingdom"):
		return types.CategoryLocation
	case containsAny(h, "objeto", "object", "item", "artefacto", "artifact", "arma", "weapon"):
		return types.CategoryObject
	default:
		return types.CategoryPerson
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func hasMetadataKeys(body string) bool {
	for _, line := range strings.Split(body, "\n") {
		if m := keyValueRe.FindStringSubmatch(line); m != nil && metadataKeys[Key(m[1])] {
			return true
		}
	}
	return false
}

func isChapterHeading(heading string) bool {
	h := Key(heading)
	for _, prefix := range chapterPrefixes {
		if strings.HasPrefix(h, prefix) {
			return true
		}
	}
	return false
}

func isCutoff(key string) bool {
	k := Key(key)
	for _, marker := range cutoffMarkers {
		if k == marker {
			return true
		}
	}
	return false
}

// entityName extracts a plausible display name from heading or value text:
// markdown stripped, at most four words, leading capital, not a generic
// term.
func entityName(text string) string {
	name := strings.Trim(strings.TrimSpace(text), "*_`-")
	if idx := strings.IndexAny(name, ":("); idx >= 0 {
		name = strings.TrimSpace(name[:idx])
	}
	if name == "" || !startsUpper(name) {
		return ""
	}
	if len(strings.Fields(name)) > 4 {
		return ""
	}
	if genericTerms[Key(name)] {
		return ""
	}
	return name
}

func startsUpper(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}

func baseName(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
