package genai

import (
	"log"
	"strings"
)

// Typed shapes for every structured response the engine expects. Model
// output is untrusted input: each parser runs the repair pass first, then
// validates fields, skipping invalid entries instead of failing the batch,
// and defaulting missing arrays to empty.

// ExtractedNames is the entity-extraction response, names grouped by
// narrative category.
type ExtractedNames struct {
	People    []string `json:"people"`
	Creatures []string `json:"creatures"`
	Flora     []string `json:"flora"`
	Locations []string `json:"locations"`
	Objects   []string `json:"objects"`
}

// ParseExtractedNames parses an entity-extraction response. Blank names are
// dropped; a malformed response returns an error (the caller skips the batch).
func ParseExtractedNames(raw string) (*ExtractedNames, error) {
	var resp ExtractedNames
	if err := Unmarshal(raw, &resp); err != nil {
		return nil, err
	}
	resp.People = cleanNames(resp.People)
	resp.Creatures = cleanNames(resp.Creatures)
	resp.Flora = cleanNames(resp.Flora)
	resp.Locations = cleanNames(resp.Locations)
	resp.Objects = cleanNames(resp.Objects)
	return &resp, nil
}

// LimboPreview is the enrichment response for a loosely declared entity.
type LimboPreview struct {
	Preview string   `json:"preview"`
	Traits  []string `json:"traits"`
}

// ParseLimboPreview parses a limbo-enrichment response, capping traits at 3.
func ParseLimboPreview(raw string) (*LimboPreview, error) {
	var resp LimboPreview
	if err := Unmarshal(raw, &resp); err != nil {
		return nil, err
	}
	resp.Traits = cleanNames(resp.Traits)
	if len(resp.Traits) > 3 {
		resp.Traits = resp.Traits[:3]
	}
	return &resp, nil
}

// FactClaim is one extracted statement about a named entity.
type FactClaim struct {
	Entity     string  `json:"entity"`
	Fact       string  `json:"fact"`
	Confidence float64 `json:"confidence"`
}

// LawClaim is one candidate world rule.
type LawClaim struct {
	Rule       string  `json:"rule"`
	Confidence float64 `json:"confidence"`
}

// BehaviorClaim is one observed character behavior.
type BehaviorClaim struct {
	Character string `json:"character"`
	Behavior  string `json:"behavior"`
}

// AuditExtraction is the combined claim-extraction response for one audit.
type AuditExtraction struct {
	Facts     []FactClaim     `json:"facts"`
	Laws      []LawClaim      `json:"laws"`
	Behaviors []BehaviorClaim `json:"behaviors"`
	Phase     string          `json:"phase"`
}

// ParseAuditExtraction parses the claim-extraction response. Entries missing
// required fields or carrying out-of-range confidence are skipped with a log
// line rather than failing the audit.
func ParseAuditExtraction(raw string) (*AuditExtraction, error) {
	var resp AuditExtraction
	if err := Unmarshal(raw, &resp); err != nil {
		return nil, err
	}

	facts := resp.Facts[:0]
	for _, f := range resp.Facts {
		if strings.TrimSpace(f.Entity) == "" || strings.TrimSpace(f.Fact) == "" {
			continue
		}
		if f.Confidence < 0 || f.Confidence > 1 {
			log.Printf("genai: skipping fact about %q with invalid confidence %f", f.Entity, f.Confidence)
			continue
		}
		facts = append(facts, f)
	}
	resp.Facts = facts

	laws := resp.Laws[:0]
	for _, l := range resp.Laws {
		if strings.TrimSpace(l.Rule) == "" {
			continue
		}
		if l.Confidence < 0 || l.Confidence > 1 {
			continue
		}
		laws = append(laws, l)
	}
	resp.Laws = laws

	behaviors := resp.Behaviors[:0]
	for _, b := range resp.Behaviors {
		if strings.TrimSpace(b.Character) == "" || strings.TrimSpace(b.Behavior) == "" {
			continue
		}
		behaviors = append(behaviors, b)
	}
	resp.Behaviors = behaviors

	if resp.Facts == nil {
		resp.Facts = []FactClaim{}
	}
	if resp.Laws == nil {
		resp.Laws = []LawClaim{}
	}
	if resp.Behaviors == nil {
		resp.Behaviors = []BehaviorClaim{}
	}
	return &resp, nil
}

// ConflictVerdict is the yes/no contradiction judgment for one fact.
type ConflictVerdict struct {
	HasConflict bool   `json:"has_conflict"`
	Reason      string `json:"reason"`
}

// ParseConflictVerdict parses a contradiction verdict.
func ParseConflictVerdict(raw string) (*ConflictVerdict, error) {
	var resp ConflictVerdict
	if err := Unmarshal(raw, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LawVerdict is the severity classification for one world-law check.
type LawVerdict struct {
	Severity string `json:"severity"`
	Reason   string `json:"reason"`
}

// ParseLawVerdict parses a law verdict; unknown severities collapse to NONE
// so a confused model never produces a phantom alert.
func ParseLawVerdict(raw string) (*LawVerdict, error) {
	var resp LawVerdict
	if err := Unmarshal(raw, &resp); err != nil {
		return nil, err
	}
	switch resp.Severity {
	case "CRITICAL", "WARNING", "NONE":
	default:
		log.Printf("genai: unknown law severity %q, treating as NONE", resp.Severity)
		resp.Severity = "NONE"
	}
	return &resp, nil
}

// PersonalityVerdict classifies new behavior against canon.
type PersonalityVerdict struct {
	Verdict string `json:"verdict"`
	Reason  string `json:"reason"`
}

// ParsePersonalityVerdict parses a personality verdict; unknown verdicts
// collapse to consistent.
func ParsePersonalityVerdict(raw string) (*PersonalityVerdict, error) {
	var resp PersonalityVerdict
	if err := Unmarshal(raw, &resp); err != nil {
		return nil, err
	}
	switch resp.Verdict {
	case "consistent", "evolved", "traitor":
	default:
		log.Printf("genai: unknown personality verdict %q, treating as consistent", resp.Verdict)
		resp.Verdict = "consistent"
	}
	return &resp, nil
}

// ResonanceMatch is one detected echo between a draft and indexed material.
type ResonanceMatch struct {
	Type    string `json:"type"` // plot, vibe, or lore_seed
	Excerpt string `json:"excerpt"`
	Reason  string `json:"reason"`
}

type resonanceResponse struct {
	Matches []ResonanceMatch `json:"matches"`
}

// ParseResonanceMatches parses a resonance response, dropping matches with
// unknown types.
func ParseResonanceMatches(raw string) ([]ResonanceMatch, error) {
	var resp resonanceResponse
	if err := Unmarshal(raw, &resp); err != nil {
		return nil, err
	}
	valid := make([]ResonanceMatch, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		switch m.Type {
		case "plot", "vibe", "lore_seed":
			valid = append(valid, m)
		default:
			log.Printf("genai: skipping resonance match with unknown type %q", m.Type)
		}
	}
	return valid, nil
}

// ProfileResponse is a synthesized character profile.
type ProfileResponse struct {
	Role        string `json:"role"`
	Personality string `json:"personality"`
	Evolution   string `json:"evolution"`
}

// ParseProfileResponse parses a profile-extraction response.
func ParseProfileResponse(raw string) (*ProfileResponse, error) {
	var resp ProfileResponse
	if err := Unmarshal(raw, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func cleanNames(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
