package types

import "time"

// MaxEvidence caps the evidence snippets kept per entity; older snippets win.
const MaxEvidence = 5

// MergeFrom folds another sighting of the same entity (same normalized key)
// into e. Structural tiers are never downgraded: the higher-ranked tier wins
// together with its reasoning and anchor link. Category is backfilled only
// when missing, evidence is appended up to MaxEvidence, and the occurrence
// counter always increments.
func (e *DetectedEntity) MergeFrom(other *DetectedEntity) {
	if other == nil {
		return
	}

	if other.Tier.Rank() > e.Tier.Rank() {
		e.Tier = other.Tier
		e.Name = other.Name
		if other.Reasoning != "" {
			e.Reasoning = other.Reasoning
		}
		if other.AnchorDocID != "" {
			e.AnchorDocID = other.AnchorDocID
		}
		if other.RawContent != "" {
			e.RawContent = other.RawContent
		}
	}

	if e.Category == "" {
		e.Category = other.Category
	}
	if other.Confidence > e.Confidence {
		e.Confidence = other.Confidence
	}
	if e.Preview == "" {
		e.Preview = other.Preview
	}
	if len(e.Traits) == 0 {
		e.Traits = other.Traits
	}

	for _, ev := range other.FoundIn {
		if len(e.FoundIn) >= MaxEvidence {
			break
		}
		e.FoundIn = append(e.FoundIn, ev)
	}

	e.Occurrences += max(other.Occurrences, 1)
	e.UpdatedAt = time.Now()
}
