package types

import "time"

// EntityTier classifies how confidently an entity's existence is backed by
// document structure. The literal values are part of the external contract.
type EntityTier string

const (
	// TierAnchor: a document explicitly and structurally declares the
	// entity (front-matter name, heading with metadata keys, or a
	// "Name: X" key-value line).
	TierAnchor EntityTier = "ANCHOR"

	// TierLimbo: a loosely structured note mentions the name under a
	// key-value pattern, without full metadata.
	TierLimbo EntityTier = "LIMBO"

	// TierGhost: the name appears only in narrative prose, surfaced by
	// the generation layer with no structural backing.
	TierGhost EntityTier = "GHOST"
)

// Rank orders tiers by structural confidence (higher is stronger). Merging
// never downgrades a tier.
func (t EntityTier) Rank() int {
	switch t {
	case TierAnchor:
		return 3
	case TierLimbo:
		return 2
	case TierGhost:
		return 1
	default:
		return 0
	}
}

// EntityCategory is the narrative kind of a detected entity.
type EntityCategory string

const (
	CategoryPerson   EntityCategory = "person"
	CategoryCreature EntityCategory = "creature"
	CategoryFlora    EntityCategory = "flora"
	CategoryLocation EntityCategory = "location"
	CategoryObject   EntityCategory = "object"
)

// Evidence is a snippet showing where an entity was found.
type Evidence struct {
	DocID   string `json:"doc_id,omitempty"`
	Excerpt string `json:"excerpt"`
}

// DetectedEntity is a candidate named thing discovered by triage.
// Identity is keyed by the normalized form of Name: two entities sharing a
// normalized key are the same entity and must be merged, never duplicated.
type DetectedEntity struct {
	Name        string         `json:"name"`                  // Canonical display name
	Tier        EntityTier     `json:"tier"`                  // GHOST, LIMBO, or ANCHOR
	Category    EntityCategory `json:"category,omitempty"`    // person/creature/flora/location/object
	Confidence  int            `json:"confidence"`            // 0-100
	Reasoning   string         `json:"reasoning,omitempty"`   // Why this tier was assigned
	FoundIn     []Evidence     `json:"found_in,omitempty"`    // Evidence snippets (capped)
	AnchorDocID string         `json:"anchor_doc_id,omitempty"` // Backing document for anchors
	RawContent  string         `json:"raw_content,omitempty"` // Source note body for limbo entities
	Preview     string         `json:"preview,omitempty"`     // Enrichment: short description
	Traits      []string       `json:"traits,omitempty"`      // Enrichment: up to 3 traits
	Occurrences int            `json:"occurrences"`           // Incremented on every re-merge
	UpdatedAt   time.Time      `json:"updated_at"`
}

// CharacterProfile is the canonical roster record consulted by the
// personality-drift check and healed by triage when an anchor is confirmed.
type CharacterProfile struct {
	Name        string    `json:"name"`
	Role        string    `json:"role,omitempty"`
	Personality string    `json:"personality,omitempty"`
	Evolution   string    `json:"evolution,omitempty"`
	Biography   string    `json:"biography,omitempty"`
	DocID       string    `json:"doc_id,omitempty"` // Link to the anchor document
	UpdatedAt   time.Time `json:"updated_at"`
}
