package guardian

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/narravox/sentinel/internal/genai"
	"github.com/narravox/sentinel/internal/notify"
	"github.com/narravox/sentinel/internal/similarity"
	"github.com/narravox/sentinel/internal/storage"
	"github.com/narravox/sentinel/pkg/types"
)

// Audit result statuses.
const (
	StatusOK               = "ok"
	StatusSkippedUnchanged = "skipped_unchanged"
	StatusPartial          = "partial"
	StatusAIError          = "ai_error"
)

// ConflictFinding is one confirmed fact contradiction.
type ConflictFinding struct {
	Entity   string   `json:"entity"`
	Fact     string   `json:"fact"`
	Reason   string   `json:"reason"`
	Evidence []string `json:"evidence,omitempty"`
}

// LawFinding is one non-NONE world-law verdict.
type LawFinding struct {
	Rule         string `json:"rule"`
	Severity     string `json:"severity"` // CRITICAL or WARNING
	Reason       string `json:"reason"`
	HighPriority bool   `json:"high_priority"` // Evidence came from lore/canon paths
}

// PersonalityFinding is one evolved/traitor behavior verdict.
type PersonalityFinding struct {
	Character string `json:"character"`
	Behavior  string `json:"behavior"`
	Verdict   string `json:"verdict"` // evolved or traitor
	Reason    string `json:"reason"`
}

// AuditResult is the full set of findings for one draft. The finding
// arrays are always present in the JSON encoding, empty rather than null,
// so consumers can index into them unconditionally.
type AuditResult struct {
	Status        string                 `json:"status"`
	Phase         string                 `json:"phase,omitempty"`
	Drift         *types.DriftRecord     `json:"drift,omitempty"`
	Resonance     []genai.ResonanceMatch `json:"resonance"`
	Conflicts     []ConflictFinding      `json:"conflicts"`
	LawViolations []LawFinding           `json:"law_violations"`
	Personality   []PersonalityFinding   `json:"personality"`
}

func newAuditResult(status string) *AuditResult {
	return &AuditResult{
		Status:        status,
		Resonance:     []genai.ResonanceMatch{},
		Conflicts:     []ConflictFinding{},
		LawViolations: []LawFinding{},
		Personality:   []PersonalityFinding{},
	}
}

// Audit checks a draft against the indexed scope. fileID enables the
// hash-based short-circuit; pass "" for ad-hoc content.
//
// The five check branches run concurrently and each swallows its own
// failure: a broken branch degrades its finding set to empty and downgrades
// the status to partial, never aborts the audit.
func (g *Guardian) Audit(ctx context.Context, scopeID, fileID, content string) (*AuditResult, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return newAuditResult(StatusSkippedUnchanged), nil
	}

	hash := fmt.Sprintf("%x", sha256.Sum256([]byte(content)))
	if fileID != "" && g.isUnchanged(ctx, fileID, hash) {
		return newAuditResult(StatusSkippedUnchanged), nil
	}

	extraction, err := g.extractClaims(ctx, content)
	if err != nil {
		log.Printf("guardian: claim extraction failed for %s: %v", fileID, err)
		return newAuditResult(StatusAIError), nil
	}

	embedding, err := g.embedder.Embed(ctx, content)
	if err != nil {
		log.Printf("guardian: embedding failed for %s: %v", fileID, err)
		return newAuditResult(StatusAIError), nil
	}

	result := newAuditResult(StatusOK)
	result.Phase = extraction.Phase

	var (
		mu       sync.Mutex
		degraded bool
	)
	fail := func(branch string, err error) {
		log.Printf("guardian: %s check failed for %s: %v", branch, fileID, err)
		mu.Lock()
		degraded = true
		mu.Unlock()
	}

	// Branches never return an error: the group is used for structured
	// launch/wait only.
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		drift, err := g.checkDrift(groupCtx, scopeID, embedding)
		if err != nil {
			fail("drift", err)
			return nil
		}
		result.Drift = drift
		return nil
	})

	group.Go(func() error {
		matches, err := g.checkResonance(groupCtx, scopeID, content, embedding)
		if err != nil {
			fail("resonance", err)
			return nil
		}
		if matches != nil {
			result.Resonance = matches
		}
		return nil
	})

	group.Go(func() error {
		conflicts, err := g.checkFacts(groupCtx, scopeID, extraction.Facts)
		if err != nil {
			fail("fact", err)
			return nil
		}
		if conflicts != nil {
			result.Conflicts = conflicts
		}
		return nil
	})

	group.Go(func() error {
		violations, err := g.checkLaws(groupCtx, scopeID, extraction.Laws)
		if err != nil {
			fail("law", err)
			return nil
		}
		if violations != nil {
			result.LawViolations = violations
		}
		return nil
	})

	group.Go(func() error {
		findings, err := g.checkPersonalities(groupCtx, scopeID, extraction.Behaviors)
		if err != nil {
			fail("personality", err)
			return nil
		}
		if findings != nil {
			result.Personality = findings
		}
		return nil
	})

	_ = group.Wait()

	if degraded {
		result.Status = StatusPartial
	}

	if fileID != "" {
		g.auditCache.Add(fileID, hash)
		if err := g.state.SetAuditHash(ctx, fileID, hash); err != nil {
			log.Printf("guardian: failed to record audit hash for %s: %v", fileID, err)
		}
	}

	g.emit(notify.Event{
		Type:      notify.EventAuditCompleted,
		ScopeID:   scopeID,
		SubjectID: fileID,
		Detail:    result.Status,
	})
	return result, nil
}

func (g *Guardian) isUnchanged(ctx context.Context, fileID, hash string) bool {
	if cached, ok := g.auditCache.Get(fileID); ok && cached == hash {
		return true
	}
	stored, err := g.state.GetAuditHash(ctx, fileID)
	if err != nil {
		log.Printf("guardian: failed to load audit hash for %s: %v", fileID, err)
		return false
	}
	if stored == hash {
		g.auditCache.Add(fileID, hash)
		return true
	}
	return false
}

func (g *Guardian) extractClaims(ctx context.Context, content string) (*genai.AuditExtraction, error) {
	text, err := g.gen.Generate(ctx, genai.AuditExtractionPrompt(content), genai.Options{
		UseFlash: true,
		JSONMode: true,
		Label:    "audit claim extraction",
	})
	if err != nil {
		return nil, err
	}
	return genai.ParseAuditExtraction(text)
}

// checkDrift scores the draft against the scope centroid. A scope without
// a centroid has no baseline yet; that is not a failure.
func (g *Guardian) checkDrift(ctx context.Context, scopeID string, embedding []float32) (*types.DriftRecord, error) {
	centroid, err := g.state.GetCentroid(ctx, scopeID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	score, err := similarity.Cosine(embedding, centroid.Vector)
	if err != nil {
		return nil, err
	}
	return newDriftRecord(1 - score), nil
}

func newDriftRecord(score float64) *types.DriftRecord {
	record := &types.DriftRecord{Score: score}
	switch {
	case score < DriftStableMax:
		record.Status = types.DriftStable
	case score < DriftCriticalMin:
		record.Status = types.DriftDrifting
	default:
		record.Status = types.DriftCritical
	}
	return record
}

// checkResonance asks whether the draft echoes nearby indexed material.
func (g *Guardian) checkResonance(ctx context.Context, scopeID, content string, embedding []float32) ([]genai.ResonanceMatch, error) {
	hits, err := g.chunks.Nearest(ctx, scopeID, embedding, resonanceK)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, nil
	}

	passages := make([]string, len(hits))
	for i, hit := range hits {
		passages[i] = hit.Chunk.Text
	}

	text, err := g.gen.Generate(ctx, genai.ResonancePrompt(content, passages), genai.Options{
		UseFlash: true,
		JSONMode: true,
		Label:    "resonance check",
	})
	if err != nil {
		return nil, err
	}
	return genai.ParseResonanceMatches(text)
}

// checkFacts verifies the highest-confidence extracted facts against their
// nearest indexed passages. Only confirmed contradictions are kept; a
// single fact's verdict failure skips that fact, not the branch.
func (g *Guardian) checkFacts(ctx context.Context, scopeID string, facts []genai.FactClaim) ([]ConflictFinding, error) {
	sort.SliceStable(facts, func(i, j int) bool { return facts[i].Confidence > facts[j].Confidence })

	var findings []ConflictFinding
	checked := 0
	for _, fact := range facts {
		if checked >= maxFactChecks {
			break
		}
		if fact.Confidence < factConfidenceFloor {
			continue
		}
		checked++

		passages, err := g.retrieve(ctx, scopeID, fact.Entity+": "+fact.Fact)
		if err != nil || len(passages) == 0 {
			if err != nil {
				log.Printf("guardian: retrieval for fact about %q failed: %v", fact.Entity, err)
			}
			continue
		}

		text, err := g.gen.Generate(ctx, genai.ContradictionVerdictPrompt(fact.Entity, fact.Fact, passages), genai.Options{
			UseFlash: true,
			JSONMode: true,
			Label:    "contradiction verdict for " + fact.Entity,
		})
		if err != nil {
			log.Printf("guardian: verdict for fact about %q failed: %v", fact.Entity, err)
			continue
		}
		verdict, err := genai.ParseConflictVerdict(text)
		if err != nil || !verdict.HasConflict {
			continue
		}

		findings = append(findings, ConflictFinding{
			Entity:   fact.Entity,
			Fact:     fact.Fact,
			Reason:   verdict.Reason,
			Evidence: passages,
		})
	}
	return findings, nil
}

// checkLaws classifies candidate world rules against established passages.
// Evidence from lore/canon paths marks the finding high priority.
func (g *Guardian) checkLaws(ctx context.Context, scopeID string, laws []genai.LawClaim) ([]LawFinding, error) {
	sort.SliceStable(laws, func(i, j int) bool { return laws[i].Confidence > laws[j].Confidence })
	if len(laws) > maxLawChecks {
		laws = laws[:maxLawChecks]
	}

	var findings []LawFinding
	for _, law := range laws {
		embedding, err := g.embedder.Embed(ctx, law.Rule)
		if err != nil {
			log.Printf("guardian: embedding for law %q failed: %v", law.Rule, err)
			continue
		}
		hits, err := g.chunks.Nearest(ctx, scopeID, embedding, retrievalK)
		if err != nil || len(hits) == 0 {
			if err != nil {
				log.Printf("guardian: retrieval for law %q failed: %v", law.Rule, err)
			}
			continue
		}

		passages := make([]string, len(hits))
		highPriority := false
		for i, hit := range hits {
			passages[i] = hit.Chunk.Text
			if g.isLorePath(hit.Chunk.Path) {
				highPriority = true
			}
		}

		text, err := g.gen.Generate(ctx, genai.LawViolationPrompt(law.Rule, passages), genai.Options{
			UseFlash: true,
			JSONMode: true,
			Label:    "law verdict",
		})
		if err != nil {
			log.Printf("guardian: verdict for law %q failed: %v", law.Rule, err)
			continue
		}
		verdict, err := genai.ParseLawVerdict(text)
		if err != nil || verdict.Severity == "NONE" {
			continue
		}

		findings = append(findings, LawFinding{
			Rule:         law.Rule,
			Severity:     verdict.Severity,
			Reason:       verdict.Reason,
			HighPriority: highPriority,
		})
	}
	return findings, nil
}

// checkPersonalities judges observed behaviors against stored character
// profiles, synthesizing a profile from a biography when none exists.
func (g *Guardian) checkPersonalities(ctx context.Context, scopeID string, behaviors []genai.BehaviorClaim) ([]PersonalityFinding, error) {
	if len(behaviors) > maxBehaviorChecks {
		behaviors = behaviors[:maxBehaviorChecks]
	}

	var findings []PersonalityFinding
	for _, behavior := range behaviors {
		profile, err := g.loadProfile(ctx, scopeID, behavior.Character)
		if err != nil {
			log.Printf("guardian: no usable profile for %q: %v", behavior.Character, err)
			continue
		}

		recentChunks, err := g.chunks.ChunksMentioning(ctx, scopeID, behavior.Character, resonanceK)
		if err != nil {
			log.Printf("guardian: recent chunks for %q failed: %v", behavior.Character, err)
		}
		recent := make([]string, len(recentChunks))
		for i, chunk := range recentChunks {
			recent[i] = chunk.Text
		}

		text, err := g.gen.Generate(ctx,
			genai.PersonalityVerdictPrompt(behavior.Character, profile.Personality, behavior.Behavior, recent),
			genai.Options{
				UseFlash: true,
				JSONMode: true,
				Label:    "personality verdict for " + behavior.Character,
			})
		if err != nil {
			log.Printf("guardian: verdict for %q failed: %v", behavior.Character, err)
			continue
		}
		verdict, err := genai.ParsePersonalityVerdict(text)
		if err != nil || verdict.Verdict == "consistent" {
			continue
		}

		findings = append(findings, PersonalityFinding{
			Character: behavior.Character,
			Behavior:  behavior.Behavior,
			Verdict:   verdict.Verdict,
			Reason:    verdict.Reason,
		})
	}
	return findings, nil
}

// loadProfile fetches a character profile, synthesizing the personality
// from a biography via one flash call when only a biography exists.
func (g *Guardian) loadProfile(ctx context.Context, scopeID, character string) (*types.CharacterProfile, error) {
	profile, err := g.roster.GetProfile(ctx, scopeID, character)
	if err != nil {
		return nil, err
	}
	if profile.Personality != "" || profile.Biography == "" {
		return profile, nil
	}

	text, err := g.gen.Generate(ctx, genai.ProfileExtractionPrompt(character, profile.Biography), genai.Options{
		UseFlash: true,
		JSONMode: true,
		Label:    "profile synthesis for " + character,
	})
	if err != nil {
		return nil, err
	}
	synthesized, err := genai.ParseProfileResponse(text)
	if err != nil {
		return nil, err
	}

	profile.Role = synthesized.Role
	profile.Personality = synthesized.Personality
	profile.Evolution = synthesized.Evolution
	if err := g.roster.SaveProfile(ctx, scopeID, profile); err != nil {
		log.Printf("guardian: failed to save synthesized profile for %q: %v", character, err)
	}
	return profile, nil
}

// retrieve embeds a query and returns the texts of its nearest chunks.
func (g *Guardian) retrieve(ctx context.Context, scopeID, query string) ([]string, error) {
	embedding, err := g.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	hits, err := g.chunks.Nearest(ctx, scopeID, embedding, retrievalK)
	if err != nil {
		return nil, err
	}
	passages := make([]string, len(hits))
	for i, hit := range hits {
		passages[i] = hit.Chunk.Text
	}
	return passages, nil
}

func (g *Guardian) isLorePath(path string) bool {
	if path == "" {
		return false
	}
	for _, pattern := range g.loreGlobs() {
		if ok, err := doublestar.Match(pattern, path); err == nil && ok {
			return true
		}
	}
	return false
}
