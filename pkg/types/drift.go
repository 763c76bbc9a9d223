package types

import "time"

// DriftStatus buckets a drift score. The literal values are part of the
// external contract.
type DriftStatus string

const (
	DriftStable   DriftStatus = "STABLE"
	DriftDrifting DriftStatus = "DRIFTING"
	DriftCritical DriftStatus = "CRITICAL_INCOHERENCE"
)

// DriftCategory buckets a critical chunk in the bulk scan.
type DriftCategory string

const (
	DriftCategoryIdentity      DriftCategory = "identity"
	DriftCategoryGeography     DriftCategory = "geography"
	DriftCategoryContinuity    DriftCategory = "continuity"
	DriftCategoryUncategorized DriftCategory = "uncategorized"
)

// DriftRecord is the outcome of a drift computation: one minus the cosine
// similarity against the scope's reference centroid, bucketed into a status.
// Computed fresh on every request; never persisted as authoritative state.
type DriftRecord struct {
	Score  float64     `json:"drift_score"` // In [0,1]: 0 = identical to centroid
	Status DriftStatus `json:"status"`
}

// Centroid is the versioned, scope-keyed reference vector representing the
// established narrative baseline. It is fetched at the start of each
// operation and never cached process-wide; concurrent audits re-read it.
type Centroid struct {
	ScopeID   string    `json:"scope_id"`
	Vector    []float32 `json:"vector"`
	Count     int       `json:"count"`   // Number of embeddings folded in
	Version   int       `json:"version"` // Incremented on every update
	UpdatedAt time.Time `json:"updated_at"`
}

// DriftAlert is one flagged chunk from the bulk scan.
type DriftAlert struct {
	ChunkID string        `json:"chunk_id"`
	DocID   string        `json:"doc_id"`
	Path    string        `json:"path,omitempty"`
	Score   float64       `json:"drift_score"`
	Excerpt string        `json:"excerpt,omitempty"`
	Bucket  DriftCategory `json:"bucket"`
}

// DriftScanResult is the bucketed output of a bulk drift scan.
type DriftScanResult struct {
	Success bool                           `json:"success"`
	Status  string                         `json:"status"` // "ok", "skipped", or "partial"
	Scanned int                            `json:"scanned"`
	Partial bool                           `json:"partial"` // Scan cap was hit
	Alerts  map[DriftCategory][]DriftAlert `json:"alerts"`
}
