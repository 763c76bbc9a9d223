// Package types defines the shared data model for the Sentinel narrative
// consistency engine: documents, indexed chunks, detected entities, and
// drift records. The tier and drift-status string values are part of the
// external contract — the editor UI keys off the literal values.
package types

import "time"

// DocumentCategory classifies a document's authority within a project.
type DocumentCategory string

const (
	// CategoryCanon marks established narrative content (chapters, lore).
	CategoryCanon DocumentCategory = "canon"

	// CategoryReference marks supporting material (notes, research, drafts).
	CategoryReference DocumentCategory = "reference"
)

// DocumentRef identifies a document in the external store without its content.
// Sentinel never writes back to the document store; it only reads text and
// derives index records keyed by the document ID.
type DocumentRef struct {
	ID       string           `json:"id"`                  // Stable external identifier
	Name     string           `json:"name"`                // Display name (usually the filename)
	ParentID string           `json:"parent_id,omitempty"` // Containing folder/collection
	Category DocumentCategory `json:"category"`            // canon or reference
	Path     string           `json:"path,omitempty"`      // Source path, used by lore/canon heuristics
}

// Document is a DocumentRef together with its raw text content.
type Document struct {
	DocumentRef
	Content string `json:"content"`
}

// IngestStatus describes the outcome of ingesting one document.
type IngestStatus string

const (
	// IngestProcessed means the document's chunk set was replaced.
	IngestProcessed IngestStatus = "processed"

	// IngestSkipped means the content was empty or unchanged since the
	// last successful ingestion (hash match).
	IngestSkipped IngestStatus = "skipped"

	// IngestError means this document failed; sibling documents are not
	// affected.
	IngestError IngestStatus = "error"
)

// IngestResult reports what a single-document ingestion did.
type IngestResult struct {
	DocID         string       `json:"doc_id"`
	Status        IngestStatus `json:"status"`
	ChunksCreated int          `json:"chunks_created"`
	ChunksDeleted int          `json:"chunks_deleted"`
	Err           string       `json:"error,omitempty"`
	CompletedAt   time.Time    `json:"completed_at"`
}

// BatchIngestReport aggregates per-document results for a full re-index pass.
type BatchIngestReport struct {
	Processed int            `json:"processed"`
	Skipped   int            `json:"skipped"`
	Failed    int            `json:"failed"`
	Pruned    int            `json:"pruned"`
	Results   []IngestResult `json:"results,omitempty"`
}
