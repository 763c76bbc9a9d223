package types

import "time"

// Chunk is the indexed unit of the vector store. The current policy keeps
// one chunk per document: a bounded prefix of the document text, embedded
// once. Re-indexing replaces the whole chunk set for a document, so at most
// one authoritative set exists per document ID at any time.
type Chunk struct {
	ID        string           `json:"id"`             // Unique chunk identifier
	DocID     string           `json:"doc_id"`         // Owning document
	ScopeID   string           `json:"scope_id"`       // Project scope
	Text      string           `json:"text"`           // Truncated document prefix
	Embedding []float32        `json:"embedding"`      // Vector representation
	Category  DocumentCategory `json:"category"`       // Inherited from the document
	Path      string           `json:"path,omitempty"` // Source path for evidence heuristics
	Hash      string           `json:"hash"`           // Content hash of the source document
	Reviewed  bool             `json:"reviewed"`       // Set by a drift rescue acknowledgment
	CreatedAt time.Time        `json:"created_at"`     // Indexing timestamp
}

// ChunkHit is a nearest-neighbour result from the vector store.
type ChunkHit struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"` // Cosine similarity to the query vector
}
