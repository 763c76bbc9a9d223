// Package source abstracts where a project's documents live. The engine
// only ever reads from a source: it derives index records keyed by document
// ID and never writes back.
package source

import (
	"context"

	"github.com/narravox/sentinel/pkg/types"
)

// DocumentSource lists and reads the documents of a project scope.
type DocumentSource interface {
	// ListDocuments returns a reference for every document in the scope.
	ListDocuments(ctx context.Context, scopeID string) ([]types.DocumentRef, error)

	// ReadText returns the full text content of one document.
	ReadText(ctx context.Context, id string) (string, error)
}

// Watcher is implemented by sources that can report changes. Events carry
// the IDs of documents whose content may have changed; the ingestion
// pipeline decides via content hash whether anything actually did.
type Watcher interface {
	// Watch emits document IDs on changes until ctx is cancelled.
	Watch(ctx context.Context) (<-chan string, error)
}
