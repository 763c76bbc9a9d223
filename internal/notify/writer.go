// Package notify carries engine events to interested listeners: a
// file-backed journal for cross-process delivery (the CLI writes, a running
// watch server picks up) and a websocket hub that pushes events to
// connected editor UIs.
package notify

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Event types emitted by the engine.
const (
	EventDocumentIndexed = "document_indexed"
	EventDocumentSkipped = "document_skipped"
	EventDocumentPruned  = "document_pruned"
	EventEntityDetected  = "entity_detected"
	EventAuditCompleted  = "audit_completed"
	EventDriftAlert      = "drift_alert"
)

// Event is the payload written to an event file and broadcast to clients.
type Event struct {
	Type      string `json:"type"`
	ScopeID   string `json:"scope_id,omitempty"`
	SubjectID string `json:"subject_id"` // Document ID, entity key, or chunk ID
	Detail    string `json:"detail,omitempty"`
	Time      int64  `json:"time"`
}

// EventWriter writes notification event files to a shared directory.
type EventWriter struct {
	dir string
}

// NewEventWriter creates a writer that emits events to {dataPath}/events/.
func NewEventWriter(dataPath string) *EventWriter {
	return &EventWriter{dir: filepath.Join(dataPath, "events")}
}

// Notify writes an event file. Safe to call concurrently. Errors are
// returned but never fatal to the operation that triggered the event.
func (w *EventWriter) Notify(event Event) error {
	if err := os.MkdirAll(w.dir, 0o700); err != nil {
		return fmt.Errorf("notify: mkdir %s: %w", w.dir, err)
	}
	if event.Time == 0 {
		event.Time = time.Now().UnixNano()
	}
	data, _ := json.Marshal(event)
	filename := fmt.Sprintf("%d-%s.event", event.Time, sanitizeID(event.SubjectID))
	return os.WriteFile(filepath.Join(w.dir, filename), data, 0o600)
}

// sanitizeID replaces characters unsafe for filenames.
func sanitizeID(id string) string {
	out := make([]byte, len(id))
	for i := 0; i < len(id); i++ {
		switch id[i] {
		case '/', '\\', ':':
			out[i] = '_'
		default:
			out[i] = id[i]
		}
	}
	return string(out)
}
