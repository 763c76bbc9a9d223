package source

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/narravox/sentinel/pkg/types"
)

// referenceMarkers are path segments that demote a document from canon to
// reference material. Matching is per-segment, case-insensitive.
var referenceMarkers = map[string]bool{
	"notes":     true,
	"drafts":    true,
	"research":  true,
	"reference": true,
	"scratch":   true,
}

// textExtensions are the file types treated as documents.
var textExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".txt":      true,
}

// watchDebounce coalesces editor save bursts (write + rename + chmod) into
// a single change event per document.
const watchDebounce = 300 * time.Millisecond

// Filesystem reads markdown and plain-text documents under a root
// directory. Document IDs are slash-separated paths relative to the root,
// which keeps them stable across machines.
type Filesystem struct {
	root string
}

var (
	_ DocumentSource = (*Filesystem)(nil)
	_ Watcher        = (*Filesystem)(nil)
)

// NewFilesystem creates a source rooted at dir.
func NewFilesystem(dir string) (*Filesystem, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %s is not a directory", abs)
	}
	return &Filesystem{root: abs}, nil
}

// ListDocuments walks the root and returns a reference for every document
// file, skipping hidden directories.
func (f *Filesystem) ListDocuments(ctx context.Context, scopeID string) ([]types.DocumentRef, error) {
	var refs []types.DocumentRef
	err := filepath.WalkDir(f.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if path != f.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !textExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		rel, err := filepath.Rel(f.root, path)
		if err != nil {
			return err
		}
		id := filepath.ToSlash(rel)
		refs = append(refs, types.DocumentRef{
			ID:       id,
			Name:     d.Name(),
			ParentID: parentID(id),
			Category: categorize(id),
			Path:     id,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return refs, nil
}

// ReadText returns the content of the document with the given ID.
func (f *Filesystem) ReadText(ctx context.Context, id string) (string, error) {
	path, err := f.resolve(id)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", id, err)
	}
	return string(data), nil
}

// Watch emits document IDs for changed files until ctx is cancelled.
// Events within the debounce window for the same document coalesce.
func (f *Filesystem) Watch(ctx context.Context) (<-chan string, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	// fsnotify is not recursive; register every directory under the root.
	err = filepath.WalkDir(f.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != f.root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to register watch tree: %w", err)
	}

	out := make(chan string)
	go f.watchLoop(ctx, watcher, out)
	return out, nil
}

func (f *Filesystem) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, out chan<- string) {
	defer watcher.Close()
	defer close(out)

	pending := make(map[string]struct{})
	var flush <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			// New directories need their own watch registration.
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := watcher.Add(event.Name); err != nil {
						log.Printf("source: failed to watch new directory %s: %v", event.Name, err)
					}
					continue
				}
			}
			if !textExtensions[strings.ToLower(filepath.Ext(event.Name))] {
				continue
			}
			rel, err := filepath.Rel(f.root, event.Name)
			if err != nil || strings.HasPrefix(rel, "..") {
				continue
			}
			pending[filepath.ToSlash(rel)] = struct{}{}
			flush = time.After(watchDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("source: watch error: %v", err)

		case <-flush:
			for id := range pending {
				select {
				case out <- id:
				case <-ctx.Done():
					return
				}
			}
			pending = make(map[string]struct{})
			flush = nil
		}
	}
}

// resolve maps a document ID back to an absolute path, rejecting IDs that
// escape the root.
func (f *Filesystem) resolve(id string) (string, error) {
	path := filepath.Join(f.root, filepath.FromSlash(id))
	rel, err := filepath.Rel(f.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("document ID %q escapes the source root", id)
	}
	return path, nil
}

// categorize infers the document category from its relative path.
func categorize(id string) types.DocumentCategory {
	for _, segment := range strings.Split(filepath.ToSlash(filepath.Dir(filepath.FromSlash(id))), "/") {
		if referenceMarkers[strings.ToLower(segment)] {
			return types.CategoryReference
		}
	}
	return types.CategoryCanon
}

func parentID(id string) string {
	dir := filepath.ToSlash(filepath.Dir(filepath.FromSlash(id)))
	if dir == "." {
		return ""
	}
	return dir
}
