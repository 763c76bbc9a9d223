package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/narravox/sentinel/internal/ingest"
	"github.com/narravox/sentinel/internal/notify"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the vault and serve live events",
	Long: `Runs the long-lived mode: an initial full index, a filesystem watch
that re-ingests documents as they change, and a websocket hub on which
editor UIs receive engine events (indexing, entity detection, audits,
drift alerts). Events written by concurrent CLI runs are picked up from
the shared event directory and broadcast too.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		hub := notify.NewHub(a.cfg.Server.Origins)
		go hub.Run()
		defer hub.Stop()

		// Relay event files written by this process and by concurrent CLI
		// invocations into the hub.
		relay := notify.NewEventWatcher(a.cfg.Storage.DataPath, hub.Broadcast)
		if err := relay.Start(); err != nil {
			return fmt.Errorf("failed to start event relay: %w", err)
		}
		defer relay.Stop()

		server := &http.Server{
			Addr:    fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port),
			Handler: hub,
		}
		go func() {
			log.Printf("watch: event hub listening on ws://%s", server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("watch: hub server stopped: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()

		pipeline := a.pipeline()
		if report, err := pipeline.IngestAll(ctx, a.scope()); err != nil {
			log.Printf("watch: initial index failed: %v", err)
		} else {
			log.Printf("watch: initial index: processed=%d skipped=%d failed=%d pruned=%d",
				report.Processed, report.Skipped, report.Failed, report.Pruned)
		}

		changes, err := a.src.Watch(ctx)
		if err != nil {
			return fmt.Errorf("failed to watch vault: %w", err)
		}

		for {
			select {
			case <-ctx.Done():
				log.Println("watch: shutting down")
				return nil
			case docID, ok := <-changes:
				if !ok {
					return nil
				}
				a.handleChange(ctx, pipeline, docID)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

// handleChange re-ingests a changed document, or prunes when the change was
// a deletion. Failures are logged; the watch loop never dies over one file.
func (a *app) handleChange(ctx context.Context, pipeline *ingest.Pipeline, docID string) {
	refs, err := a.src.ListDocuments(ctx, a.scope())
	if err != nil {
		log.Printf("watch: failed to list documents after change to %s: %v", docID, err)
		return
	}

	for _, ref := range refs {
		if ref.ID == docID {
			result := pipeline.IngestDocument(ctx, a.scope(), ref)
			log.Printf("watch: %s: %s", docID, result.Status)
			return
		}
	}

	// Gone from the listing: the change was a deletion or rename.
	pruned, err := pipeline.PruneMissing(ctx, a.scope(), refs)
	if err != nil {
		log.Printf("watch: prune after removal of %s failed: %v", docID, err)
		return
	}
	if pruned > 0 {
		log.Printf("watch: pruned %d documents", pruned)
	}
}
