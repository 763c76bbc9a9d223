package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/narravox/sentinel/pkg/types"
)

var indexVerbose bool

var indexCmd = &cobra.Command{
	Use:   "index [doc-id...]",
	Short: "Index documents into the project scope",
	Long: `Without arguments, re-indexes the whole vault: every document is
hashed, unchanged ones are skipped, changed ones get their chunk set
replaced, and chunks of deleted documents are pruned. With arguments,
only the named documents are ingested.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := context.Background()
		pipeline := a.pipeline()

		if len(args) == 0 {
			report, err := pipeline.IngestAll(ctx, a.scope())
			if err != nil {
				return err
			}
			if !indexVerbose {
				report.Results = nil
			}
			return printJSON(report)
		}

		refs, err := a.src.ListDocuments(ctx, a.scope())
		if err != nil {
			return err
		}
		byID := make(map[string]types.DocumentRef, len(refs))
		for _, ref := range refs {
			byID[ref.ID] = ref
		}

		var results []types.IngestResult
		for _, id := range args {
			ref, ok := byID[id]
			if !ok {
				return fmt.Errorf("document %q not found under vault root", id)
			}
			results = append(results, pipeline.IngestDocument(ctx, a.scope(), ref))
		}
		return printJSON(results)
	},
}

func init() {
	indexCmd.Flags().BoolVarP(&indexVerbose, "verbose", "v", false, "Include per-document results in the report")
	rootCmd.AddCommand(indexCmd)
}
