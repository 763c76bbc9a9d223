package main

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var auditCmd = &cobra.Command{
	Use:   "audit <doc-id>",
	Short: "Audit one document against the indexed scope",
	Long: `Audits a document's current content against everything already
indexed: semantic drift from the scope centroid, resonance with earlier
material, fact contradictions, world-law violations, and personality
drift. Unchanged content since the last audit is skipped.

Pass "-" to audit ad-hoc content from stdin instead of a vault document;
stdin audits never short-circuit on the content hash.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := context.Background()

		var docID, content string
		if args[0] == "-" {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return err
			}
			content = string(data)
		} else {
			docID = args[0]
			content, err = a.src.ReadText(ctx, docID)
			if err != nil {
				return err
			}
		}

		g, err := a.guardian()
		if err != nil {
			return err
		}
		result, err := g.Audit(ctx, a.scope(), docID, content)
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
}
