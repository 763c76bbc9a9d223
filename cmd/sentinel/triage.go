package main

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/spf13/cobra"

	"github.com/narravox/sentinel/pkg/types"
)

var triageJSON bool

var triageCmd = &cobra.Command{
	Use:   "triage",
	Short: "Detect and classify entities across the vault",
	Long: `Runs the entity triage pass: structural classification of every
document (anchors, limbo notes), a generation sweep over the narrative
prose for ghosts, deduplication by normalized name, and enrichment. The
resulting roster is persisted and printed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := context.Background()
		refs, err := a.src.ListDocuments(ctx, a.scope())
		if err != nil {
			return err
		}

		docs := make([]types.Document, 0, len(refs))
		for _, ref := range refs {
			content, err := a.src.ReadText(ctx, ref.ID)
			if err != nil {
				log.Printf("triage: skipping unreadable document %s: %v", ref.ID, err)
				continue
			}
			docs = append(docs, types.Document{DocumentRef: ref, Content: content})
		}

		roster, err := a.sorter().IdentifyEntities(ctx, a.scope(), docs)
		if err != nil {
			return err
		}

		if triageJSON {
			return printJSON(roster)
		}

		entities := make([]*types.DetectedEntity, 0, len(roster))
		for _, entity := range roster {
			entities = append(entities, entity)
		}
		sort.Slice(entities, func(i, j int) bool {
			if entities[i].Tier != entities[j].Tier {
				return entities[i].Tier.Rank() > entities[j].Tier.Rank()
			}
			return entities[i].Name < entities[j].Name
		})

		for _, entity := range entities {
			fmt.Printf("%-8s %-10s %-30s x%d\n", entity.Tier, entity.Category, entity.Name, entity.Occurrences)
		}
		fmt.Printf("%d entities\n", len(entities))
		return nil
	},
}

func init() {
	triageCmd.Flags().BoolVar(&triageJSON, "json", false, "Print the full roster as JSON")
	rootCmd.AddCommand(triageCmd)
}
