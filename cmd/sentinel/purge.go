package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var purgeCmd = &cobra.Command{
	Use:   "purge <doc-id>",
	Short: "Remove a document's chunks and state from the index",
	Long: `Deletes every indexed chunk of a document along with its hash and
audit state. The document file itself is never touched. The document
must belong to the configured scope.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		g, err := a.guardian()
		if err != nil {
			return err
		}
		deleted, err := g.Purge(context.Background(), a.scope(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("purged %s (%d chunks)\n", args[0], deleted)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(purgeCmd)
}
