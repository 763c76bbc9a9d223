package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var rescueCmd = &cobra.Command{
	Use:   "rescue <chunk-id>",
	Short: "Accept a flagged chunk as intentional",
	Long: `Marks a drift-flagged chunk as reviewed so future scans skip it,
and tags its parent document as carrying intentionally conflicting
content.`,
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
		if err := g.Rescue(context.Background(), args[0]); err != nil {
			return err
		}
		fmt.Printf("rescued chunk %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rescueCmd)
}
