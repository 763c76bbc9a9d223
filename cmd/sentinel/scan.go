package main

import (
	"context"

	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Sweep the whole index for semantic drift",
	Long: `Scores every indexed chunk against the scope centroid and buckets
critically drifted chunks by probable cause (identity, geography,
continuity). Chunks already rescued by the author are excluded.`,
	Args: cobra.NoArgs,
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
		result, err := g.ScanDrift(context.Background(), a.scope())
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
}
