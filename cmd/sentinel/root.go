package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "sentinel",
	Short: "Narrative consistency engine for manuscript projects",
	Long: `Sentinel indexes a manuscript tree, keeps a roster of detected entities,
and audits new drafts against everything already established: semantic
drift, fact contradictions, world-law violations, and personality drift.

Configuration comes from SENTINEL_* environment variables; a .env file in
the working directory is loaded automatically.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Missing .env is fine; explicit env vars always win.
		_ = godotenv.Load()
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
